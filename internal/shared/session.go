package shared

import (
	"net/http"
	"strings"
	"time"
)

// Cookie names written at login and read on every request.
const (
	CookieToken    = "token"
	CookieUsername = "username"
	CookieRole     = "role"
)

// Session is the identity derived from the three session cookies. It is read once
// per request and handed explicitly to the access gate and to backend requests.
type Session struct {
	Token    string
	Username string
	Role     Role
}

// SessionFromRequest reads the session cookies. Missing cookies leave fields empty.
func SessionFromRequest(r *http.Request) Session {
	return Session{
		Token:    cookieValue(r, CookieToken),
		Username: cookieValue(r, CookieUsername),
		Role:     Role(cookieValue(r, CookieRole)),
	}
}

// Authenticated reports whether all three values are present and the role is known.
// A role that does not match the fixed set counts as no session at all.
func (s Session) Authenticated() bool {
	return s.Token != "" && s.Username != "" && s.Role.Valid()
}

// CookieOptions controls attributes of the session cookies.
type CookieOptions struct {
	TTL    time.Duration
	Secure bool
}

// WriteSessionCookies stores the session on the response.
func WriteSessionCookies(w http.ResponseWriter, sess Session, opts CookieOptions) {
	expires := time.Now().Add(opts.TTL)
	maxAge := int(opts.TTL.Seconds())
	for _, c := range []struct {
		name     string
		value    string
		httpOnly bool
	}{
		{CookieToken, sess.Token, true},
		{CookieUsername, sess.Username, false},
		{CookieRole, sess.Role.String(), false},
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     c.name,
			Value:    c.value,
			Path:     "/",
			Expires:  expires,
			MaxAge:   maxAge,
			HttpOnly: c.httpOnly,
			Secure:   opts.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// ClearSessionCookies expires the session cookies.
func ClearSessionCookies(w http.ResponseWriter, secure bool) {
	for _, name := range []string{CookieToken, CookieUsername, CookieRole} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(c.Value)
}
