package shared

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"

	"golang.org/x/crypto/hkdf"
)

const (
	// CSRFFormField is the form field name carrying the CSRF token.
	CSRFFormField = "csrf_token"
	// CSRFHeader is accepted instead of the form field for scripted posts.
	CSRFHeader = "X-CSRF-Token"
	// CSRFSeedCookie binds tokens issued before login.
	CSRFSeedCookie = "csrf_seed"
	// MaxUploadBytes bounds multipart bodies, spreadsheet imports included.
	MaxUploadBytes = 10 << 20
)

// CSRFManager issues and verifies CSRF tokens bound to the session token, or to a
// random seed cookie before the user has logged in. No server-side state is kept.
type CSRFManager struct {
	key    []byte
	secure bool
}

// NewCSRFManager derives the signing key from secret.
func NewCSRFManager(secret string, secure bool) *CSRFManager {
	key := make([]byte, sha256.Size)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte("dashboard csrf"))
	if _, err := io.ReadFull(r, key); err != nil {
		key = []byte(secret)
	}
	return &CSRFManager{key: key, secure: secure}
}

// EnsureToken returns the token for the current request, issuing a seed cookie when
// the request carries no session.
func (m *CSRFManager) EnsureToken(w http.ResponseWriter, r *http.Request, sess Session) (string, error) {
	binding := m.binding(r, sess)
	if binding == "" {
		seed, err := randomSeed()
		if err != nil {
			return "", err
		}
		http.SetCookie(w, &http.Cookie{
			Name:     CSRFSeedCookie,
			Value:    seed,
			Path:     "/",
			HttpOnly: true,
			Secure:   m.secure,
			SameSite: http.SameSiteLaxMode,
		})
		binding = seed
	}
	return m.sign(binding), nil
}

// VerifyToken compares the supplied token with the one expected for the request.
func (m *CSRFManager) VerifyToken(r *http.Request, sess Session, token string) error {
	binding := m.binding(r, sess)
	if binding == "" || token == "" {
		return ErrCSRFTokenMissing
	}
	if !hmac.Equal([]byte(m.sign(binding)), []byte(token)) {
		return ErrCSRFTokenMismatch
	}
	return nil
}

func (m *CSRFManager) binding(r *http.Request, sess Session) string {
	if sess.Token != "" {
		return sess.Token
	}
	return cookieValue(r, CSRFSeedCookie)
}

func (m *CSRFManager) sign(binding string) string {
	mac := hmac.New(sha256.New, m.key)
	_, _ = mac.Write([]byte(binding))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func randomSeed() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
