package shared

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRFBoundToSessionToken(t *testing.T) {
	m := NewCSRFManager("secret", false)
	sess := Session{Token: "tok", Username: "u", Role: RoleAdmin}
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)

	token, err := m.EnsureToken(httptest.NewRecorder(), req, sess)
	require.NoError(t, err)
	require.NoError(t, m.VerifyToken(req, sess, token))

	other := Session{Token: "other", Username: "u", Role: RoleAdmin}
	assert.ErrorIs(t, m.VerifyToken(req, other, token), ErrCSRFTokenMismatch)
	assert.ErrorIs(t, m.VerifyToken(req, sess, ""), ErrCSRFTokenMissing)
}

func TestCSRFSeedCookieBeforeLogin(t *testing.T) {
	m := NewCSRFManager("secret", false)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/login", nil)

	token, err := m.EnsureToken(rec, req, Session{})
	require.NoError(t, err)

	var seed *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == CSRFSeedCookie {
			seed = c
		}
	}
	require.NotNil(t, seed)

	post := httptest.NewRequest(http.MethodPost, "/login", nil)
	assert.ErrorIs(t, m.VerifyToken(post, Session{}, token), ErrCSRFTokenMissing)
	post.AddCookie(seed)
	assert.NoError(t, m.VerifyToken(post, Session{}, token))
}

func TestFlashRoundTrip(t *testing.T) {
	rec := httptest.NewRecorder()
	SetFlash(rec, FlashMessage{Kind: FlashSuccess, Message: "Brand berhasil ditambahkan"})

	req := httptest.NewRequest(http.MethodGet, "/dashboard/brands", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	msg := PopFlash(httptest.NewRecorder(), req)
	require.NotNil(t, msg)
	assert.Equal(t, FlashSuccess, msg.Kind)
	assert.Equal(t, "Brand berhasil ditambahkan", msg.Message)

	assert.Nil(t, PopFlash(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)))
}
