package admin

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldtlabs/steward/model"
)

func newTestSessions(t *testing.T) *Sessions {
	t.Helper()
	s, err := NewSessions([]byte("test-secret"), time.Hour, false)
	require.NoError(t, err)
	return s
}

func cookieRequest(rec *httptest.ResponseRecorder) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		r.AddCookie(c)
	}
	return r
}

func TestSessionRoundTrip(t *testing.T) {
	s := newTestSessions(t)

	rec := httptest.NewRecorder()
	in := Session{
		UserID:  "u1",
		CSRF:    "tok",
		Flashes: []model.Flash{{Category: model.FlashSuccess, Message: "hi"}},
	}
	require.NoError(t, s.Issue(rec, in))

	out, err := s.Decode(cookieRequest(rec))
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "u1", out.UserID)
	assert.Equal(t, "tok", out.CSRF)
	require.Len(t, out.Flashes, 1)
	assert.Equal(t, "hi", out.Flashes[0].Message)
}

func TestSessionMissingCookieIsAnonymous(t *testing.T) {
	s := newTestSessions(t)
	out, err := s.Decode(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestSessionTamperedTokenIsAnonymous(t *testing.T) {
	s := newTestSessions(t)
	rec := httptest.NewRecorder()
	require.NoError(t, s.Issue(rec, Session{UserID: "u1", CSRF: "tok"}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	c := rec.Result().Cookies()[0]
	c.Value += "x"
	r.AddCookie(c)

	out, err := s.Decode(r)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestSessionWrongKeyIsAnonymous(t *testing.T) {
	a := newTestSessions(t)
	b, err := NewSessions([]byte("other-secret"), time.Hour, false)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, a.Issue(rec, Session{UserID: "u1"}))

	out, err := b.Decode(cookieRequest(rec))
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestSessionExpiredIsAnonymous(t *testing.T) {
	s, err := NewSessions([]byte("test-secret"), time.Nanosecond, false)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, s.Issue(rec, Session{UserID: "u1"}))
	time.Sleep(10 * time.Millisecond)

	out, err := s.Decode(cookieRequest(rec))
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestNewSessionsRejectsEmptySecret(t *testing.T) {
	_, err := NewSessions(nil, time.Hour, false)
	var cfgErr *model.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestNewCSRFTokenIsRandom(t *testing.T) {
	a, b := NewCSRFToken(), NewCSRFToken()
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestSafeNext(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/admin/resources/posts/", "/admin/resources/posts/"},
		{"", "/admin/"},
		{"https://evil.example/", "/admin/"},
		{"//evil.example/", "/admin/"},
		{"/ok?page=2", "/ok?page=2"},
		{"/bad\r\nSet-Cookie: x", "/admin/"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, safeNext(tc.in, "/admin/"), "next %q", tc.in)
	}
}
