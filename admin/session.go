package admin

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/veldtlabs/steward/model"
)

// CookieName is the session cookie.
const CookieName = "steward_session"

// Session is the per-visitor state carried in the signed cookie: who is
// logged in, the CSRF secret bound to them, and any pending flash messages.
type Session struct {
	UserID  string
	CSRF    string
	Flashes []model.Flash
}

type sessionClaims struct {
	CSRF    string        `json:"csrf"`
	Flashes []model.Flash `json:"flashes,omitempty"`
	jwt.RegisteredClaims
}

// Sessions encodes and decodes the session cookie as an HS256 JWT.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	secure bool
}

// NewSessions creates a codec. The secret must be non-empty; ttl of zero
// defaults to 14 days.
func NewSessions(secret []byte, ttl time.Duration, secure bool) (*Sessions, error) {
	if len(secret) == 0 {
		return nil, model.NewConfigError("session", "empty signing secret")
	}
	if ttl <= 0 {
		ttl = 14 * 24 * time.Hour
	}
	return &Sessions{secret: secret, ttl: ttl, secure: secure}, nil
}

// Issue signs the session and sets the cookie.
func (s *Sessions) Issue(w http.ResponseWriter, sess Session) error {
	now := time.Now()
	claims := sessionClaims{
		CSRF:    sess.CSRF,
		Flashes: sess.Flashes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sess.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return fmt.Errorf("admin: sign session: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Decode reads and verifies the session cookie. A missing, expired, or
// tampered cookie yields (nil, nil): the visitor is simply anonymous.
func (s *Sessions) Decode(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, nil
	}

	var claims sessionClaims
	token, err := jwt.ParseWithClaims(cookie.Value, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("admin: unexpected signing method %s", t.Method.Alg())
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, nil
	}
	return &Session{
		UserID:  claims.Subject,
		CSRF:    claims.CSRF,
		Flashes: claims.Flashes,
	}, nil
}

// Clear expires the cookie.
func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// NewCSRFToken returns a fresh random token, hex encoded.
func NewCSRFToken() string {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
