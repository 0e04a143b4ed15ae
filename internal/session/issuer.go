package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenIssuer = "staffdir"

	// CookieName is the cookie that carries the signed session token.
	CookieName = "staffdir_session"
)

// ErrInvalidToken indicates the session token failed validation.
var ErrInvalidToken = errors.New("invalid session token")

// ErrNoSession indicates the request carries no session cookie or bearer token.
var ErrNoSession = errors.New("no session")

// tokenClaims is the JWT payload for a session token.
type tokenClaims struct {
	Email       string            `json:"email"`
	DisplayName string            `json:"display_name,omitempty"`
	Roles       []string          `json:"roles,omitempty"`
	UserClaims  map[string]string `json:"user_claims,omitempty"`
	Persistent  bool              `json:"persistent,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies session tokens and manages the session cookie.
type Issuer struct {
	secret        []byte
	ttl           time.Duration
	persistentTTL time.Duration
	secureCookies bool
	now           func() time.Time
}

// IssuerOption configures optional Issuer behavior.
type IssuerOption func(*Issuer)

// WithSecureCookies marks issued cookies Secure. Disabled in local development.
func WithSecureCookies(secure bool) IssuerOption {
	return func(i *Issuer) { i.secureCookies = secure }
}

// WithClock overrides the time source. Only intended for test use.
func WithClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

// NewIssuer builds an Issuer. ttl bounds a browser-session login and
// persistentTTL bounds a "remember me" login.
func NewIssuer(secret []byte, ttl, persistentTTL time.Duration, opts ...IssuerOption) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("session secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("session ttl must be greater than zero")
	}
	if persistentTTL < ttl {
		return nil, errors.New("persistent session ttl must not be shorter than session ttl")
	}
	issuer := &Issuer{
		secret:        secret,
		ttl:           ttl,
		persistentTTL: persistentTTL,
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(issuer)
	}
	return issuer, nil
}

// Sign produces a signed token for the session using HS256.
func (i *Issuer) Sign(sess Session) (string, error) {
	userID := strings.TrimSpace(sess.UserID)
	if userID == "" {
		return "", errors.New("session user id is required")
	}
	ttl := i.ttl
	if sess.Persistent {
		ttl = i.persistentTTL
	}

	now := i.now()
	claims := tokenClaims{
		Email:       sess.Email,
		DisplayName: sess.DisplayName,
		Roles:       NormalizeRoles(sess.Roles),
		UserClaims:  sess.Claims,
		Persistent:  sess.Persistent,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Parse verifies the token signature and required claims and reconstructs the
// session snapshot.
func (i *Issuer) Parse(token string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	})
	if err != nil {
		return Session{}, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return Session{}, ErrInvalidToken
	}
	if err := i.validateClaims(claims); err != nil {
		return Session{}, ErrInvalidToken
	}

	return Session{
		UserID:      claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.DisplayName,
		Roles:       NormalizeRoles(claims.Roles),
		Claims:      claims.UserClaims,
		Persistent:  claims.Persistent,
	}, nil
}

func (i *Issuer) validateClaims(claims *tokenClaims) error {
	if claims.Issuer != tokenIssuer {
		return fmt.Errorf("unexpected issuer: %s", claims.Issuer)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return errors.New("subject missing")
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return errors.New("timestamps missing")
	}
	now := i.now()
	if now.After(claims.ExpiresAt.Time) {
		return errors.New("token expired")
	}
	// Allow a small clock skew of 5 seconds when validating issued-at.
	if claims.IssuedAt.Time.After(now.Add(5 * time.Second)) {
		return errors.New("token issued in the future")
	}
	if claims.ExpiresAt.Time.Before(claims.IssuedAt.Time) {
		return errors.New("token expiry precedes issued-at")
	}
	return nil
}

// Issue signs a token for the session and sets it as the session cookie. A
// persistent session gets a cookie with an explicit MaxAge; otherwise the
// cookie lives until the browser session ends.
func (i *Issuer) Issue(w http.ResponseWriter, sess Session) error {
	token, err := i.Sign(sess)
	if err != nil {
		return err
	}
	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   i.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if sess.Persistent {
		cookie.MaxAge = int(i.persistentTTL / time.Second)
	}
	http.SetCookie(w, cookie)
	return nil
}

// Revoke expires the session cookie.
func (i *Issuer) Revoke(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   i.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// FromRequest extracts and verifies the session from the cookie or, for
// non-browser clients, from a bearer Authorization header.
func (i *Issuer) FromRequest(r *http.Request) (Session, error) {
	if cookie, err := r.Cookie(CookieName); err == nil && strings.TrimSpace(cookie.Value) != "" {
		return i.Parse(cookie.Value)
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return Session{}, ErrNoSession
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return Session{}, ErrInvalidToken
	}
	return i.Parse(strings.TrimSpace(header[len(prefix):]))
}
