// Package auth validates session tokens and supplies credentials for calls
// to the hosted data store.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the session token claims. Subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Verifier validates bearer tokens issued by the data store's auth service.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

// NewVerifier returns a verifier for HS256 tokens signed with secret. With an
// empty secret signatures are not checked; only expiry and subject are, and
// unsigned (alg "none") tokens are still refused.
func NewVerifier(secret string, now func() time.Time) *Verifier {
	if now == nil {
		now = time.Now
	}
	return &Verifier{secret: []byte(secret), now: now}
}

// Verify parses token and returns the session it represents.
func (v *Verifier) Verify(token string) (Session, error) {
	claims, err := v.parse(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Session{}, ErrSessionExpired
		}
		return Session{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	if claims.Subject == "" {
		return Session{}, fmt.Errorf("%w: token has no subject", ErrUnauthenticated)
	}

	s := Session{UserID: claims.Subject, Token: token, Email: claims.Email}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

func (v *Verifier) parse(token string) (*Claims, error) {
	claims := &Claims{}
	if len(v.secret) == 0 {
		parser := jwt.NewParser(jwt.WithoutClaimsValidation())
		tok, _, err := parser.ParseUnverified(token, claims)
		if err != nil {
			return nil, err
		}
		if alg, _ := tok.Header["alg"].(string); alg == "" || strings.EqualFold(alg, jwt.SigningMethodNone.Alg()) {
			return nil, fmt.Errorf("%w: alg %q", jwt.ErrTokenUnverifiable, alg)
		}
		if claims.ExpiresAt != nil && !v.now().Before(claims.ExpiresAt.Time) {
			return nil, jwt.ErrTokenExpired
		}
		return claims, nil
	}

	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(v.now))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// BearerToken extracts the token from an Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(h[len(prefix):])
	return token, token != ""
}
