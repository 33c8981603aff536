package seed

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultSigningKey = "seed"

// tokenSource mints and caches one session token per user.
type tokenSource struct {
	secret []byte
	now    func() time.Time

	mu     sync.Mutex
	tokens map[string]string
}

func newTokenSource(secret string) *tokenSource {
	if secret == "" {
		secret = defaultSigningKey
	}
	return &tokenSource{secret: []byte(secret), now: time.Now, tokens: make(map[string]string)}
}

func (s *tokenSource) Token(userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok, ok := s.tokens[userID]; ok {
		return tok, nil
	}
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	s.tokens[userID] = tok
	return tok, nil
}
