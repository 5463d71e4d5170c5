package usecase

import (
	"crypto/rand"
	"fmt"
	"time"

	"onlyjobs-backend/internal/credential/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// stateSigner issues and checks the OAuth state parameter as a short-lived
// HS256 token, so callbacks need no server-side session.
type stateSigner struct {
	secret []byte
	ttl    time.Duration
}

func newStateSigner(secret []byte, ttl time.Duration) *stateSigner {
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			panic(fmt.Sprintf("failed to generate state secret: %v", err))
		}
	}
	return &stateSigner{secret: secret, ttl: ttl}
}

func (s *stateSigner) issue(userID string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign oauth state: %w", err)
	}
	return signed, nil
}

// verify returns the user the state was issued for.
func (s *stateSigner) verify(state string, now time.Time) (string, error) {
	if state == "" {
		return "", fmt.Errorf("%w: missing", domain.ErrInvalidState)
	}
	claims := &jwt.RegisteredClaims{}
	keyFunc := func(*jwt.Token) (interface{}, error) { return s.secret, nil }
	_, err := jwt.ParseWithClaims(state, claims, keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidState, err)
	}
	return claims.Subject, nil
}
