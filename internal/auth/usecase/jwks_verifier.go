package usecase

import (
	"context"
	"fmt"
	"time"

	"onlyjobs-backend/internal/auth/domain"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

type jwksVerifier struct {
	jwksURL string
	cache   *jwk.Cache
}

// NewJWKSVerifier verifies asymmetric tokens against a remote key set,
// cached and refreshed in the background.
func NewJWKSVerifier(ctx context.Context, jwksURL string) (IdentityVerifier, error) {
	cache := jwk.NewCache(ctx)
	if err := cache.Register(jwksURL, jwk.WithMinRefreshInterval(5*time.Minute)); err != nil {
		return nil, fmt.Errorf("failed to register JWKS URL: %w", err)
	}

	warm, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := cache.Refresh(warm, jwksURL); err != nil {
		return nil, fmt.Errorf("failed initial JWKS fetch: %w", err)
	}

	return &jwksVerifier{jwksURL: jwksURL, cache: cache}, nil
}

func (v *jwksVerifier) Verify(ctx context.Context, token string) (*domain.Identity, error) {
	keySet, err := v.cache.Get(ctx, v.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to load JWKS: %w", err)
	}

	parsed, err := jwt.ParseString(token, jwt.WithKeySet(keySet), jwt.WithValidate(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if parsed.Subject() == "" {
		return nil, fmt.Errorf("%w: token missing subject", domain.ErrInvalidToken)
	}

	id := &domain.Identity{UserID: parsed.Subject()}
	if v, ok := parsed.Get("email"); ok {
		id.Email, _ = v.(string)
	}
	if v, ok := parsed.Get("name"); ok {
		id.Name, _ = v.(string)
	}
	return id, nil
}
