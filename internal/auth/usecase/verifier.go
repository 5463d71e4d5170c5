package usecase

import (
	"context"
	"fmt"

	"onlyjobs-backend/internal/auth/domain"

	"firebase.google.com/go/v4/auth"
)

// IdentityVerifier turns a bearer token into a verified Identity.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*domain.Identity, error)
}

// FirebaseTokenVerifier is the part of the Firebase auth client we use.
type FirebaseTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type firebaseVerifier struct {
	client FirebaseTokenVerifier
}

// NewFirebaseVerifier verifies Firebase ID tokens issued to the web client.
func NewFirebaseVerifier(client FirebaseTokenVerifier) IdentityVerifier {
	return &firebaseVerifier{client: client}
}

func (v *firebaseVerifier) Verify(ctx context.Context, token string) (*domain.Identity, error) {
	tok, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if tok.UID == "" {
		return nil, fmt.Errorf("%w: token missing uid", domain.ErrInvalidToken)
	}

	id := &domain.Identity{UserID: tok.UID}
	if email, ok := tok.Claims["email"].(string); ok {
		id.Email = email
	}
	if name, ok := tok.Claims["name"].(string); ok {
		id.Name = name
	}
	return id, nil
}
