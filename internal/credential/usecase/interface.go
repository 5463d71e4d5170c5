package usecase

import (
	"context"

	"onlyjobs-backend/internal/credential/domain"

	"golang.org/x/oauth2"
)

// OAuthProvider is the authorization-code flow of the mail provider.
type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*domain.StagedCredential, error)
	Refresh(ctx context.Context, cred *domain.UserCredential) (*oauth2.Token, error)
}

// CredentialUsecase manages the lifecycle of users' mailbox grants.
type CredentialUsecase interface {
	// AuthURL returns the consent URL carrying a signed state for userID.
	AuthURL(userID string) (string, error)
	// Stage checks state, exchanges code and parks the tokens under a
	// one-time handle.
	Stage(ctx context.Context, code, state string) (string, error)
	// Finalize attributes the staged tokens behind handle to userID.
	Finalize(ctx context.Context, userID, handle string) error
	Connected(ctx context.Context, userID string) (bool, error)
	Disconnect(ctx context.Context, userID string) error

	Get(ctx context.Context, userID string) (*domain.UserCredential, error)
	Save(ctx context.Context, cred *domain.UserCredential) error
	Refresh(ctx context.Context, cred *domain.UserCredential) (*domain.UserCredential, error)
	ListUserIDs(ctx context.Context) ([]string, error)
}
