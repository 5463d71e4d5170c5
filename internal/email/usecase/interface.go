package usecase

import (
	"context"

	creddomain "onlyjobs-backend/internal/credential/domain"
	"onlyjobs-backend/internal/email/domain"
)

// FetchUsecase pulls new mail from connected mailboxes onto the queue.
type FetchUsecase interface {
	// Fetch runs one pass for userID and returns how many messages were published.
	Fetch(ctx context.Context, userID string, mode domain.FetchMode) (int, error)
	// FetchAll runs Fetch for every connected user, or only onlyUserID when set.
	// Per-user failures are logged and counted, never returned.
	FetchAll(ctx context.Context, mode domain.FetchMode, onlyUserID string) (*domain.FetchSummary, error)
}

// CredentialSource is the credential store as seen by the fetch engine.
type CredentialSource interface {
	Get(ctx context.Context, userID string) (*creddomain.UserCredential, error)
	Save(ctx context.Context, cred *creddomain.UserCredential) error
	Refresh(ctx context.Context, cred *creddomain.UserCredential) (*creddomain.UserCredential, error)
	ListUserIDs(ctx context.Context) ([]string, error)
}
