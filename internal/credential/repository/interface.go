package repository

import (
	"context"
	"time"

	"onlyjobs-backend/internal/credential/domain"
)

// CredentialRepository stores one permanent credential per user.
type CredentialRepository interface {
	// Get returns nil, nil when the user has no credential.
	Get(ctx context.Context, userID string) (*domain.UserCredential, error)
	Put(ctx context.Context, cred *domain.UserCredential) error
	Delete(ctx context.Context, userID string) error
	ListUserIDs(ctx context.Context) ([]string, error)
}

// StagingRepository stores exchanged tokens that are not yet attributed
// to a user.
type StagingRepository interface {
	Stage(ctx context.Context, staged *domain.StagedCredential) error
	// Get returns nil, nil for an unknown handle.
	Get(ctx context.Context, handle string) (*domain.StagedCredential, error)
	Delete(ctx context.Context, handle string) error
	// PurgeCreatedBefore deletes staged entries created before cutoff and
	// returns how many were removed.
	PurgeCreatedBefore(ctx context.Context, cutoff time.Time) (int, error)
}
