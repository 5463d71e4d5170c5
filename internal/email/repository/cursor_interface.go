package repository

import (
	"context"

	"onlyjobs-backend/internal/email/domain"
)

// CursorRepository tracks per-user fetch watermarks.
type CursorRepository interface {
	// Get returns a zero cursor for a user that was never fetched.
	Get(ctx context.Context, userID string) (*domain.FetchCursor, error)
	// Advance sets the watermark to lastFetched unless the stored one is newer.
	Advance(ctx context.Context, userID string, lastFetched int64) error
}
