package repository

import (
	"context"
	"fmt"
	"time"

	"onlyjobs-backend/internal/email/domain"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type firestoreCursorRepository struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreCursorRepository(client *firestore.Client, collection string) CursorRepository {
	return &firestoreCursorRepository{
		client:     client,
		collection: collection,
	}
}

func (r *firestoreCursorRepository) Get(ctx context.Context, userID string) (*domain.FetchCursor, error) {
	snap, err := r.client.Collection(r.collection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return &domain.FetchCursor{UserID: userID}, nil
		}
		return nil, fmt.Errorf("failed to read fetch cursor: %w", err)
	}

	var cursor domain.FetchCursor
	if err := snap.DataTo(&cursor); err != nil {
		return nil, fmt.Errorf("failed to decode fetch cursor: %w", err)
	}
	cursor.UserID = userID
	return &cursor, nil
}

// Advance runs in a transaction so concurrent writers never move the
// watermark backwards.
func (r *firestoreCursorRepository) Advance(ctx context.Context, userID string, lastFetched int64) error {
	ref := r.client.Collection(r.collection).Doc(userID)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		if err == nil {
			var current domain.FetchCursor
			if err := snap.DataTo(&current); err != nil {
				return err
			}
			if current.LastFetchedAt >= lastFetched {
				return nil
			}
		}
		return tx.Set(ref, domain.FetchCursor{
			UserID:        userID,
			LastFetchedAt: lastFetched,
			UpdatedAt:     time.Now().UTC(),
		})
	})
	if err != nil {
		return fmt.Errorf("failed to advance fetch cursor: %w", err)
	}
	return nil
}
