package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"onlyjobs-backend/internal/credential/domain"
	"onlyjobs-backend/pkg/utils/crypto"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type firestoreStagingRepository struct {
	client     *firestore.Client
	collection string
	sealer     *crypto.Sealer
}

func NewFirestoreStagingRepository(client *firestore.Client, collection string, sealer *crypto.Sealer) StagingRepository {
	return &firestoreStagingRepository{
		client:     client,
		collection: collection,
		sealer:     sealer,
	}
}

func (r *firestoreStagingRepository) Stage(ctx context.Context, staged *domain.StagedCredential) error {
	sealed := *staged
	if err := sealFields(r.sealer, &sealed.AccessToken, &sealed.RefreshToken, &sealed.ClientSecret); err != nil {
		return err
	}
	// Create fails if the handle already exists
	if _, err := r.client.Collection(r.collection).Doc(staged.Handle).Create(ctx, sealed); err != nil {
		return fmt.Errorf("failed to stage credential: %w", err)
	}
	return nil
}

func (r *firestoreStagingRepository) Get(ctx context.Context, handle string) (*domain.StagedCredential, error) {
	snap, err := r.client.Collection(r.collection).Doc(handle).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read staged credential: %w", err)
	}

	var staged domain.StagedCredential
	if err := snap.DataTo(&staged); err != nil {
		return nil, fmt.Errorf("failed to decode staged credential: %w", err)
	}
	staged.Handle = handle

	if err := openFields(r.sealer, &staged.AccessToken, &staged.RefreshToken, &staged.ClientSecret); err != nil {
		return nil, err
	}
	return &staged, nil
}

func (r *firestoreStagingRepository) Delete(ctx context.Context, handle string) error {
	if _, err := r.client.Collection(r.collection).Doc(handle).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete staged credential: %w", err)
	}
	return nil
}

func (r *firestoreStagingRepository) PurgeCreatedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	docs := r.client.Collection(r.collection).Where("created_at", "<", cutoff).Documents(ctx)
	defer docs.Stop()

	purged := 0
	for {
		snap, err := docs.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return purged, fmt.Errorf("failed to query staged credentials: %w", err)
		}
		if _, err := snap.Ref.Delete(ctx); err != nil {
			return purged, fmt.Errorf("failed to purge staged credential: %w", err)
		}
		purged++
	}
	return purged, nil
}
