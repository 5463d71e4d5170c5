package repository

import (
	"context"
	"errors"
	"fmt"

	"onlyjobs-backend/internal/credential/domain"
	"onlyjobs-backend/pkg/utils/crypto"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// firestoreCredentialRepository keeps credentials at <collection>/<user_id>
// with token fields sealed at rest.
type firestoreCredentialRepository struct {
	client     *firestore.Client
	collection string
	sealer     *crypto.Sealer
}

func NewFirestoreCredentialRepository(client *firestore.Client, collection string, sealer *crypto.Sealer) CredentialRepository {
	return &firestoreCredentialRepository{
		client:     client,
		collection: collection,
		sealer:     sealer,
	}
}

func (r *firestoreCredentialRepository) Get(ctx context.Context, userID string) (*domain.UserCredential, error) {
	snap, err := r.client.Collection(r.collection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read credential: %w", err)
	}

	var cred domain.UserCredential
	if err := snap.DataTo(&cred); err != nil {
		return nil, fmt.Errorf("failed to decode credential: %w", err)
	}
	cred.UserID = userID

	if err := openFields(r.sealer, &cred.AccessToken, &cred.RefreshToken, &cred.ClientSecret); err != nil {
		return nil, err
	}
	return &cred, nil
}

func (r *firestoreCredentialRepository) Put(ctx context.Context, cred *domain.UserCredential) error {
	sealed := *cred
	if err := sealFields(r.sealer, &sealed.AccessToken, &sealed.RefreshToken, &sealed.ClientSecret); err != nil {
		return err
	}
	if _, err := r.client.Collection(r.collection).Doc(cred.UserID).Set(ctx, sealed); err != nil {
		return fmt.Errorf("failed to write credential: %w", err)
	}
	return nil
}

func (r *firestoreCredentialRepository) Delete(ctx context.Context, userID string) error {
	if _, err := r.client.Collection(r.collection).Doc(userID).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}

func (r *firestoreCredentialRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	refs := r.client.Collection(r.collection).DocumentRefs(ctx)
	var ids []string
	for {
		ref, err := refs.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list credentials: %w", err)
		}
		ids = append(ids, ref.ID)
	}
	return ids, nil
}

func sealFields(s *crypto.Sealer, fields ...*string) error {
	for _, f := range fields {
		v, err := s.Seal(*f)
		if err != nil {
			return fmt.Errorf("failed to seal token: %w", err)
		}
		*f = v
	}
	return nil
}

func openFields(s *crypto.Sealer, fields ...*string) error {
	for _, f := range fields {
		v, err := s.Open(*f)
		if err != nil {
			return fmt.Errorf("failed to open token: %w", err)
		}
		*f = v
	}
	return nil
}
