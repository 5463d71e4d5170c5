package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"onlyjobs-backend/internal/credential/domain"
	"onlyjobs-backend/internal/credential/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Options struct {
	// StagingTTL bounds how long exchanged tokens wait to be claimed.
	StagingTTL time.Duration
	// SweepAge is the age past which staged entries are purged on disconnect.
	SweepAge time.Duration
	// StateSecret signs the OAuth state. A random per-process secret is
	// used when empty.
	StateSecret []byte
}

type credentialUsecase struct {
	credentials repository.CredentialRepository
	staging     repository.StagingRepository
	oauth       OAuthProvider
	state       *stateSigner
	opts        Options
	now         func() time.Time
	log         *zap.Logger
}

func NewCredentialUsecase(
	credentials repository.CredentialRepository,
	staging repository.StagingRepository,
	oauth OAuthProvider,
	opts Options,
	log *zap.Logger,
) CredentialUsecase {
	if opts.StagingTTL <= 0 {
		opts.StagingTTL = 30 * time.Minute
	}
	if opts.SweepAge <= 0 {
		opts.SweepAge = time.Hour
	}
	log = log.Named("credential")
	if len(opts.StateSecret) == 0 {
		log.Warn("OAUTH_STATE_SECRET not set, consent links only verify on this instance")
	}
	return &credentialUsecase{
		credentials: credentials,
		staging:     staging,
		oauth:       oauth,
		state:       newStateSigner(opts.StateSecret, opts.StagingTTL),
		opts:        opts,
		now:         time.Now,
		log:         log,
	}
}

func (u *credentialUsecase) AuthURL(userID string) (string, error) {
	state, err := u.state.issue(userID, u.now())
	if err != nil {
		return "", err
	}
	return u.oauth.AuthCodeURL(state), nil
}

func (u *credentialUsecase) Stage(ctx context.Context, code, state string) (string, error) {
	if code == "" {
		return "", fmt.Errorf("authorization code is required")
	}
	if _, err := u.state.verify(state, u.now()); err != nil {
		return "", err
	}

	staged, err := u.oauth.Exchange(ctx, code)
	if err != nil {
		return "", err
	}
	if staged.RefreshToken == "" {
		return "", fmt.Errorf("%w: provider issued no refresh token", domain.ErrCredentialInvalid)
	}

	now := u.now()
	staged.Handle = uuid.NewString()
	staged.CreatedAt = now
	staged.ExpiresAt = now.Add(u.opts.StagingTTL)

	if err := u.staging.Stage(ctx, staged); err != nil {
		return "", err
	}
	u.log.Info("staged credential", zap.Time("expires_at", staged.ExpiresAt))
	return staged.Handle, nil
}

func (u *credentialUsecase) Finalize(ctx context.Context, userID, handle string) error {
	staged, err := u.staging.Get(ctx, handle)
	if err != nil {
		return err
	}
	if staged == nil {
		return domain.ErrStagedNotFound
	}

	now := u.now()
	if staged.Expired(now) {
		if err := u.staging.Delete(ctx, handle); err != nil {
			u.log.Warn("failed to purge expired staged credential", zap.Error(err))
		}
		return domain.ErrStagedExpired
	}

	if err := u.credentials.Put(ctx, staged.Attribute(userID, now)); err != nil {
		return err
	}
	if err := u.staging.Delete(ctx, handle); err != nil {
		// the handle still expires on its own
		u.log.Warn("failed to delete finalized staged credential", zap.String("user_id", userID), zap.Error(err))
	}

	u.log.Info("credential finalized", zap.String("user_id", userID))
	return nil
}

func (u *credentialUsecase) Connected(ctx context.Context, userID string) (bool, error) {
	cred, err := u.credentials.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return cred != nil, nil
}

func (u *credentialUsecase) Disconnect(ctx context.Context, userID string) error {
	if err := u.credentials.Delete(ctx, userID); err != nil {
		return err
	}

	purged, err := u.staging.PurgeCreatedBefore(ctx, u.now().Add(-u.opts.SweepAge))
	if err != nil {
		u.log.Warn("staging sweep failed", zap.Error(err))
	} else if purged > 0 {
		u.log.Info("swept stale staged credentials", zap.Int("count", purged))
	}

	u.log.Info("credential disconnected", zap.String("user_id", userID))
	return nil
}

func (u *credentialUsecase) Get(ctx context.Context, userID string) (*domain.UserCredential, error) {
	cred, err := u.credentials.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, domain.ErrCredentialNotFound
	}
	return cred, nil
}

func (u *credentialUsecase) Save(ctx context.Context, cred *domain.UserCredential) error {
	return u.credentials.Put(ctx, cred)
}

// Refresh obtains a fresh access token and writes it back. A revoked or
// rejected grant yields ErrCredentialInvalid and leaves storage untouched.
func (u *credentialUsecase) Refresh(ctx context.Context, cred *domain.UserCredential) (*domain.UserCredential, error) {
	if cred.Revoked() {
		return nil, fmt.Errorf("%w: no refresh token stored", domain.ErrCredentialInvalid)
	}

	tok, err := u.oauth.Refresh(ctx, cred)
	if err != nil {
		if errors.Is(err, domain.ErrCredentialInvalid) {
			u.log.Warn("refresh token rejected", zap.String("user_id", cred.UserID), zap.Error(err))
		}
		return nil, err
	}

	refreshed := *cred
	refreshed.ApplyToken(tok, u.now())
	if err := u.credentials.Put(ctx, &refreshed); err != nil {
		return nil, err
	}
	return &refreshed, nil
}

func (u *credentialUsecase) ListUserIDs(ctx context.Context) ([]string, error) {
	return u.credentials.ListUserIDs(ctx)
}
