package usecase

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"onlyjobs-backend/internal/credential/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type memCredentials struct {
	mu    sync.Mutex
	items map[string]domain.UserCredential
	puts  int
}

func newMemCredentials() *memCredentials {
	return &memCredentials{items: map[string]domain.UserCredential{}}
}

func (m *memCredentials) Get(_ context.Context, userID string) (*domain.UserCredential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[userID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *memCredentials) Put(_ context.Context, cred *domain.UserCredential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[cred.UserID] = *cred
	m.puts++
	return nil
}

func (m *memCredentials) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, userID)
	return nil
}

func (m *memCredentials) ListUserIDs(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.items))
	for id := range m.items {
		ids = append(ids, id)
	}
	return ids, nil
}

type memStaging struct {
	items map[string]domain.StagedCredential
}

func newMemStaging() *memStaging {
	return &memStaging{items: map[string]domain.StagedCredential{}}
}

func (m *memStaging) Stage(_ context.Context, s *domain.StagedCredential) error {
	m.items[s.Handle] = *s
	return nil
}

func (m *memStaging) Get(_ context.Context, handle string) (*domain.StagedCredential, error) {
	s, ok := m.items[handle]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memStaging) Delete(_ context.Context, handle string) error {
	delete(m.items, handle)
	return nil
}

func (m *memStaging) PurgeCreatedBefore(_ context.Context, cutoff time.Time) (int, error) {
	n := 0
	for h, s := range m.items {
		if s.CreatedAt.Before(cutoff) {
			delete(m.items, h)
			n++
		}
	}
	return n, nil
}

type fakeOAuth struct {
	exchangeRefresh string
	refreshErr      error
	refreshed       *oauth2.Token
}

func (f *fakeOAuth) AuthCodeURL(state string) string {
	return "https://accounts.example/auth?state=" + state
}

func (f *fakeOAuth) Exchange(_ context.Context, code string) (*domain.StagedCredential, error) {
	if code == "bad" {
		return nil, errors.New("invalid_grant")
	}
	return &domain.StagedCredential{
		AccessToken:  "ya29.access",
		RefreshToken: f.exchangeRefresh,
		ClientID:     "client",
		Expiry:       time.Now().Add(time.Hour),
	}, nil
}

func (f *fakeOAuth) Refresh(context.Context, *domain.UserCredential) (*oauth2.Token, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.refreshed, nil
}

type fixture struct {
	uc    *credentialUsecase
	creds *memCredentials
	stage *memStaging
	oauth *fakeOAuth
	clock time.Time
}

func newFixture() *fixture {
	f := &fixture{
		creds: newMemCredentials(),
		stage: newMemStaging(),
		oauth: &fakeOAuth{exchangeRefresh: "1//refresh"},
		clock: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.uc = NewCredentialUsecase(f.creds, f.stage, f.oauth, Options{StagingTTL: 30 * time.Minute}, zap.NewNop()).(*credentialUsecase)
	f.uc.now = func() time.Time { return f.clock }
	return f
}

// validState issues a state the way the consent URL does at the current
// fixture time.
func (f *fixture) validState(t *testing.T) string {
	t.Helper()
	state, err := f.uc.state.issue("user-1", f.clock)
	require.NoError(t, err)
	return state
}

func TestAuthURLCarriesSignedState(t *testing.T) {
	f := newFixture()

	authURL, err := f.uc.AuthURL("user-1")
	require.NoError(t, err)
	u, err := url.Parse(authURL)
	require.NoError(t, err)

	subject, err := f.uc.state.verify(u.Query().Get("state"), f.clock)
	require.NoError(t, err)
	assert.Equal(t, "user-1", subject)
}

func TestStageRejectsInvalidState(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	other := newStateSigner([]byte("another-secret"), time.Minute)
	forged, err := other.issue("user-1", f.clock)
	require.NoError(t, err)
	stale := f.validState(t)

	cases := map[string]string{
		"missing":  "",
		"garbage":  "not-a-token",
		"forged":   forged,
		"tampered": f.validState(t) + "x",
	}
	for name, state := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.uc.Stage(ctx, "code", state)
			assert.ErrorIs(t, err, domain.ErrInvalidState)
		})
	}

	f.clock = f.clock.Add(31 * time.Minute)
	_, err = f.uc.Stage(ctx, "code", stale)
	assert.ErrorIs(t, err, domain.ErrInvalidState, "state expires with the staging window")
	assert.Empty(t, f.stage.items)
}

func TestStageAndFinalize(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	handle, err := f.uc.Stage(ctx, "code-123", f.validState(t))
	require.NoError(t, err)
	require.NotEmpty(t, handle)

	staged := f.stage.items[handle]
	assert.Equal(t, f.clock.Add(30*time.Minute), staged.ExpiresAt)

	f.clock = f.clock.Add(10 * time.Minute)
	require.NoError(t, f.uc.Finalize(ctx, "user-1", handle))

	cred, err := f.uc.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "1//refresh", cred.RefreshToken)
	assert.Equal(t, "user-1", cred.UserID)
	assert.Empty(t, f.stage.items, "staged copy must be deleted after finalize")

	connected, err := f.uc.Connected(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, connected)
}

func TestStageRequiresRefreshToken(t *testing.T) {
	f := newFixture()
	f.oauth.exchangeRefresh = ""

	_, err := f.uc.Stage(context.Background(), "code", f.validState(t))
	assert.ErrorIs(t, err, domain.ErrCredentialInvalid)
	assert.Empty(t, f.stage.items)
}

func TestStageExchangeFailure(t *testing.T) {
	f := newFixture()
	_, err := f.uc.Stage(context.Background(), "bad", f.validState(t))
	assert.Error(t, err)
	assert.Empty(t, f.stage.items)
}

func TestFinalizeUnknownHandle(t *testing.T) {
	f := newFixture()
	err := f.uc.Finalize(context.Background(), "user-1", "nope")
	assert.ErrorIs(t, err, domain.ErrStagedNotFound)
}

func TestFinalizeExpiredHandleIsPurged(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	handle, err := f.uc.Stage(ctx, "code", f.validState(t))
	require.NoError(t, err)

	f.clock = f.clock.Add(31 * time.Minute)
	err = f.uc.Finalize(ctx, "user-1", handle)

	assert.ErrorIs(t, err, domain.ErrStagedExpired)
	assert.Empty(t, f.stage.items)
	_, err = f.uc.Get(ctx, "user-1")
	assert.ErrorIs(t, err, domain.ErrCredentialNotFound)
}

func TestDisconnectSweepsStaleStaging(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	old, err := f.uc.Stage(ctx, "old", f.validState(t))
	require.NoError(t, err)
	f.clock = f.clock.Add(2 * time.Hour)
	fresh, err := f.uc.Stage(ctx, "fresh", f.validState(t))
	require.NoError(t, err)

	require.NoError(t, f.creds.Put(ctx, &domain.UserCredential{UserID: "user-1", RefreshToken: "r"}))
	require.NoError(t, f.uc.Disconnect(ctx, "user-1"))

	connected, err := f.uc.Connected(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, connected)
	assert.NotContains(t, f.stage.items, old)
	assert.Contains(t, f.stage.items, fresh)
}

func TestRefreshWritesBack(t *testing.T) {
	f := newFixture()
	f.oauth.refreshed = &oauth2.Token{AccessToken: "ya29.new", Expiry: f.clock.Add(time.Hour)}

	cred := &domain.UserCredential{UserID: "user-1", AccessToken: "ya29.old", RefreshToken: "1//keep"}
	got, err := f.uc.Refresh(context.Background(), cred)

	require.NoError(t, err)
	assert.Equal(t, "ya29.new", got.AccessToken)
	assert.Equal(t, "1//keep", got.RefreshToken)
	assert.Equal(t, f.clock, got.LastRefreshedAt)
	assert.Equal(t, "ya29.new", f.creds.items["user-1"].AccessToken)
}

func TestRefreshRevokedCredential(t *testing.T) {
	f := newFixture()
	_, err := f.uc.Refresh(context.Background(), &domain.UserCredential{UserID: "user-1"})

	assert.ErrorIs(t, err, domain.ErrCredentialInvalid)
	assert.Zero(t, f.creds.puts)
}

func TestRefreshRejectedLeavesStorageUntouched(t *testing.T) {
	f := newFixture()
	f.oauth.refreshErr = domain.ErrCredentialInvalid

	_, err := f.uc.Refresh(context.Background(), &domain.UserCredential{UserID: "user-1", RefreshToken: "r"})

	assert.ErrorIs(t, err, domain.ErrCredentialInvalid)
	assert.Zero(t, f.creds.puts)
}
