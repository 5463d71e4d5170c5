package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"onlyjobs-backend/internal/application/domain"
	emaildomain "onlyjobs-backend/internal/email/domain"
	"onlyjobs-backend/pkg/queue"
	"onlyjobs-backend/pkg/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClassifier struct {
	output string
	err    error
	calls  int
	inputs []string
}

func (f *fakeClassifier) Classify(_ context.Context, text string) (string, error) {
	f.calls++
	f.inputs = append(f.inputs, text)
	return f.output, f.err
}

type memorySink struct {
	mu       sync.Mutex
	rows     map[string]domain.JobApplication
	writes   int
	failures int
}

func newMemorySink() *memorySink {
	return &memorySink{rows: map[string]domain.JobApplication{}}
}

func (s *memorySink) write(app *domain.JobApplication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.failures != 0 {
		if s.failures > 0 {
			s.failures--
		}
		return errors.New("backend unavailable")
	}
	s.rows[app.UserID+"/"+app.MessageID] = *app
	return nil
}

func (s *memorySink) Insert(_ context.Context, app *domain.JobApplication) error {
	return s.write(app)
}

func (s *memorySink) Upsert(_ context.Context, app *domain.JobApplication) (bool, error) {
	s.mu.Lock()
	prev, existed := s.rows[app.UserID+"/"+app.MessageID]
	s.mu.Unlock()
	if err := s.write(app); err != nil {
		return false, err
	}
	return !existed || prev.Status != app.Status, nil
}

type fakeNotifier struct {
	notified []string
	err      error
}

func (f *fakeNotifier) NotifyApplication(_ context.Context, app *domain.JobApplication) error {
	f.notified = append(f.notified, app.MessageID)
	return f.err
}

type fakePublisher struct {
	messages []*queue.Message
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, msg *queue.Message) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.messages = append(f.messages, msg)
	return msg.ID, nil
}

func (f *fakePublisher) Close() error { return nil }

const acmeOutput = "Company: Acme Corp\nJob Title: Backend Engineer\nLocation: Berlin\nStatus: Interview scheduled"

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type intakeFixture struct {
	classifier *fakeClassifier
	analytics  *memorySink
	documents  *memorySink
	notifier   *fakeNotifier
	ready      *fakePublisher
	uc         *intakeUsecase
}

func newIntakeFixture(output string) *intakeFixture {
	f := &intakeFixture{
		classifier: &fakeClassifier{output: output},
		analytics:  newMemorySink(),
		documents:  newMemorySink(),
		notifier:   &fakeNotifier{},
		ready:      &fakePublisher{},
	}
	coordinator := NewCoordinator(f.analytics, f.documents, fastPolicy(), zap.NewNop())
	f.uc = NewIntakeUsecase(f.classifier, coordinator, f.notifier, f.ready, zap.NewNop()).(*intakeUsecase)
	f.uc.now = func() time.Time { return fixedNow }
	return f
}

func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
}

func payload(t *testing.T, env *emaildomain.QueueEnvelope) []byte {
	t.Helper()
	data, err := json.Marshal(env)
	require.NoError(t, err)
	return data
}

func TestHandleBuildsRecord(t *testing.T) {
	f := newIntakeFixture(acmeOutput)
	env := emaildomain.NewQueueEnvelope("u1", "m1", "Thanks for applying to Acme", 1_700_000_000_000)

	app, err := f.uc.Handle(context.Background(), env)

	require.NoError(t, err)
	assert.Equal(t, "u1", app.UserID)
	assert.Equal(t, "m1", app.MessageID)
	assert.Equal(t, "Acme Corp", app.Company)
	assert.Equal(t, "Backend Engineer", app.JobTitle)
	assert.Equal(t, "Berlin", app.Location)
	assert.Equal(t, domain.StatusInterviewed, app.Status)
	assert.Equal(t, "2023-11-14T22:13:20Z", app.MessageDate)
	assert.Equal(t, fixedNow, app.InsertedAt)
	assert.Equal(t, "Thanks for applying to Acme", app.RawContent)
	assert.Equal(t, []string{"Thanks for applying to Acme"}, f.classifier.inputs)
}

func TestHandleMalformedSkipsClassifier(t *testing.T) {
	cases := map[string]*emaildomain.QueueEnvelope{
		"nil envelope":      nil,
		"missing user":      {MessageID: "m1", RawContent: "x"},
		"missing message":   {UserID: "u1", RawContent: "x"},
		"blank raw content": {UserID: "u1", MessageID: "m1", RawContent: "   "},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			f := newIntakeFixture(acmeOutput)

			_, err := f.uc.Handle(context.Background(), env)

			assert.ErrorIs(t, err, domain.ErrMalformedPayload)
			assert.Zero(t, f.classifier.calls)
		})
	}
}

func TestHandleClassifierError(t *testing.T) {
	f := newIntakeFixture("")
	f.classifier.err = errors.New("model overloaded")

	_, err := f.uc.Handle(context.Background(), emaildomain.NewQueueEnvelope("u1", "m1", "body", 0))

	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrDiscarded)
	assert.NotErrorIs(t, err, domain.ErrMalformedPayload)
}

func TestProcessStoresAndAnnounces(t *testing.T) {
	f := newIntakeFixture(acmeOutput)
	data := payload(t, emaildomain.NewQueueEnvelope("u1", "m1", "body", 1_700_000_000_000))

	app, err := f.uc.Process(context.Background(), data)

	require.NoError(t, err)
	require.NotNil(t, app)
	assert.Contains(t, f.analytics.rows, "u1/m1")
	assert.Contains(t, f.documents.rows, "u1/m1")
	assert.Equal(t, []string{"m1"}, f.notifier.notified)

	require.Len(t, f.ready.messages, 1)
	msg := f.ready.messages[0]
	assert.Equal(t, "batch-ready", msg.Attributes["content_type"])

	var event domain.ReadyEvent
	require.NoError(t, json.Unmarshal(msg.Data, &event))
	assert.Equal(t, "m1", event.MessageID)
	assert.Equal(t, "u1", event.UserID)
	assert.Equal(t, msg.ID, event.BatchID)
	assert.NotEmpty(t, event.BatchID)
}

func TestProcessDiscardHasNoSideEffects(t *testing.T) {
	f := newIntakeFixture("Not Job Application")
	data := payload(t, emaildomain.NewQueueEnvelope("u1", "m1", "newsletter", 0))

	app, err := f.uc.Process(context.Background(), data)

	assert.ErrorIs(t, err, domain.ErrDiscarded)
	assert.Nil(t, app)
	assert.Zero(t, f.analytics.writes)
	assert.Zero(t, f.documents.writes)
	assert.Empty(t, f.notifier.notified)
	assert.Empty(t, f.ready.messages)
}

func TestProcessUndecodablePayload(t *testing.T) {
	f := newIntakeFixture(acmeOutput)

	_, err := f.uc.Process(context.Background(), []byte("{not json"))

	assert.ErrorIs(t, err, domain.ErrMalformedPayload)
	assert.Zero(t, f.classifier.calls)
}

func TestProcessAnalyticsFailureSkipsReadyEvent(t *testing.T) {
	f := newIntakeFixture(acmeOutput)
	f.analytics.failures = -1
	data := payload(t, emaildomain.NewQueueEnvelope("u1", "m1", "body", 0))

	_, err := f.uc.Process(context.Background(), data)

	assert.ErrorIs(t, err, domain.ErrSinkWrite)
	assert.Contains(t, f.documents.rows, "u1/m1")
	assert.Equal(t, []string{"m1"}, f.notifier.notified, "the document is visible, so devices hear about it")
	assert.Empty(t, f.ready.messages)

	f.analytics.failures = 0
	_, err = f.uc.Process(context.Background(), data)

	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, f.notifier.notified)
	assert.Len(t, f.ready.messages, 1)
}

func TestProcessDocumentFailureSkipsAnnouncements(t *testing.T) {
	f := newIntakeFixture(acmeOutput)
	f.documents.failures = -1

	_, err := f.uc.Process(context.Background(), payload(t, emaildomain.NewQueueEnvelope("u1", "m1", "body", 0)))

	assert.ErrorIs(t, err, domain.ErrSinkWrite)
	assert.Empty(t, f.notifier.notified)
	assert.Empty(t, f.ready.messages)
}

func TestProcessAnnouncementFailuresAreIgnored(t *testing.T) {
	f := newIntakeFixture(acmeOutput)
	f.notifier.err = errors.New("fcm down")
	f.ready.err = errors.New("topic missing")

	app, err := f.uc.Process(context.Background(), payload(t, emaildomain.NewQueueEnvelope("u1", "m1", "body", 0)))

	require.NoError(t, err)
	assert.NotNil(t, app)
}

func TestProcessWithoutOptionalCollaborators(t *testing.T) {
	coordinator := NewCoordinator(newMemorySink(), newMemorySink(), fastPolicy(), zap.NewNop())
	uc := NewIntakeUsecase(&fakeClassifier{output: acmeOutput}, coordinator, nil, nil, zap.NewNop())

	_, err := uc.Process(context.Background(), payload(t, emaildomain.NewQueueEnvelope("u1", "m1", "body", 0)))

	require.NoError(t, err)
}

func TestProcessIsIdempotent(t *testing.T) {
	f := newIntakeFixture(acmeOutput)
	data := payload(t, emaildomain.NewQueueEnvelope("u1", "m1", "body", 0))

	_, err := f.uc.Process(context.Background(), data)
	require.NoError(t, err)
	f.classifier.output = "Company: Acme Corp\nStatus: Offer extended"
	_, err = f.uc.Process(context.Background(), data)
	require.NoError(t, err)

	assert.Len(t, f.analytics.rows, 1)
	assert.Len(t, f.documents.rows, 1)
	assert.Equal(t, domain.StatusOffer, f.documents.rows["u1/m1"].Status)
	assert.Equal(t, []string{"m1", "m1"}, f.notifier.notified, "a status move is announced")
}

func TestProcessRedeliveryDoesNotRenotify(t *testing.T) {
	f := newIntakeFixture(acmeOutput)
	data := payload(t, emaildomain.NewQueueEnvelope("u1", "m1", "body", 0))

	for i := 0; i < 3; i++ {
		_, err := f.uc.Process(context.Background(), data)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"m1"}, f.notifier.notified)
	assert.Len(t, f.ready.messages, 3)
}
