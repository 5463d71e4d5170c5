package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"onlyjobs-backend/internal/application/domain"
	emaildomain "onlyjobs-backend/internal/email/domain"
	"onlyjobs-backend/pkg/queue"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const readyContentType = "batch-ready"

type intakeUsecase struct {
	classifier Classifier
	persister  Persister
	notifier   Notifier
	ready      queue.Publisher
	log        *zap.Logger
	now        func() time.Time
}

// NewIntakeUsecase wires the classification stage. notifier and ready may
// be nil; both run only after a record is stored and never fail it.
func NewIntakeUsecase(classifier Classifier, persister Persister, notifier Notifier, ready queue.Publisher, log *zap.Logger) IntakeUsecase {
	return &intakeUsecase{
		classifier: classifier,
		persister:  persister,
		notifier:   notifier,
		ready:      ready,
		log:        log.Named("intake"),
		now:        time.Now,
	}
}

func validateEnvelope(env *emaildomain.QueueEnvelope) error {
	if env == nil {
		return fmt.Errorf("%w: empty envelope", domain.ErrMalformedPayload)
	}
	var missing []string
	if strings.TrimSpace(env.UserID) == "" {
		missing = append(missing, "user_id")
	}
	if strings.TrimSpace(env.MessageID) == "" {
		missing = append(missing, "message_id")
	}
	if strings.TrimSpace(env.RawContent) == "" {
		missing = append(missing, "raw_content")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", domain.ErrMalformedPayload, strings.Join(missing, ", "))
	}
	return nil
}

func (u *intakeUsecase) Handle(ctx context.Context, env *emaildomain.QueueEnvelope) (*domain.JobApplication, error) {
	if err := validateEnvelope(env); err != nil {
		return nil, err
	}

	output, err := u.classifier.Classify(ctx, env.RawContent)
	if err != nil {
		return nil, fmt.Errorf("failed to classify message %s: %w", env.MessageID, err)
	}

	c, ok := ParseClassification(output)
	if !ok {
		return nil, domain.ErrDiscarded
	}

	now := u.now()
	return &domain.JobApplication{
		UserID:      env.UserID,
		MessageID:   env.MessageID,
		Company:     c.Company,
		JobTitle:    c.JobTitle,
		Location:    c.Location,
		Status:      NormalizeStatus(c.RawStatus),
		InsertedAt:  now.UTC(),
		MessageDate: NormalizeMessageDate(env.MessageDate, now),
		RawContent:  env.RawContent,
	}, nil
}

// DecodeEnvelope parses a queue payload. Undecodable input is malformed.
func DecodeEnvelope(data []byte) (*emaildomain.QueueEnvelope, error) {
	var env emaildomain.QueueEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	return &env, nil
}

func (u *intakeUsecase) Process(ctx context.Context, data []byte) (*domain.JobApplication, error) {
	env, err := DecodeEnvelope(data)
	if err != nil {
		return nil, err
	}

	app, err := u.Handle(ctx, env)
	if err != nil {
		if errors.Is(err, domain.ErrDiscarded) {
			u.log.Debug("message is not a job application",
				zap.String("user_id", env.UserID),
				zap.String("message_id", env.MessageID))
		}
		return nil, err
	}

	changed, err := u.persister.Persist(ctx, app)
	if changed {
		// a redelivery after a partial failure finds the document unchanged
		u.notify(ctx, app)
	}
	if err != nil {
		return nil, err
	}

	u.log.Info("job application stored",
		zap.String("user_id", app.UserID),
		zap.String("message_id", app.MessageID),
		zap.String("company", app.Company),
		zap.String("status", string(app.Status)))

	u.publishReady(ctx, app)
	return app, nil
}

// notify tells the user's devices about a new application or a status
// move. Failures are logged only.
func (u *intakeUsecase) notify(ctx context.Context, app *domain.JobApplication) {
	if u.notifier == nil {
		return
	}
	if err := u.notifier.NotifyApplication(ctx, app); err != nil {
		u.log.Warn("failed to notify devices",
			zap.String("user_id", app.UserID),
			zap.String("message_id", app.MessageID),
			zap.Error(err))
	}
}

// publishReady announces a fully stored record downstream. Failures are
// logged only.
func (u *intakeUsecase) publishReady(ctx context.Context, app *domain.JobApplication) {
	if u.ready == nil {
		return
	}
	event := domain.ReadyEvent{
		BatchID:   uuid.NewString(),
		Timestamp: u.now().UTC().Format(time.RFC3339Nano),
		MessageID: app.MessageID,
		UserID:    app.UserID,
	}
	data, err := json.Marshal(event)
	if err != nil {
		u.log.Warn("failed to encode ready event", zap.Error(err))
		return
	}
	if _, err := u.ready.Publish(ctx, &queue.Message{
		ID:         event.BatchID,
		Data:       data,
		Attributes: map[string]string{"content_type": readyContentType},
	}); err != nil {
		u.log.Warn("failed to publish ready event",
			zap.String("user_id", app.UserID),
			zap.String("message_id", app.MessageID),
			zap.Error(err))
	}
}
