package usecase

import (
	"context"
	"fmt"

	"onlyjobs-backend/internal/application/domain"
	"onlyjobs-backend/internal/application/repository"
	"onlyjobs-backend/pkg/retry"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Coordinator fans a record out to the analytics and document sinks.
// Each write is retried on its own; one sink failing never stops the
// other and nothing is rolled back.
type Coordinator struct {
	analytics repository.AnalyticsSink
	documents repository.DocumentSink
	policy    retry.Policy
	log       *zap.Logger
}

func NewCoordinator(analytics repository.AnalyticsSink, documents repository.DocumentSink, policy retry.Policy, log *zap.Logger) *Coordinator {
	return &Coordinator{
		analytics: analytics,
		documents: documents,
		policy:    policy,
		log:       log.Named("persistence"),
	}
}

func (c *Coordinator) Persist(ctx context.Context, app *domain.JobApplication) (bool, error) {
	var errs error
	var changed bool

	err := retry.Do(ctx, c.policy, func(ctx context.Context) error {
		return c.analytics.Insert(ctx, app)
	})
	if err != nil {
		c.log.Error("analytics write failed",
			zap.String("user_id", app.UserID),
			zap.String("message_id", app.MessageID),
			zap.Error(err))
		errs = multierr.Append(errs, fmt.Errorf("analytics sink: %w", err))
	}

	err = retry.Do(ctx, c.policy, func(ctx context.Context) error {
		var err error
		changed, err = c.documents.Upsert(ctx, app)
		return err
	})
	if err != nil {
		c.log.Error("document write failed",
			zap.String("user_id", app.UserID),
			zap.String("message_id", app.MessageID),
			zap.Error(err))
		errs = multierr.Append(errs, fmt.Errorf("document sink: %w", err))
	}

	if errs != nil {
		return changed, fmt.Errorf("%w: %w", domain.ErrSinkWrite, errs)
	}
	return changed, nil
}
