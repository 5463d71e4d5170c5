package delivery

import (
	"context"
	"errors"

	"onlyjobs-backend/internal/application/domain"
	"onlyjobs-backend/internal/application/usecase"
	"onlyjobs-backend/pkg/queue"
	"onlyjobs-backend/pkg/retry"

	"go.uber.org/zap"
)

// Consumer runs the intake stage as a pull subscriber.
type Consumer struct {
	sub    queue.Subscriber
	intake usecase.IntakeUsecase
	policy retry.Policy
	log    *zap.Logger
}

func NewConsumer(sub queue.Subscriber, intake usecase.IntakeUsecase, policy retry.Policy, log *zap.Logger) *Consumer {
	return &Consumer{
		sub:    sub,
		intake: intake,
		policy: policy,
		log:    log.Named("consumer"),
	}
}

// Run blocks until ctx is done or the subscription fails.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.Info("pull consumer started")
	err := c.sub.Receive(ctx, c.handle)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	c.log.Info("pull consumer stopped")
	return nil
}

func (c *Consumer) handle(ctx context.Context, msg *queue.Message) error {
	err := retry.Do(ctx, c.policy, func(ctx context.Context) error {
		_, err := c.intake.Process(ctx, msg.Data)
		switch {
		case err == nil, errors.Is(err, domain.ErrDiscarded):
			return nil
		case errors.Is(err, domain.ErrMalformedPayload), errors.Is(err, domain.ErrSinkWrite):
			// sinks already retried their own writes
			return retry.Permanent(err)
		default:
			return err
		}
	})
	if err == nil {
		return nil
	}

	if errors.Is(err, domain.ErrMalformedPayload) {
		c.log.Warn("dropping malformed payload", zap.String("queue_id", msg.ID), zap.Error(err))
		return queue.Drop(err)
	}
	c.log.Error("message will be redelivered",
		zap.String("queue_id", msg.ID),
		zap.Int("delivery_attempt", msg.DeliveryAttempt),
		zap.Error(err))
	return err
}
