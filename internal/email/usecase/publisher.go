package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"onlyjobs-backend/internal/email/domain"
	"onlyjobs-backend/pkg/queue"
)

// EnvelopePublisher hands fetched messages to the classification queue.
type EnvelopePublisher interface {
	Publish(ctx context.Context, env *domain.QueueEnvelope) error
}

type envelopePublisher struct {
	pub queue.Publisher
}

// NewEnvelopePublisher publishes envelopes as JSON. Messages of one user
// share an ordering key and the message id doubles as the dedup id.
func NewEnvelopePublisher(pub queue.Publisher) EnvelopePublisher {
	return &envelopePublisher{pub: pub}
}

func (p *envelopePublisher) Publish(ctx context.Context, env *domain.QueueEnvelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}

	_, err = p.pub.Publish(ctx, &queue.Message{
		ID:          env.UserID + "/" + env.MessageID,
		Data:        data,
		OrderingKey: env.UserID,
		Attributes:  map[string]string{"user_id": env.UserID},
	})
	return err
}
