package queue

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// PubSub implements Publisher and Subscriber on Google Cloud Pub/Sub.
type PubSub struct {
	client  *pubsub.Client
	topic   *pubsub.Topic
	subName string
	log     *zap.Logger
}

// NewPubSub connects to projectID and binds topicName. subName defaults to
// topicName + "-sub".
func NewPubSub(ctx context.Context, projectID, topicName, subName, credentialsFile string, log *zap.Logger) (*PubSub, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	if subName == "" {
		subName = topicName + "-sub"
	}

	topic := client.Topic(topicName)
	topic.EnableMessageOrdering = true

	return &PubSub{
		client:  client,
		topic:   topic,
		subName: subName,
		log:     log.Named("pubsub").With(zap.String("topic", topicName)),
	}, nil
}

// EnsureTopic creates the topic when it does not exist yet.
func (p *PubSub) EnsureTopic(ctx context.Context) error {
	exists, err := p.topic.Exists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check topic existence: %w", err)
	}
	if exists {
		return nil
	}
	if _, err := p.client.CreateTopic(ctx, p.topic.ID()); err != nil {
		return fmt.Errorf("failed to create topic %s: %w", p.topic.ID(), err)
	}
	p.log.Info("created topic")
	return nil
}

func (p *PubSub) Publish(ctx context.Context, msg *Message) (string, error) {
	attrs := make(map[string]string, len(msg.Attributes)+1)
	for k, v := range msg.Attributes {
		attrs[k] = v
	}
	if msg.ID != "" {
		attrs["message_id"] = msg.ID
	}

	res := p.topic.Publish(ctx, &pubsub.Message{
		Data:        msg.Data,
		Attributes:  attrs,
		OrderingKey: msg.OrderingKey,
	})
	serverID, err := res.Get(ctx)
	if err != nil {
		if msg.OrderingKey != "" {
			// a failed ordered publish pauses the key until resumed
			p.topic.ResumePublish(msg.OrderingKey)
		}
		return "", fmt.Errorf("failed to publish message: %w", err)
	}
	return serverID, nil
}

func (p *PubSub) ensureSubscription(ctx context.Context) (*pubsub.Subscription, error) {
	sub := p.client.Subscription(p.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check subscription existence: %w", err)
	}
	if exists {
		return sub, nil
	}

	if err := p.EnsureTopic(ctx); err != nil {
		return nil, err
	}
	sub, err = p.client.CreateSubscription(ctx, p.subName, pubsub.SubscriptionConfig{
		Topic:                 p.topic,
		AckDeadline:           60 * time.Second,
		EnableMessageOrdering: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription %s: %w", p.subName, err)
	}
	p.log.Info("created subscription", zap.String("subscription", p.subName))
	return sub, nil
}

func (p *PubSub) Receive(ctx context.Context, h Handler) error {
	sub, err := p.ensureSubscription(ctx)
	if err != nil {
		return err
	}

	p.log.Info("listening", zap.String("subscription", p.subName))
	err = sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		msg := &Message{
			ID:          m.ID,
			Data:        m.Data,
			Attributes:  m.Attributes,
			OrderingKey: m.OrderingKey,
		}
		if m.DeliveryAttempt != nil {
			msg.DeliveryAttempt = *m.DeliveryAttempt
		}

		switch err := h(ctx, msg); {
		case err == nil:
			m.Ack()
		case IsDrop(err):
			p.log.Warn("dropping message", zap.String("pubsub_id", m.ID), zap.Error(err))
			m.Ack()
		default:
			p.log.Warn("message handling failed, requesting redelivery", zap.String("pubsub_id", m.ID), zap.Error(err))
			m.Nack()
		}
	})
	if err != nil {
		return fmt.Errorf("error receiving messages: %w", err)
	}
	return nil
}

func (p *PubSub) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
