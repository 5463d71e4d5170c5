package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// JetStream implements Publisher and Subscriber on NATS JetStream. The
// message ID becomes Nats-Msg-Id so the stream drops duplicates.
type JetStream struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	stream  string
	subject string
	durable string
	log     *zap.Logger
}

func NewJetStream(url, stream, subject string, log *zap.Logger) (*JetStream, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	return &JetStream{
		nc:      nc,
		js:      js,
		stream:  stream,
		subject: subject,
		durable: subject + "-consumer",
		log:     log.Named("jetstream").With(zap.String("subject", subject)),
	}, nil
}

// EnsureStream creates the stream with a dedup window when missing.
func (j *JetStream) EnsureStream() error {
	if info, err := j.js.StreamInfo(j.stream); err == nil && info != nil {
		return nil
	}

	_, err := j.js.AddStream(&nats.StreamConfig{
		Name:       j.stream,
		Subjects:   []string{j.subject},
		Storage:    nats.FileStorage,
		Retention:  nats.WorkQueuePolicy,
		Duplicates: 10 * time.Minute,
		MaxAge:     7 * 24 * time.Hour,
	})
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

func (j *JetStream) Publish(ctx context.Context, msg *Message) (string, error) {
	m := nats.NewMsg(j.subject)
	m.Data = msg.Data
	for k, v := range msg.Attributes {
		m.Header.Set(k, v)
	}

	opts := []nats.PubOpt{nats.Context(ctx)}
	if msg.ID != "" {
		opts = append(opts, nats.MsgId(msg.ID))
	}

	ack, err := j.js.PublishMsg(m, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to publish message: %w", err)
	}
	if ack.Duplicate {
		j.log.Debug("duplicate publish suppressed", zap.String("message_id", msg.ID))
	}
	return fmt.Sprintf("%s:%d", ack.Stream, ack.Sequence), nil
}

func (j *JetStream) Receive(ctx context.Context, h Handler) error {
	sub, err := j.js.QueueSubscribe(j.subject, j.durable, func(m *nats.Msg) {
		msg := &Message{
			ID:         m.Header.Get(nats.MsgIdHdr),
			Data:       m.Data,
			Attributes: make(map[string]string, len(m.Header)),
		}
		for k := range m.Header {
			msg.Attributes[k] = m.Header.Get(k)
		}
		if meta, err := m.Metadata(); err == nil {
			msg.DeliveryAttempt = int(meta.NumDelivered)
		}

		switch err := h(ctx, msg); {
		case err == nil:
			_ = m.Ack()
		case IsDrop(err):
			j.log.Warn("dropping message", zap.String("message_id", msg.ID), zap.Error(err))
			_ = m.Term()
		default:
			j.log.Warn("message handling failed, requesting redelivery", zap.String("message_id", msg.ID), zap.Error(err))
			_ = m.Nak()
		}
	}, nats.Durable(j.durable), nats.ManualAck(), nats.AckWait(60*time.Second), nats.MaxDeliver(10))
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	j.log.Info("listening", zap.String("durable", j.durable))
	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("failed to drain subscription: %w", err)
	}
	return nil
}

func (j *JetStream) Close() error {
	if j.nc != nil {
		j.nc.Close()
	}
	return nil
}
