// Package queue abstracts the message broker between the fetch stage and
// the classification stage. Pub/Sub and NATS JetStream are supported.
package queue

import (
	"context"
	"errors"
)

// Message is a broker-neutral envelope.
type Message struct {
	// ID is the dedup key. The publisher sets it; on receive it is the
	// broker message id.
	ID          string
	Data        []byte
	Attributes  map[string]string
	OrderingKey string
	// DeliveryAttempt is 1 on first delivery when the broker reports it, 0 otherwise.
	DeliveryAttempt int
}

// Publisher hands a message to the broker and returns once the broker
// acknowledged it.
type Publisher interface {
	Publish(ctx context.Context, msg *Message) (string, error)
	Close() error
}

// Handler processes one delivery. nil acks, an error marked with Drop acks
// without redelivery, any other error requests redelivery.
type Handler func(ctx context.Context, msg *Message) error

// Subscriber blocks delivering messages to h until ctx is done.
type Subscriber interface {
	Receive(ctx context.Context, h Handler) error
}

type dropError struct {
	err error
}

func (e *dropError) Error() string { return e.err.Error() }
func (e *dropError) Unwrap() error { return e.err }

// Drop marks err as a poison message: acknowledge it so it is not redelivered.
func Drop(err error) error {
	if err == nil {
		return nil
	}
	return &dropError{err: err}
}

func IsDrop(err error) bool {
	var d *dropError
	return errors.As(err, &d)
}
