package domain

import (
	"errors"
	"time"
)

// Status is the normalized stage of a job application.
type Status string

const (
	StatusApplied     Status = "Applied"
	StatusInterviewed Status = "Interviewed"
	StatusDeclined    Status = "Declined"
	StatusOffer       Status = "Offer"
)

// Classification is the parsed answer of the classifier.
type Classification struct {
	Company  string
	JobTitle string
	Location string
	// RawStatus is the status text as returned, before normalization.
	RawStatus string
}

// JobApplication is one classified message. (UserID, MessageID) identifies
// it in every sink.
type JobApplication struct {
	UserID      string
	MessageID   string
	Company     string
	JobTitle    string
	Location    string
	Status      Status
	InsertedAt  time.Time
	MessageDate string
	RawContent  string
}

// ReadyEvent announces that a batch of records reached the sinks.
type ReadyEvent struct {
	BatchID   string `json:"batch_id"`
	Timestamp string `json:"timestamp"`
	MessageID string `json:"message_id"`
	UserID    string `json:"user_id"`
}

var (
	// ErrDiscarded is the outcome for a message that is not a job
	// application. It is not a failure.
	ErrDiscarded = errors.New("message discarded")
	// ErrMalformedPayload marks an envelope that can never be processed.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrSinkWrite marks a record that did not reach every sink.
	ErrSinkWrite = errors.New("sink write failed")
)
