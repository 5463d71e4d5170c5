package usecase

import (
	"context"

	"onlyjobs-backend/internal/application/domain"
	emaildomain "onlyjobs-backend/internal/email/domain"
)

// Classifier returns the raw model answer for a message body.
type Classifier interface {
	Classify(ctx context.Context, text string) (string, error)
}

// Notifier tells a user's devices about a stored application.
type Notifier interface {
	NotifyApplication(ctx context.Context, app *domain.JobApplication) error
}

// Persister writes a record to every sink. changed reports whether the
// user-facing document is new or moved to another status; it is set even
// when another sink failed.
type Persister interface {
	Persist(ctx context.Context, app *domain.JobApplication) (changed bool, err error)
}

// IntakeUsecase turns queue envelopes into stored job applications.
type IntakeUsecase interface {
	// Handle classifies one envelope. It returns ErrMalformedPayload
	// without classifying when a required field is missing, and
	// ErrDiscarded when the message is not a job application.
	Handle(ctx context.Context, env *emaildomain.QueueEnvelope) (*domain.JobApplication, error)
	// Process decodes, classifies and persists one queue payload.
	Process(ctx context.Context, data []byte) (*domain.JobApplication, error)
}
