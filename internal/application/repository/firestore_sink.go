package repository

import (
	"context"
	"fmt"
	"unicode/utf8"

	"onlyjobs-backend/internal/application/domain"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type firestoreSink struct {
	client        *firestore.Client
	excerptLength int
}

// NewFirestoreSink writes users/{user_id}/job_applications/{message_id}.
func NewFirestoreSink(client *firestore.Client, excerptLength int) DocumentSink {
	return &firestoreSink{
		client:        client,
		excerptLength: excerptLength,
	}
}

// applicationDocument builds the stored document. The raw content is cut
// to an excerpt.
func applicationDocument(app *domain.JobApplication, excerptLength int) map[string]interface{} {
	excerpt := app.RawContent
	if excerptLength > 0 && utf8.RuneCountInString(excerpt) > excerptLength {
		excerpt = string([]rune(excerpt)[:excerptLength])
	}
	return map[string]interface{}{
		"company":                   app.Company,
		"job_title":                 app.JobTitle,
		"location":                  app.Location,
		"status":                    string(app.Status),
		"inserted_at":               app.InsertedAt.UTC(),
		"email_date":                app.MessageDate,
		"raw_email_content_snippet": excerpt,
	}
}

func (s *firestoreSink) Upsert(ctx context.Context, app *domain.JobApplication) (bool, error) {
	ref := s.client.Collection("users").Doc(app.UserID).Collection("job_applications").Doc(app.MessageID)
	doc := applicationDocument(app, s.excerptLength)

	var changed bool
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		switch {
		case status.Code(err) == codes.NotFound:
			changed = true
		case err != nil:
			return err
		default:
			prev, _ := snap.Data()["status"].(string)
			changed = prev != string(app.Status)
		}
		return tx.Set(ref, doc)
	})
	if err != nil {
		return false, fmt.Errorf("failed to write application document: %w", err)
	}
	return changed, nil
}
