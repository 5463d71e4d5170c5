package repository

import (
	"net/mail"
	"strings"
	"time"

	"onlyjobs-backend/internal/application/domain"
)

var emailDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// emailTimestamp turns the record's message date into a timestamp for
// typed analytics columns. Header-style dates are accepted; anything
// unreadable falls back to the insertion time.
func emailTimestamp(app *domain.JobApplication) time.Time {
	s := strings.TrimSpace(app.MessageDate)
	for _, layout := range emailDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	if t, err := mail.ParseDate(s); err == nil {
		return t.UTC()
	}
	return app.InsertedAt.UTC()
}
