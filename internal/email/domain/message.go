package domain

import (
	"encoding/json"
	"time"
)

// FetchMode selects how a fetch pass walks the mailbox.
type FetchMode string

const (
	// FetchIncremental lists only messages newer than the user's watermark.
	FetchIncremental FetchMode = "incremental"
	// FetchBackfill ignores the watermark and walks every page.
	FetchBackfill FetchMode = "backfill"
)

// MessageRef identifies one provider message.
type MessageRef struct {
	ID       string
	ThreadID string
}

// MessageDetail is the subset of a provider message the pipeline needs.
type MessageDetail struct {
	ID string
	// InternalDate is the provider receive time in epoch milliseconds.
	InternalDate int64
	Subject      string
	From         string
	Snippet      string
	Body         string
}

// ListQuery is one page request against a mailbox.
type ListQuery struct {
	Query     string
	LabelIDs  []string
	PageSize  int64
	PageToken string
}

// MessagePage is one page of message references.
type MessagePage struct {
	Refs          []MessageRef
	NextPageToken string
}

// QueueEnvelope is the unit of work handed from fetch to classification.
type QueueEnvelope struct {
	UserID     string `json:"user_id"`
	MessageID  string `json:"message_id"`
	RawContent string `json:"raw_content"`
	// MessageDate is an epoch-millisecond integer or a date string.
	MessageDate json.RawMessage `json:"message_date,omitempty"`
}

// NewQueueEnvelope builds an envelope carrying the receive time as epoch millis.
func NewQueueEnvelope(userID, messageID, content string, internalDate int64) *QueueEnvelope {
	env := &QueueEnvelope{
		UserID:     userID,
		MessageID:  messageID,
		RawContent: content,
	}
	if internalDate > 0 {
		env.MessageDate, _ = json.Marshal(internalDate)
	}
	return env
}

// FetchCursor is a user's incremental-fetch watermark.
type FetchCursor struct {
	UserID string `firestore:"user_id"`
	// LastFetchedAt is epoch milliseconds; 0 means never fetched.
	LastFetchedAt int64     `firestore:"last_fetched"`
	UpdatedAt     time.Time `firestore:"updated_at"`
}

// FetchSummary is the result of a fetch-all run.
type FetchSummary struct {
	Status          string `json:"status"`
	UsersProcessed  int    `json:"users_processed"`
	UsersFailed     int    `json:"users_failed"`
	MessagesFetched int    `json:"messages_fetched"`
	Backfill        bool   `json:"backfill"`
}
