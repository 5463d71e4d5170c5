package usecase

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"onlyjobs-backend/internal/application/domain"
)

const classificationMarker = "company:"

// ParseClassification reads "Key: value" lines from classifier output.
// ok is false when the output does not start with the Company marker,
// which is how the classifier says a message is not an application.
func ParseClassification(output string) (*domain.Classification, bool) {
	text := strings.TrimSpace(output)
	if !strings.HasPrefix(strings.ToLower(text), classificationMarker) {
		return nil, false
	}

	c := &domain.Classification{}
	for _, line := range strings.Split(text, "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "company":
			c.Company = value
		case "job title":
			c.JobTitle = value
		case "location":
			c.Location = value
		case "status":
			c.RawStatus = value
		}
	}
	return c, true
}

// NormalizeStatus maps free status text onto the four stages. Rules are
// checked in order; anything unmatched is Applied.
func NormalizeStatus(raw string) domain.Status {
	s := strings.ToLower(raw)
	switch {
	case strings.Contains(s, "declined"), strings.Contains(s, "rejected"), strings.Contains(s, "not selected"):
		return domain.StatusDeclined
	case strings.Contains(s, "offer"), strings.Contains(s, "accepted"):
		return domain.StatusOffer
	case strings.Contains(s, "interview"):
		return domain.StatusInterviewed
	default:
		return domain.StatusApplied
	}
}

// epochMillisFloor separates millisecond timestamps from second ones.
const epochMillisFloor = 1_000_000_000_000

// NormalizeMessageDate renders the envelope date as ISO-8601. Millisecond
// epochs are converted to UTC, strings pass through and anything else
// falls back to now.
func NormalizeMessageDate(raw json.RawMessage, now time.Time) string {
	fallback := now.UTC().Format(time.RFC3339Nano)

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return fallback
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.TrimSpace(s) == "" {
			return fallback
		}
		return s
	}

	var ms int64
	if err := json.Unmarshal(raw, &ms); err == nil && ms > epochMillisFloor {
		return time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
	}
	return fallback
}
