package ai

import (
	"context"
	"fmt"
	"unicode/utf8"
)

// Classifier sends message text to a language model and returns its raw
// answer. Implement this interface to add new AI providers.
type Classifier interface {
	Classify(ctx context.Context, text string) (string, error)
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderOllama ProviderType = "ollama"
	ProviderAuto   ProviderType = "auto"
)

// NotJobApplication is the answer requested for unrelated mail.
const NotJobApplication = "Not Job Application"

const promptFormat = `You are an expert at analyzing job application emails. If the email is not job-related, return only: '` + NotJobApplication + `'.
If it is, extract the following in this format:
Company: [company name]
Job Title: [job title]
Location: [location]
Status: [Applied, Interviewed, Declined, Offer, or Unknown]

Email Content:
%s`

// BuildPrompt truncates text to maxChars characters and wraps it in the
// extraction prompt.
func BuildPrompt(text string, maxChars int) string {
	return fmt.Sprintf(promptFormat, truncate(text, maxChars))
}

func truncate(s string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	return string([]rune(s)[:maxChars])
}
