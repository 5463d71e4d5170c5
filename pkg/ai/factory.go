package ai

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Config holds AI provider configuration
type Config struct {
	Provider ProviderType

	GeminiAPIKey string
	GeminiModel  string

	OllamaBaseURL string
	OllamaModel   string

	// MaxChars caps the message text sent to the model.
	MaxChars int
}

// NewClassifier picks the provider from cfg. "auto" chains Gemini and
// Ollama when both are usable.
func NewClassifier(ctx context.Context, cfg Config, log *zap.Logger) (Classifier, error) {
	switch cfg.Provider {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini provider")
		}
		return NewGeminiClassifier(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.MaxChars)

	case ProviderOllama:
		return NewOllamaClassifier(cfg.OllamaBaseURL, cfg.OllamaModel, cfg.MaxChars), nil

	default:
		ollama := NewOllamaClassifier(cfg.OllamaBaseURL, cfg.OllamaModel, cfg.MaxChars)
		if cfg.GeminiAPIKey == "" {
			return ollama, nil
		}
		gemini, err := NewGeminiClassifier(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.MaxChars)
		if err != nil {
			return nil, err
		}
		return NewFallbackClassifier(gemini, ollama, log), nil
	}
}
