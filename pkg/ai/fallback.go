package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"go.uber.org/zap"
)

// FallbackClassifier tries Gemini first and falls back to Ollama when
// Gemini is out of quota or unreachable. Ollama connection failures go
// back to Gemini once more.
type FallbackClassifier struct {
	gemini Classifier
	ollama Classifier
	log    *zap.Logger
}

func NewFallbackClassifier(gemini, ollama Classifier, log *zap.Logger) *FallbackClassifier {
	return &FallbackClassifier{
		gemini: gemini,
		ollama: ollama,
		log:    log.Named("ai"),
	}
}

// isConnectionError checks if the error is a network/connection error
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return containsAny(err.Error(),
		"connection refused",
		"no such host",
		"network is unreachable",
		"connection reset",
		"timeout",
		"dial tcp",
		"EOF",
	)
}

// isQuotaError checks if the error indicates API quota exhaustion (429)
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}
	return containsAny(err.Error(),
		"429",
		"quota",
		"rate limit",
		"too many requests",
		"resource exhausted",
		"RESOURCE_EXHAUSTED",
	)
}

func containsAny(s string, indicators ...string) bool {
	s = strings.ToLower(s)
	for _, indicator := range indicators {
		if strings.Contains(s, strings.ToLower(indicator)) {
			return true
		}
	}
	return false
}

func (f *FallbackClassifier) Classify(ctx context.Context, text string) (string, error) {
	var geminiErr error
	if f.gemini != nil {
		out, err := f.gemini.Classify(ctx, text)
		if err == nil {
			return out, nil
		}
		geminiErr = err
		f.log.Warn("gemini classify failed, falling back to ollama",
			zap.Bool("quota", isQuotaError(err)), zap.Error(err))
	}

	if f.ollama != nil {
		out, err := f.ollama.Classify(ctx, text)
		if err == nil {
			return out, nil
		}
		if isConnectionError(err) && f.gemini != nil && !isQuotaError(geminiErr) {
			f.log.Warn("ollama unreachable, retrying gemini", zap.Error(err))
			return f.gemini.Classify(ctx, text)
		}
		return "", fmt.Errorf("ollama classify failed: %w", err)
	}

	if geminiErr != nil {
		return "", fmt.Errorf("gemini classify failed: %w", geminiErr)
	}
	return "", fmt.Errorf("no AI provider available for classification")
}
