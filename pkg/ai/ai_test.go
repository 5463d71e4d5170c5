package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildPromptTruncates(t *testing.T) {
	text := strings.Repeat("é", 5000)
	prompt := BuildPrompt(text, 4000)

	assert.Contains(t, prompt, "Company: [company name]")
	assert.Equal(t, 4000, strings.Count(prompt, "é"))
}

func TestOllamaClassifier(t *testing.T) {
	var got ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(ollamaResponse{Response: "  Company: Acme\nStatus: Applied\n"})
	}))
	defer srv.Close()

	c := NewOllamaClassifier(srv.URL+"/", "llama3.2", 10)
	out, err := c.Classify(context.Background(), "Thanks for applying to Acme")

	require.NoError(t, err)
	assert.Equal(t, "Company: Acme\nStatus: Applied", out)
	assert.Equal(t, "llama3.2", got.Model)
	assert.False(t, got.Stream)
	assert.Contains(t, got.Prompt, "Thanks for")
	assert.NotContains(t, got.Prompt, "Acme", "input is truncated before prompting")
}

func TestOllamaClassifierHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllamaClassifier(srv.URL, "", 0).Classify(context.Background(), "x")
	assert.ErrorContains(t, err, "status 404")
}

type stubClassifier struct {
	out   string
	err   error
	calls int
}

func (s *stubClassifier) Classify(context.Context, string) (string, error) {
	s.calls++
	return s.out, s.err
}

func TestFallbackPrefersGemini(t *testing.T) {
	gemini := &stubClassifier{out: "Company: A"}
	ollama := &stubClassifier{out: "Company: B"}

	out, err := NewFallbackClassifier(gemini, ollama, zap.NewNop()).Classify(context.Background(), "x")

	require.NoError(t, err)
	assert.Equal(t, "Company: A", out)
	assert.Zero(t, ollama.calls)
}

func TestFallbackOnQuota(t *testing.T) {
	gemini := &stubClassifier{err: errors.New("googleapi: Error 429: RESOURCE_EXHAUSTED")}
	ollama := &stubClassifier{out: "Company: B"}

	out, err := NewFallbackClassifier(gemini, ollama, zap.NewNop()).Classify(context.Background(), "x")

	require.NoError(t, err)
	assert.Equal(t, "Company: B", out)
}

func TestFallbackBothFail(t *testing.T) {
	gemini := &stubClassifier{err: errors.New("quota exceeded")}
	ollama := &stubClassifier{err: errors.New("dial tcp: connection refused")}

	_, err := NewFallbackClassifier(gemini, ollama, zap.NewNop()).Classify(context.Background(), "x")

	assert.Error(t, err)
	assert.Equal(t, 1, gemini.calls, "quota-exhausted gemini is not retried")
}

func TestFallbackRetriesGeminiWhenOllamaUnreachable(t *testing.T) {
	gemini := &stubClassifier{err: errors.New("internal error")}
	ollama := &stubClassifier{err: errors.New("dial tcp: connection refused")}

	_, err := NewFallbackClassifier(gemini, ollama, zap.NewNop()).Classify(context.Background(), "x")

	assert.Error(t, err)
	assert.Equal(t, 2, gemini.calls)
}

func TestErrorClassifiers(t *testing.T) {
	assert.True(t, isQuotaError(errors.New("Too Many Requests")))
	assert.False(t, isQuotaError(nil))
	assert.True(t, isConnectionError(errors.New("unexpected EOF")))
	assert.False(t, isConnectionError(errors.New("bad request")))
}
