package providers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	o, err := NewOpenAI(Options{APIKey: "test-key", BaseURL: server.URL, MaxRetries: 0})
	require.NoError(t, err)
	return o
}

func TestOpenAI_Completion(t *testing.T) {
	var gotBody map[string]any
	o := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		data, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(data, &gotBody))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "chatcmpl-123",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "- Clicked on checkout"}}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 5, "total_tokens": 10}
		}`)
	})

	res, err := o.Completion(context.Background(), map[string]any{
		"model":       "gpt-4o-mini",
		"messages":    []any{map[string]any{"role": "user", "content": "Hi"}},
		"temperature": 0.3,
	})
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", gotBody["model"])
	assert.Equal(t, 0.3, gotBody["temperature"])
	assert.NotContains(t, gotBody, "request_type")

	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.RawJSON()), &raw))
	assert.Equal(t, "chatcmpl-123", raw["id"])
}

func TestOpenAI_ImageGeneration(t *testing.T) {
	o := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/images/generations", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"created": 1234567890, "data": [{"url": "https://example.com/image.png"}]}`)
	})

	res, err := o.ImageGeneration(context.Background(), map[string]any{
		"model":  "dall-e-3",
		"prompt": "A beautiful sunset",
		"size":   "1024x1024",
	})
	require.NoError(t, err)
	assert.Contains(t, res.RawJSON(), "https://example.com/image.png")
}

func TestOpenAI_AuthError(t *testing.T) {
	o := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error"}}`)
	})

	_, err := o.Completion(context.Background(), map[string]any{"model": "gpt-4o"})
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
}

func TestOpenAI_ServerErrorNotRetried(t *testing.T) {
	attempts := 0
	o := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error": {"message": "boom"}}`)
	})

	_, err := o.ImageGeneration(context.Background(), map[string]any{"prompt": "x"})
	require.Error(t, err)
	assert.False(t, IsAuthError(err))
	assert.Equal(t, 1, attempts)
}

func TestNewOpenAI_MissingKey(t *testing.T) {
	_, err := NewOpenAI(Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingAPIKey))
	assert.True(t, IsAuthError(err))
}

func TestNew(t *testing.T) {
	p, err := New("openai", Options{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	_, err = New("unknown", Options{APIKey: "k"})
	assert.Error(t, err)
}

func TestIsAuthError_Plain(t *testing.T) {
	assert.False(t, IsAuthError(errors.New("network down")))
	assert.False(t, IsAuthError(nil))
}
