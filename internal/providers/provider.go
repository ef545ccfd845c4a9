package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
)

// ErrMissingAPIKey is returned when a provider is constructed without
// credentials.
var ErrMissingAPIKey = errors.New("API key is not set")

// Result is a provider response that can report its raw JSON body.
type Result interface {
	RawJSON() string
}

// Provider is the inference service abstraction.
type Provider interface {
	Name() string
	Completion(ctx context.Context, params map[string]any) (Result, error)
	ImageGeneration(ctx context.Context, params map[string]any) (Result, error)
}

// Options configures a provider client.
type Options struct {
	APIKey  string
	BaseURL string
	// Timeout bounds a single HTTP request; zero leaves the SDK default.
	Timeout time.Duration
	// MaxRetries is the SDK's transport-level retry budget.
	MaxRetries int
}

// New creates a provider by name.
func New(provider string, opts Options) (Provider, error) {
	switch provider {
	case "openai", "":
		return NewOpenAI(opts)
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}

// IsAuthError reports whether err is an authentication failure.
func IsAuthError(err error) bool {
	if errors.Is(err, ErrMissingAPIKey) {
		return true
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 401 || apiErr.StatusCode == 403
	}
	return false
}
