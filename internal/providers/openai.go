package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI implements Provider against the OpenAI REST API (or any
// OpenAI-compatible endpoint).
type OpenAI struct {
	client openai.Client
}

// NewOpenAI creates a new OpenAI provider.
func NewOpenAI(opts Options) (*OpenAI, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("openai: %w (set OPENAI_API_KEY or openai-key in the secrets file)", ErrMissingAPIKey)
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(opts.MaxRetries),
	}
	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		reqOpts = append(reqOpts, option.WithBaseURL(base))
	}
	if opts.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(opts.Timeout))
	}
	return &OpenAI{client: openai.NewClient(reqOpts...)}, nil
}

func (o *OpenAI) Name() string { return "openai" }

// Completion sends a chat (or vision) completion request. params is the
// request body verbatim, so any field the API accepts can be passed through.
func (o *OpenAI) Completion(ctx context.Context, params map[string]any) (Result, error) {
	var completion openai.ChatCompletion
	if err := o.post(ctx, "chat/completions", params, &completion); err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	return completion, nil
}

// ImageGeneration sends an image generation request.
func (o *OpenAI) ImageGeneration(ctx context.Context, params map[string]any) (Result, error) {
	var images openai.ImagesResponse
	if err := o.post(ctx, "images/generations", params, &images); err != nil {
		return nil, fmt.Errorf("image generation: %w", err)
	}
	return images, nil
}

func (o *OpenAI) post(ctx context.Context, path string, params map[string]any, res any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}
	return o.client.Post(ctx, path, json.RawMessage(body), res)
}
