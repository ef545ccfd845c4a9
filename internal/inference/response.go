package inference

import (
	"errors"
	"fmt"
)

// Response is a normalized provider response.
type Response map[string]any

// Text returns the message content of the first choice of a completion.
func (r Response) Text() (string, error) {
	choices, ok := r["choices"].([]any)
	if !ok || len(choices) == 0 {
		return "", errors.New("response has no choices")
	}
	choice, ok := choices[0].(map[string]any)
	if !ok {
		return "", errors.New("malformed choice in response")
	}
	msg, ok := choice["message"].(map[string]any)
	if !ok {
		return "", errors.New("choice has no message")
	}
	content, ok := msg["content"].(string)
	if !ok {
		return "", fmt.Errorf("message content is %T, want string", msg["content"])
	}
	return content, nil
}

// Image is one generated image from an image response.
type Image struct {
	URL           string
	B64JSON       string
	RevisedPrompt string
}

// ImageData returns the generated images in an image response.
func (r Response) ImageData() ([]Image, error) {
	data, ok := r["data"].([]any)
	if !ok || len(data) == 0 {
		return nil, errors.New("response has no image data")
	}
	images := make([]Image, 0, len(data))
	for i, d := range data {
		m, ok := d.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("malformed image %d in response", i)
		}
		img := Image{}
		img.URL, _ = m["url"].(string)
		img.B64JSON, _ = m["b64_json"].(string)
		img.RevisedPrompt, _ = m["revised_prompt"].(string)
		images = append(images, img)
	}
	return images, nil
}

// toResponse converts a cached value back into a Response.
func toResponse(v any) (Response, bool) {
	switch m := v.(type) {
	case Response:
		return m, true
	case map[string]any:
		return Response(m), true
	default:
		return nil, false
	}
}
