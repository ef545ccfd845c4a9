// Package providers implements the inference provider behind the response
// cache.
//
// A Provider exposes exactly the two operations the request mediator
// dispatches to: chat/vision completion and image generation. Both take the
// logical request parameters as plain data and return a Result whose raw JSON
// body is what the mediator normalizes and caches; no SDK type crosses the
// cache boundary.
//
// The OpenAI provider is built on the official openai-go SDK, which owns
// authentication, base-URL selection, request timeouts and transport-level
// retries. Tests point it at a local httptest server through BaseURL.
//
// Use [New] to obtain a Provider by name.
package providers
