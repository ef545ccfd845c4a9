// Package redact removes secrets from recorded flow data before it is sent
// to the inference provider.
//
// Detection uses regex heuristics covering common secret shapes: API keys,
// JWTs, private keys, AWS access key IDs, bearer tokens, credentials in URL
// query strings and provider-specific tokens (OpenAI, GitHub, Slack).
//
// Structured data is walked recursively by [Value]; values stored under
// sensitive keys such as "password" or "authorization" are dropped entirely.
package redact
