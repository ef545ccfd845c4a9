// Package inference mediates every call to the inference provider through
// the response cache.
//
// A request is a kind (chat or image) plus the logical parameters that are
// sent to the provider. The mediator adds the kind to the parameters under
// request_type to form the cache key, looks the key up in the partition the
// kind maps to, and only on a miss calls the provider, normalizes its result
// to plain data and writes it through. A hit never reaches the provider.
//
// Kinds are a closed registry (see [Kinds]); an unknown kind is rejected
// before the cache or the provider are touched. Provider errors are returned
// unchanged and never cached.
package inference
