// Package cache provides the content-addressed, on-disk memoization layer
// that sits in front of the inference provider.
//
// Entries are keyed by the SHA-256 fingerprint of the canonical JSON form of
// the full request-parameter mapping (mapping keys sorted recursively,
// sequence order preserved), so the same logical request always lands on the
// same file regardless of the order its parameters were supplied in.
//
// Storage is split into two partitions, each its own subdirectory:
//   - text  : chat/vision completions, indented JSON (<key>.json)
//   - images: image generations, msgpack (<key>.msgpack), which carries
//     arbitrary binary payloads without a lossy text encoding
//
// Entries never expire. Reads that hit an unreadable or malformed file are
// logged and treated as misses; writes go through a temp file and rename so
// a concurrent reader never observes a partial entry. Write failures are
// logged and returned but never leave the store unusable.
package cache
