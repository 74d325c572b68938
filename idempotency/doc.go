// Package idempotency deduplicates logically identical requests by caching
// their result under a deterministic fingerprint.
//
// A non-expired cache hit short-circuits execution entirely: the underlying
// operation is not re-invoked and the cached result (success or failure
// marker) is the source of truth. This is exactly-once from the caller's
// perspective only. A retry could have succeeded downstream with the reply
// lost before caching, so the system as a whole remains an at-least-once
// boundary.
package idempotency
