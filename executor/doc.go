// Package executor composes the resilience primitives into the single entry
// point every outbound side-effecting call passes through.
//
// The pipeline per invocation is strict: idempotency check, optional rate
// limit, bulkhead acquire, circuit breaker, retry, write-ahead-logged call,
// idempotency cache write, bulkhead release. A cache hit short-circuits to
// the replayed result before any concurrency slot is taken, and retries run
// inside a single circuit breaker observation so transient sub-failures do
// not trip the breaker once per attempt.
//
// One breaker, bulkhead and optional rate limiter exist per registered
// dependency, held in a registry owned by the Executor. There are no
// process-wide singletons; construct an Executor and register adapters
// explicitly.
package executor
