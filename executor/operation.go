package executor

import (
	"context"
	"encoding/json"

	"github.com/kbukum/execkit/saga"
)

// Operation is the contract a concrete integration implements: execute a
// named operation against the downstream dependency, and undo one that
// completed. These are the only two functions an adapter must supply.
type Operation interface {
	// ExecuteOperation performs one call against the downstream dependency
	// and returns its serialized result.
	ExecuteOperation(ctx context.Context, operation string, payload map[string]any, headers map[string]string) (json.RawMessage, error)

	saga.Compensator
}

// Request describes one logical invocation.
type Request struct {
	// Dependency is the registered downstream dependency name.
	Dependency string
	// Operation is the operation to invoke on the adapter.
	Operation string
	// Payload is the operation input. It must be JSON-serializable.
	Payload map[string]any
	// Headers carry per-request metadata (tenant, trace, auth hints).
	Headers map[string]string
	// IdempotencyKey deduplicates logically identical requests. When empty
	// a fingerprint of (operation, payload, headers) is used.
	IdempotencyKey string
}

// Result is the outcome of a successful invocation.
type Result struct {
	// Value is the serialized operation result.
	Value json.RawMessage
	// Replayed is true when the value was served from the idempotency
	// cache without invoking the adapter.
	Replayed bool
	// IdempotencyKey is the key the result is cached under.
	IdempotencyKey string
}
