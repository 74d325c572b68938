package executor

import (
	"context"
	stderrors "errors"

	goerrors "github.com/kbukum/execkit/errors"
	"github.com/kbukum/execkit/idempotency"
	"github.com/kbukum/execkit/logger"
	"github.com/kbukum/execkit/wal"
)

// RecoverPendingOperations sweeps the WAL for entries left pending by a
// crash or cancellation and resolves them. It returns the number of entries
// marked completed. An entry whose idempotency key already has a cached
// record is resolved from the cache without re-invoking the adapter, so a
// downstream call that succeeded before the crash is not repeated.
//
// The sweep is safe to run concurrently with live traffic and is typically
// invoked by a scheduler at process startup.
func (e *Executor) RecoverPendingOperations(ctx context.Context) (int, error) {
	pending, err := e.wal.Pending(ctx)
	if err != nil {
		return 0, goerrors.StorageError(err)
	}

	recovered := 0
	for _, entry := range pending {
		select {
		case <-ctx.Done():
			return recovered, ctx.Err()
		default:
		}

		done, err := e.recoverEntry(ctx, entry)
		if err != nil {
			e.log.Warn("recovering wal entry failed", logger.Fields(
				logger.FieldEntryID, entry.ID,
				logger.FieldOperation, entry.Operation,
				logger.FieldError, err.Error(),
			))
			continue
		}
		if done {
			recovered++
		}
	}

	e.log.Info("recovery sweep finished", logger.Fields(
		"pending", len(pending),
		"recovered", recovered,
	))
	return recovered, nil
}

// recoverEntry resolves one pending entry. It reports true when the entry
// was marked completed.
func (e *Executor) recoverEntry(ctx context.Context, entry *wal.Entry) (bool, error) {
	if entry.RetryCount >= e.cfg.RecoveryMaxAttempts {
		e.log.Error("pending entry exceeded recovery attempts, manual intervention required", logger.Fields(
			logger.FieldEntryID, entry.ID,
			logger.FieldOperation, entry.Operation,
			logger.FieldAttempt, entry.RetryCount,
		))
		return false, nil
	}

	if entry.IdempotencyKey != "" {
		rec, err := e.idem.Lookup(ctx, entry.IdempotencyKey)
		if err != nil {
			return false, err
		}
		if rec != nil {
			// The outcome is already known; do not repeat the call.
			if rec.Success {
				if err := e.wal.MarkCompleted(ctx, entry.ID); err != nil {
					return false, err
				}
				return true, nil
			}
			if err := e.wal.MarkFailed(ctx, entry.ID, stderrors.New(rec.Error)); err != nil {
				return false, err
			}
			return false, nil
		}
	}

	dep, ok := e.registry.get(entry.Dependency)
	if !ok {
		e.log.Warn("no adapter registered for pending entry", logger.Fields(
			logger.FieldEntryID, entry.ID,
			logger.FieldDependency, entry.Dependency,
		))
		return false, nil
	}

	value, err := dep.adapter.ExecuteOperation(ctx, entry.Operation, entry.Payload, entry.Headers)
	if err != nil {
		if ctx.Err() == nil {
			if werr := e.wal.MarkFailed(ctx, entry.ID, err); werr != nil {
				return false, werr
			}
		}
		return false, nil
	}

	if entry.IdempotencyKey != "" {
		if err := e.idem.Store(ctx, idempotency.Record{
			Key:     entry.IdempotencyKey,
			Result:  value,
			Success: true,
		}); err != nil {
			e.log.Warn("caching recovered result failed", logger.Fields(
				logger.FieldKey, entry.IdempotencyKey,
				logger.FieldError, err.Error(),
			))
		}
	}

	if err := e.wal.MarkCompleted(ctx, entry.ID); err != nil {
		return false, err
	}
	return true, nil
}
