package wal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/execkit/kvstore"
	"github.com/kbukum/execkit/logger"
)

// DefaultTTL bounds how long entries are kept, independent of recovery.
const DefaultTTL = 24 * time.Hour

const entryPrefix = "wal:entry:"

// State is the lifecycle state of a WAL entry.
type State string

const (
	// StatePending marks an operation that is about to execute or was
	// interrupted mid-flight.
	StatePending State = "pending"
	// StateCompleted marks an operation whose side effect succeeded.
	StateCompleted State = "completed"
	// StateFailed marks an attempt that ended in an error.
	StateFailed State = "failed"
)

// Entry is the durable record of one operation attempt. The pending write
// for an entry is always durable before any terminal update, so a completed
// entry without a prior pending write cannot be observed.
type Entry struct {
	ID             string            `json:"id"`
	Timestamp      time.Time         `json:"timestamp"`
	Dependency     string            `json:"dependency,omitempty"`
	Operation      string            `json:"operation"`
	Payload        map[string]any    `json:"payload,omitempty"`
	Headers        map[string]string `json:"headers,omitempty"`
	IdempotencyKey string            `json:"idempotency_key,omitempty"`
	State          State             `json:"state"`
	RetryCount     int               `json:"retry_count"`
	LastAttempt    time.Time         `json:"last_attempt"`
	Error          string            `json:"error,omitempty"`
}

// Config configures the write-ahead log.
type Config struct {
	// TTL is how long entries are retained. Zero means DefaultTTL.
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// ApplyDefaults applies default values.
func (c *Config) ApplyDefaults() {
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
}

// Log persists operation attempts in a Store.
type Log struct {
	store kvstore.Store
	ttl   time.Duration
	log   *logger.Logger
}

// New creates a write-ahead log on top of the given store.
func New(store kvstore.Store, cfg Config, log *logger.Logger) *Log {
	cfg.ApplyDefaults()
	return &Log{
		store: store,
		ttl:   cfg.TTL,
		log:   log.WithComponent("wal"),
	}
}

// Append durably records a pending entry for an operation about to execute.
// ID, Timestamp, State and RetryCount on the passed entry are overwritten.
// The returned entry is owned by the caller until a recovery sweep claims it.
func (l *Log) Append(ctx context.Context, entry Entry) (*Entry, error) {
	entry.ID = uuid.NewString()
	entry.Timestamp = time.Now().UTC()
	entry.State = StatePending
	entry.RetryCount = 0
	if err := l.persist(ctx, &entry); err != nil {
		return nil, err
	}

	l.log.Debug("logged pending operation", logger.Fields(
		logger.FieldEntryID, entry.ID,
		logger.FieldOperation, entry.Operation,
	))
	return &entry, nil
}

// MarkCompleted records that the entry's side effect succeeded, retiring it
// from recovery.
func (l *Log) MarkCompleted(ctx context.Context, id string) error {
	entry, err := l.Get(ctx, id)
	if err != nil {
		return err
	}
	entry.State = StateCompleted
	entry.LastAttempt = time.Now().UTC()
	entry.Error = ""
	return l.persist(ctx, entry)
}

// MarkFailed records a failed attempt, incrementing the retry count and
// keeping the error message for the recovery sweep.
func (l *Log) MarkFailed(ctx context.Context, id string, cause error) error {
	entry, err := l.Get(ctx, id)
	if err != nil {
		return err
	}
	entry.State = StateFailed
	entry.RetryCount++
	entry.LastAttempt = time.Now().UTC()
	if cause != nil {
		entry.Error = cause.Error()
	}
	return l.persist(ctx, entry)
}

// MarkPending moves a failed entry back to pending, preserving its retry
// count. Used by the recovery sweep when it claims an entry for re-execution.
func (l *Log) MarkPending(ctx context.Context, id string) error {
	entry, err := l.Get(ctx, id)
	if err != nil {
		return err
	}
	entry.State = StatePending
	return l.persist(ctx, entry)
}

// Get loads one entry by id.
func (l *Log) Get(ctx context.Context, id string) (*Entry, error) {
	raw, ok, err := l.store.Get(ctx, entryPrefix+id)
	if err != nil {
		return nil, fmt.Errorf("wal get %q: %w", id, err)
	}
	if !ok {
		return nil, fmt.Errorf("wal entry %q not found", id)
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("wal unmarshal %q: %w", id, err)
	}
	return &entry, nil
}

// Pending returns every entry still in the pending state. These are
// operations interrupted mid-flight by a crash or cancellation.
func (l *Log) Pending(ctx context.Context) ([]*Entry, error) {
	return l.byState(ctx, StatePending)
}

// Failed returns every entry in the failed state.
func (l *Log) Failed(ctx context.Context) ([]*Entry, error) {
	return l.byState(ctx, StateFailed)
}

func (l *Log) byState(ctx context.Context, state State) ([]*Entry, error) {
	keys, err := l.store.Keys(ctx, entryPrefix)
	if err != nil {
		return nil, fmt.Errorf("wal scan: %w", err)
	}

	var entries []*Entry
	for _, key := range keys {
		raw, ok, err := l.store.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("wal scan get %q: %w", key, err)
		}
		if !ok {
			// Expired between scan and read.
			continue
		}

		var entry Entry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("wal scan unmarshal %q: %w", key, err)
		}
		if entry.State == state {
			entries = append(entries, &entry)
		}
	}
	return entries, nil
}

func (l *Log) persist(ctx context.Context, entry *Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("wal marshal %q: %w", entry.ID, err)
	}
	if err := l.store.Set(ctx, entryPrefix+entry.ID, raw, l.ttl); err != nil {
		return fmt.Errorf("wal persist %q: %w", entry.ID, err)
	}
	return nil
}
