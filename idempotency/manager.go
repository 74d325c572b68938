package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kbukum/execkit/kvstore"
	"github.com/kbukum/execkit/logger"
)

// DefaultTTL bounds how long a cached result is replayed.
const DefaultTTL = time.Hour

const keyPrefix = "idem:"

// Record is a cached operation result. Once written for a key it is
// immutable until TTL expiry.
type Record struct {
	Key      string          `json:"key"`
	Result   json.RawMessage `json:"result,omitempty"`
	Success  bool            `json:"success"`
	Error    string          `json:"error,omitempty"`
	CachedAt time.Time       `json:"cached_at"`
}

// Fingerprint computes a stable SHA-256 key over the operation name and a
// canonicalized serialization of the payload and headers. Identical logical
// requests always produce the same key regardless of map ordering, because
// encoding/json marshals map keys in sorted order at every nesting level.
func Fingerprint(operation string, payload map[string]any, headers map[string]string) (string, error) {
	// A nil map marshals to "null" while an empty one marshals to "{}";
	// both are the same logical request.
	if payload == nil {
		payload = map[string]any{}
	}
	if headers == nil {
		headers = map[string]string{}
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("fingerprint payload: %w", err)
	}
	headersJSON, err := json.Marshal(headers)
	if err != nil {
		return "", fmt.Errorf("fingerprint headers: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(operation))
	h.Write([]byte{0})
	h.Write(payloadJSON)
	h.Write([]byte{0})
	h.Write(headersJSON)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Config configures the idempotency manager.
type Config struct {
	// TTL is how long cached results are replayed. Zero means DefaultTTL.
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// ApplyDefaults applies default values.
func (c *Config) ApplyDefaults() {
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
}

// Manager caches operation results in a Store keyed by fingerprint.
type Manager struct {
	store kvstore.Store
	ttl   time.Duration
	log   *logger.Logger

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewManager creates an idempotency manager on top of the given store.
func NewManager(store kvstore.Store, cfg Config, log *logger.Logger) *Manager {
	cfg.ApplyDefaults()
	return &Manager{
		store: store,
		ttl:   cfg.TTL,
		log:   log.WithComponent("idempotency"),
	}
}

// Lookup returns the cached record for key, or nil on a miss.
func (m *Manager) Lookup(ctx context.Context, key string) (*Record, error) {
	raw, ok, err := m.store.Get(ctx, keyPrefix+key)
	if err != nil {
		return nil, fmt.Errorf("idempotency lookup %q: %w", key, err)
	}
	if !ok {
		m.misses.Add(1)
		return nil, nil
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("idempotency unmarshal %q: %w", key, err)
	}

	m.hits.Add(1)
	m.log.Debug("idempotency hit", logger.Fields(logger.FieldKey, key))
	return &rec, nil
}

// Store caches a record under key. The first write for a key wins; a
// concurrent duplicate writer observing SetNX lose simply replays the
// existing record on its next lookup.
func (m *Manager) Store(ctx context.Context, rec Record) error {
	rec.CachedAt = time.Now().UTC()

	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("idempotency marshal %q: %w", rec.Key, err)
	}
	if _, err := m.store.SetNX(ctx, keyPrefix+rec.Key, raw, m.ttl); err != nil {
		return fmt.Errorf("idempotency store %q: %w", rec.Key, err)
	}
	return nil
}

// TTL returns the configured record lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Hits returns the number of cache hits observed.
func (m *Manager) Hits() uint64 {
	return m.hits.Load()
}

// Misses returns the number of cache misses observed.
func (m *Manager) Misses() uint64 {
	return m.misses.Load()
}
