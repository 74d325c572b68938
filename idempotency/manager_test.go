package idempotency

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/kbukum/execkit/kvstore"
	"github.com/kbukum/execkit/logger"
)

func newTestManager(ttl time.Duration) *Manager {
	return NewManager(kvstore.NewMemory(), Config{TTL: ttl}, logger.Nop())
}

func TestFingerprint_StableAcrossMapOrdering(t *testing.T) {
	a := map[string]any{"user": "u1", "text": "hi", "nested": map[string]any{"b": 2, "a": 1}}
	b := map[string]any{"nested": map[string]any{"a": 1, "b": 2}, "text": "hi", "user": "u1"}

	keyA, err := Fingerprint("send_message", a, nil)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	keyB, err := Fingerprint("send_message", b, nil)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}

	if keyA != keyB {
		t.Errorf("identical logical requests produced different keys: %s vs %s", keyA, keyB)
	}
}

func TestFingerprint_DiffersByOperation(t *testing.T) {
	payload := map[string]any{"user": "u1"}

	keyA, _ := Fingerprint("send_message", payload, nil)
	keyB, _ := Fingerprint("delete_message", payload, nil)

	if keyA == keyB {
		t.Error("different operations must produce different keys")
	}
}

func TestFingerprint_DiffersByHeaders(t *testing.T) {
	payload := map[string]any{"user": "u1"}

	keyA, _ := Fingerprint("op", payload, map[string]string{"tenant": "t1"})
	keyB, _ := Fingerprint("op", payload, map[string]string{"tenant": "t2"})

	if keyA == keyB {
		t.Error("different headers must produce different keys")
	}
}

func TestManager_RoundTrip(t *testing.T) {
	m := newTestManager(time.Minute)
	ctx := context.Background()

	result := json.RawMessage(`{"message_id":"m-123"}`)
	if err := m.Store(ctx, Record{Key: "k1", Result: result, Success: true}); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	rec, err := m.Lookup(ctx, "k1")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if rec == nil {
		t.Fatal("expected a hit")
	}
	if string(rec.Result) != string(result) {
		t.Errorf("expected result %s byte-for-byte, got %s", result, rec.Result)
	}
	if !rec.Success {
		t.Error("expected success marker")
	}
}

func TestManager_MissReturnsNil(t *testing.T) {
	m := newTestManager(time.Minute)

	rec, err := m.Lookup(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if rec != nil {
		t.Errorf("expected nil on miss, got %+v", rec)
	}
	if m.Misses() != 1 {
		t.Errorf("expected 1 miss, got %d", m.Misses())
	}
}

func TestManager_TTLExpiry(t *testing.T) {
	m := newTestManager(20 * time.Millisecond)
	ctx := context.Background()

	_ = m.Store(ctx, Record{Key: "k1", Result: json.RawMessage(`1`), Success: true})

	if rec, _ := m.Lookup(ctx, "k1"); rec == nil {
		t.Fatal("expected a hit before TTL")
	}

	time.Sleep(30 * time.Millisecond)

	rec, err := m.Lookup(ctx, "k1")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if rec != nil {
		t.Error("expected record to expire")
	}
}

func TestManager_FirstWriteWins(t *testing.T) {
	m := newTestManager(time.Minute)
	ctx := context.Background()

	_ = m.Store(ctx, Record{Key: "k1", Result: json.RawMessage(`"first"`), Success: true})
	_ = m.Store(ctx, Record{Key: "k1", Result: json.RawMessage(`"second"`), Success: true})

	rec, _ := m.Lookup(ctx, "k1")
	if rec == nil {
		t.Fatal("expected a hit")
	}
	if string(rec.Result) != `"first"` {
		t.Errorf("record must be immutable until expiry, got %s", rec.Result)
	}
}

func TestManager_CachedFailureMarker(t *testing.T) {
	m := newTestManager(time.Minute)
	ctx := context.Background()

	_ = m.Store(ctx, Record{Key: "k1", Success: false, Error: "upstream rejected"})

	rec, _ := m.Lookup(ctx, "k1")
	if rec == nil {
		t.Fatal("expected a hit")
	}
	if rec.Success {
		t.Error("expected failure marker")
	}
	if rec.Error != "upstream rejected" {
		t.Errorf("expected error message preserved, got %q", rec.Error)
	}
}

func TestManager_HitCounter(t *testing.T) {
	m := newTestManager(time.Minute)
	ctx := context.Background()

	_ = m.Store(ctx, Record{Key: "k1", Result: json.RawMessage(`1`), Success: true})
	_, _ = m.Lookup(ctx, "k1")
	_, _ = m.Lookup(ctx, "k1")

	if m.Hits() != 2 {
		t.Errorf("expected 2 hits, got %d", m.Hits())
	}
}

func TestFingerprint_NilAndEmptyMapsEqual(t *testing.T) {
	nilBoth, err := Fingerprint("send_message", nil, nil)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	emptyBoth, err := Fingerprint("send_message", map[string]any{}, map[string]string{})
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	if nilBoth != emptyBoth {
		t.Errorf("nil and empty maps produced different keys: %s vs %s", nilBoth, emptyBoth)
	}

	nilHeaders, _ := Fingerprint("send_message", map[string]any{"a": 1}, nil)
	emptyHeaders, _ := Fingerprint("send_message", map[string]any{"a": 1}, map[string]string{})
	if nilHeaders != emptyHeaders {
		t.Errorf("nil and empty headers produced different keys: %s vs %s", nilHeaders, emptyHeaders)
	}
}
