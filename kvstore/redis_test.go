package kvstore

import (
	"bytes"
	"context"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/execkit/logger"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewRedisFromClient(rdb, logger.Nop()), mr
}

func TestRedis_SetGetRoundTrip(t *testing.T) {
	s, _ := newTestRedis(t)
	ctx := context.Background()

	if err := s.Set(ctx, "k1", []byte("v1"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, ok, err := s.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("expected key to exist")
	}
	if !bytes.Equal(val, []byte("v1")) {
		t.Errorf("expected 'v1', got %q", val)
	}
}

func TestRedis_GetMissingKey(t *testing.T) {
	s, _ := newTestRedis(t)

	_, ok, err := s.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("missing key must not be an error, got %v", err)
	}
	if ok {
		t.Error("expected missing key")
	}
}

func TestRedis_TTLExpiry(t *testing.T) {
	s, mr := newTestRedis(t)
	ctx := context.Background()

	if err := s.Set(ctx, "k1", []byte("v1"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, ok, _ := s.Get(ctx, "k1"); ok {
		t.Error("expected key to expire")
	}
}

func TestRedis_SetNX(t *testing.T) {
	s, _ := newTestRedis(t)
	ctx := context.Background()

	ok, err := s.SetNX(ctx, "k1", []byte("first"), 0)
	if err != nil || !ok {
		t.Fatalf("expected first SetNX to win, ok=%v err=%v", ok, err)
	}

	ok, err = s.SetNX(ctx, "k1", []byte("second"), 0)
	if err != nil {
		t.Fatalf("SetNX failed: %v", err)
	}
	if ok {
		t.Error("expected second SetNX to lose")
	}

	val, _, _ := s.Get(ctx, "k1")
	if !bytes.Equal(val, []byte("first")) {
		t.Errorf("expected 'first' to survive, got %q", val)
	}
}

func TestRedis_KeysPrefixScan(t *testing.T) {
	s, _ := newTestRedis(t)
	ctx := context.Background()

	_ = s.Set(ctx, "wal:pending:1", []byte("a"), 0)
	_ = s.Set(ctx, "wal:pending:2", []byte("b"), 0)
	_ = s.Set(ctx, "idem:1", []byte("c"), 0)

	keys, err := s.Keys(ctx, "wal:pending:")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	sort.Strings(keys)

	want := []string{"wal:pending:1", "wal:pending:2"}
	if len(keys) != len(want) {
		t.Fatalf("expected %v, got %v", want, keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("expected %v, got %v", want, keys)
		}
	}
}

func TestRedis_Delete(t *testing.T) {
	s, _ := newTestRedis(t)
	ctx := context.Background()

	_ = s.Set(ctx, "k1", []byte("v1"), 0)
	if err := s.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "k1"); ok {
		t.Error("expected key to be deleted")
	}
}

func TestRedis_Ping(t *testing.T) {
	s, _ := newTestRedis(t)

	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("expected ping to succeed, got %v", err)
	}
}
