package component

import (
	"context"

	"github.com/kbukum/execkit/kvstore"
)

// Store wraps the Redis-backed store as a lifecycle component. Start
// verifies connectivity, Stop closes the connection pool.
type Store struct {
	redis *kvstore.Redis
}

// NewStore creates a store component around an existing Redis store.
func NewStore(redis *kvstore.Redis) *Store {
	return &Store{redis: redis}
}

func (s *Store) Name() string { return "kvstore" }

func (s *Store) Start(ctx context.Context) error {
	return s.redis.Ping(ctx)
}

func (s *Store) Stop(context.Context) error {
	return s.redis.Close()
}

func (s *Store) Health(ctx context.Context) Health {
	if err := s.redis.Ping(ctx); err != nil {
		return Health{Name: s.Name(), Status: StatusUnhealthy, Message: err.Error()}
	}
	return Health{Name: s.Name(), Status: StatusHealthy}
}
