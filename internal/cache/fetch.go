package cache

import (
	"context"
	"time"

	"github.com/leonardcser/electives-mcp/internal/logger"
)

// GetOrFetch returns the cached payload for key when fresh under ttl.
// Otherwise it calls fetch once, stores the result and returns it.
// Fetch errors are returned unchanged and nothing is written for key.
// Concurrent misses on the same key each call fetch; the last write wins.
func GetOrFetch[T any](ctx context.Context, s *Store, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	if e, ok := s.Get(key, ttl); ok {
		var v T
		err := e.Decode(&v)
		if err == nil {
			return v, nil
		}
		logger.Warnf("cache get %q: decode payload: %v", key, err)
	}
	snap := s.begin()
	defer s.end()
	v, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	s.setSince(key, v, snap)
	return v, nil
}
