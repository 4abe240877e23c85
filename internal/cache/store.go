package cache

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/leonardcser/electives-mcp/internal/logger"
)

// Entry is the envelope persisted under each key.
type Entry struct {
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	WrittenAt int64           `json:"writtenAt"` // unix milliseconds
}

// Decode unmarshals the payload into v.
func (e *Entry) Decode(v any) error { return json.Unmarshal(e.Payload, v) }

// Written returns the write timestamp.
func (e *Entry) Written() time.Time { return time.UnixMilli(e.WrittenAt) }

type Options struct {
	// Now overrides the wall clock, mostly for tests.
	Now func() time.Time
	// GuardGenerations drops fetch results that complete after an invalidation
	// of their key. When false, a fetch racing an invalidation still writes.
	GuardGenerations bool
}

// Store is a read-through TTL cache over a KV namespace.
// Failures inside the store are logged and reported as misses; none of its
// methods return storage errors to the caller.
type Store struct {
	kv    KV
	now   func() time.Time
	guard bool

	// Generations are only recorded while guarded fetches are in flight.
	mu        sync.Mutex
	clock     uint64
	inflight  int
	keyGen    map[string]uint64
	prefixGen map[string]uint64
}

func NewStore(kv KV, opts Options) *Store {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		kv:        kv,
		now:       now,
		guard:     opts.GuardGenerations,
		keyGen:    make(map[string]uint64),
		prefixGen: make(map[string]uint64),
	}
}

// Get returns the entry for key if it was written less than ttl ago.
// Absent, undecodable and stale records are all misses.
func (s *Store) Get(key string, ttl time.Duration) (*Entry, bool) {
	if key == "" {
		return nil, false
	}
	raw, err := s.kv.Get(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.Warnf("cache get %q: %v", key, err)
		}
		return nil, false
	}
	var rec struct {
		Payload   json.RawMessage `json:"payload"`
		WrittenAt *int64          `json:"writtenAt"`
	}
	if err := json.Unmarshal(raw, &rec); err != nil || rec.WrittenAt == nil || len(rec.Payload) == 0 {
		logger.Warnf("cache get %q: malformed entry ignored", key)
		return nil, false
	}
	if s.now().UnixMilli()-*rec.WrittenAt >= ttl.Milliseconds() {
		return nil, false
	}
	return &Entry{Key: key, Payload: rec.Payload, WrittenAt: *rec.WrittenAt}, true
}

// Set replaces the entry under key with payload stamped at the current time.
// Serialization and storage failures, including quota errors, are logged and dropped.
func (s *Store) Set(key string, payload any) {
	if key == "" {
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		logger.Warnf("cache set %q: encode payload: %v", key, err)
		return
	}
	raw, err := json.Marshal(Entry{Key: key, Payload: b, WrittenAt: s.now().UnixMilli()})
	if err != nil {
		logger.Warnf("cache set %q: encode entry: %v", key, err)
		return
	}
	if err := s.kv.Put(key, raw); err != nil {
		logger.Warnf("cache set %q: %v", key, err)
		// The previous payload is superseded; leave a miss rather than serve it.
		if err := s.kv.Delete(key); err != nil {
			logger.Warnf("cache set %q: drop superseded entry: %v", key, err)
		}
	}
}

// Invalidate removes key. Removing an absent key is a no-op.
func (s *Store) Invalidate(key string) {
	if key == "" {
		return
	}
	s.mu.Lock()
	if s.guard && s.inflight > 0 {
		s.clock++
		s.keyGen[key] = s.clock
	}
	s.mu.Unlock()
	if err := s.kv.Delete(key); err != nil {
		logger.Warnf("cache invalidate %q: %v", key, err)
	}
}

// InvalidatePrefix removes every key that starts with prefix.
func (s *Store) InvalidatePrefix(prefix string) {
	if prefix == "" {
		return
	}
	s.mu.Lock()
	if s.guard && s.inflight > 0 {
		s.clock++
		s.prefixGen[prefix] = s.clock
	}
	s.mu.Unlock()
	keys, err := s.kv.Keys(prefix)
	if err != nil {
		logger.Warnf("cache invalidate prefix %q: %v", prefix, err)
		return
	}
	for _, k := range keys {
		if err := s.kv.Delete(k); err != nil {
			logger.Warnf("cache invalidate %q: %v", k, err)
		}
	}
}

// begin registers an in-flight fetch and returns the invalidation clock to
// compare against once it completes. Every begin must be paired with end.
func (s *Store) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight++
	return s.clock
}

// end releases a fetch registered by begin. Generations are dropped once no
// fetch can observe them.
func (s *Store) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if s.inflight == 0 {
		clear(s.keyGen)
		clear(s.prefixGen)
	}
}

func (s *Store) generations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keyGen) + len(s.prefixGen)
}

// invalidatedSince reports whether key, directly or through a prefix, was
// invalidated after the snapshot was taken.
func (s *Store) invalidatedSince(key string, snap uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keyGen[key] > snap {
		return true
	}
	for p, gen := range s.prefixGen {
		if gen > snap && strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// setSince writes payload unless the generation guard is on and key was
// invalidated after snap.
func (s *Store) setSince(key string, payload any, snap uint64) {
	if s.guard && s.invalidatedSince(key, snap) {
		logger.Infof("cache set %q: dropped, invalidated during fetch", key)
		return
	}
	s.Set(key, payload)
}
