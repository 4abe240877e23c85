package cache

import "errors"

// KV is the shared key/value namespace the Store persists entries into.
// Values are opaque bytes; freshness is decided by the Store, not the KV.
// Implementations must be safe for concurrent use by multiple goroutines.
type KV interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
	// Keys lists every key starting with prefix. An empty prefix lists all keys.
	Keys(prefix string) ([]string, error)
}

var (
	ErrNotFound      = errors.New("cache: not found")
	ErrQuotaExceeded = errors.New("cache: quota exceeded")
)
