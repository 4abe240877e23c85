package cache

import (
	"bytes"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// BoltKV is a persistent KV backed by a single bbolt file.
// It is safe for concurrent use by multiple goroutines.
type BoltKV struct {
	db       *bolt.DB
	bucket   []byte
	maxValue int
	mu       sync.RWMutex
}

type BoltOptions struct {
	// Bucket is the name of the Bolt bucket to use.
	Bucket string
	// MaxValueBytes rejects larger values with ErrQuotaExceeded. Zero means unlimited.
	MaxValueBytes int
}

// OpenBolt initializes or opens a BoltKV at the given path.
func OpenBolt(path string, opts BoltOptions) (*BoltKV, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	bucket := []byte("cache")
	if opts.Bucket != "" {
		bucket = []byte(opts.Bucket)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltKV{db: db, bucket: bucket, maxValue: opts.MaxValueBytes}, nil
}

// Close closes the underlying database.
func (k *BoltKV) Close() error {
	if k == nil || k.db == nil {
		return nil
	}
	return k.db.Close()
}

// Get returns a copy of the stored value or ErrNotFound.
func (k *BoltKV) Get(key string) ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	var out []byte
	if err := k.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(k.bucket).Get([]byte(key))
		if v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, ErrNotFound
	}
	return out, nil
}

// Put overwrites the value stored under key.
func (k *BoltKV) Put(key string, value []byte) error {
	if k.maxValue > 0 && len(value) > k.maxValue {
		return ErrQuotaExceeded
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(k.bucket).Put([]byte(key), value)
	})
}

// Delete removes a key. Deleting a missing key is not an error.
func (k *BoltKV) Delete(key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(k.bucket).Delete([]byte(key))
	})
}

// Keys walks the bucket from prefix in key order.
func (k *BoltKV) Keys(prefix string) ([]string, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	var keys []string
	p := []byte(prefix)
	err := k.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(k.bucket).Cursor()
		for key, _ := c.Seek(p); key != nil && bytes.HasPrefix(key, p); key, _ = c.Next() {
			keys = append(keys, string(key))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}
