package ner

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	bolt "go.etcd.io/bbolt"
)

// ResponseCache avoids re-querying the NER transport for text it has
// already seen (a document re-submitted after a crash, or repeated
// boilerplate across a batch). Modeled directly on
// laplaque-ai-anonymizing-proxy's PersistentCache interface; the
// in-memory variant is the zero-dependency fallback, the bbolt variant
// persists across process restarts.
type ResponseCache interface {
	Get(key string) (value string, ok bool)
	Set(key, value string)
	Close() error
}

// CacheKey hashes the operation name plus its inputs into a stable cache
// key; callers pass (opName, text, typesJSON) style components.
func CacheKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

type memoryResponseCache struct {
	mu    sync.RWMutex
	store map[string]string
}

// NewMemoryResponseCache returns an in-memory ResponseCache. Within this
// module only the tests use it; the server attaches no cache to its
// clients.
func NewMemoryResponseCache() ResponseCache {
	return &memoryResponseCache{store: make(map[string]string)}
}

func (c *memoryResponseCache) Get(key string) (string, bool) {
	c.mu.RLock()
	v, ok := c.store[key]
	c.mu.RUnlock()
	return v, ok
}

func (c *memoryResponseCache) Set(key, value string) {
	c.mu.Lock()
	c.store[key] = value
	c.mu.Unlock()
}

func (c *memoryResponseCache) Close() error { return nil }

const bboltBucket = "ner_responses"

type bboltResponseCache struct {
	db *bolt.DB
}

// NewBboltResponseCache opens (or creates) a bbolt database at path for
// persisting NER/VLM responses across restarts.
func NewBboltResponseCache(path string) (ResponseCache, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bboltBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &bboltResponseCache{db: db}, nil
}

func (c *bboltResponseCache) Get(key string) (string, bool) {
	var value string
	var ok bool
	_ = c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bboltBucket))
		v := b.Get([]byte(key))
		if v != nil {
			value = string(v)
			ok = true
		}
		return nil
	})
	return value, ok
}

func (c *bboltResponseCache) Set(key, value string) {
	_ = c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bboltBucket))
		return b.Put([]byte(key), []byte(value))
	})
}

func (c *bboltResponseCache) Close() error {
	return c.db.Close()
}
