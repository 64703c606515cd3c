package lookup

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxEntries = 2000
	redisKeyPrefix    = "music:lookup:"
)

// Backend is a shared cache tier behind the in-process one. Get also returns
// the time the entry has left; a non-positive value means unknown.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, time.Duration, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type memoryEntry struct {
	value     []byte
	storedAt  time.Time
	expiresAt time.Time
}

type memoryCache struct {
	mu         sync.Mutex
	entries    map[string]*memoryEntry
	maxEntries int
}

func newMemoryCache(maxEntries int) *memoryCache {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &memoryCache{entries: make(map[string]*memoryEntry), maxEntries: maxEntries}
}

func (c *memoryCache) get(key string, now time.Time) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !now.Before(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.value, true
}

func (c *memoryCache) set(key string, value []byte, ttl time.Duration, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &memoryEntry{value: value, storedAt: now, expiresAt: now.Add(ttl)}
	c.trimLocked(now)
}

func (c *memoryCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *memoryCache) trimLocked(now time.Time) {
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
	if len(c.entries) <= c.maxEntries {
		return
	}

	type pair struct {
		key   string
		entry *memoryEntry
	}
	items := make([]pair, 0, len(c.entries))
	for key, entry := range c.entries {
		items = append(items, pair{key: key, entry: entry})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].entry.storedAt.Before(items[j].entry.storedAt)
	})
	for i := 0; i < len(items)-c.maxEntries; i++ {
		delete(c.entries, items[i].key)
	}
}

// RedisBackend stores encoded lookup results with a per-key TTL.
type RedisBackend struct {
	client redis.UniversalClient
}

// NewRedisBackend returns nil when client is nil so callers can pass the
// result straight to WithBackend.
func NewRedisBackend(client redis.UniversalClient) *RedisBackend {
	if client == nil {
		return nil
	}
	return &RedisBackend{client: client}
}

func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, time.Duration, bool, error) {
	redisKey := redisKeyPrefix + key
	pipe := r.client.Pipeline()
	getCmd := pipe.Get(ctx, redisKey)
	ttlCmd := pipe.PTTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, 0, false, nil
		}
		return nil, 0, false, err
	}
	data, err := getCmd.Bytes()
	if err != nil {
		return nil, 0, false, err
	}
	// PTTL reports -1 for keys without expiry and -2 for missing keys.
	remaining := ttlCmd.Val()
	if remaining < 0 {
		remaining = 0
	}
	return data, remaining, true, nil
}

func (r *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, redisKeyPrefix+key, value, ttl).Err()
}
