package quality

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"ottermusic/searchservice/internal/domain"
)

const defaultStoreKey = "music:source-quality:v1"

// Store persists per-source playback statistics across restarts.
type Store interface {
	Load(ctx context.Context) (map[domain.Source]Stats, error)
	Save(ctx context.Context, source domain.Source, stats Stats) error
	Clear(ctx context.Context) error
}

// RedisStore keeps one hash field per source with a JSON encoded Stats value.
type RedisStore struct {
	client redis.UniversalClient
	key    string
}

func NewRedisStore(client redis.UniversalClient, key string) *RedisStore {
	if client == nil {
		return nil
	}
	storeKey := strings.TrimSpace(key)
	if storeKey == "" {
		storeKey = defaultStoreKey
	}
	return &RedisStore{
		client: client,
		key:    storeKey,
	}
}

func (s *RedisStore) Load(ctx context.Context) (map[domain.Source]Stats, error) {
	if s == nil || s.client == nil {
		return nil, nil
	}
	items, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return decodeEntries(items), nil
}

func (s *RedisStore) Save(ctx context.Context, source domain.Source, stats Stats) error {
	if s == nil || s.client == nil {
		return nil
	}
	name := domain.NormalizeSource(string(source))
	if name == "" {
		return nil
	}
	encoded, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, s.key, string(name), string(encoded)).Err()
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Del(ctx, s.key).Err()
}

// MemoryStore is a process-local Store holding the same encoded form as
// RedisStore.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]string)}
}

func (s *MemoryStore) Load(_ context.Context) (map[domain.Source]Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make(map[string]string, len(s.items))
	for k, v := range s.items {
		items[k] = v
	}
	return decodeEntries(items), nil
}

func (s *MemoryStore) Save(_ context.Context, source domain.Source, stats Stats) error {
	name := domain.NormalizeSource(string(source))
	if name == "" {
		return nil
	}
	encoded, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.items[string(name)] = string(encoded)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.items = make(map[string]string)
	s.mu.Unlock()
	return nil
}

// Put stores a raw encoded entry. Tests use it to seed corrupt data.
func (s *MemoryStore) Put(source, encoded string) {
	s.mu.Lock()
	s.items[source] = encoded
	s.mu.Unlock()
}

// decodeEntries skips corrupt or negative entries; they read as zero state.
func decodeEntries(items map[string]string) map[domain.Source]Stats {
	if len(items) == 0 {
		return nil
	}
	out := make(map[domain.Source]Stats, len(items))
	for field, encoded := range items {
		name := domain.NormalizeSource(field)
		if name == "" || strings.TrimSpace(encoded) == "" {
			continue
		}
		var stats Stats
		if err := json.Unmarshal([]byte(encoded), &stats); err != nil {
			continue
		}
		if stats.Success < 0 || stats.Fail < 0 {
			continue
		}
		out[name] = stats
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
