package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"ottermusic/searchservice/internal/domain"
	"ottermusic/searchservice/internal/metrics"
)

const (
	URLTTL  = 60 * time.Minute
	LongTTL = 7 * 24 * time.Hour
)

var (
	ErrInvalidRequest = errors.New("invalid lookup request")
	ErrNotFound       = errors.New("lookup result not found")
)

// Resolver fetches reference data from the music backend.
type Resolver interface {
	URL(ctx context.Context, source domain.Source, id string, br int) (domain.SongURL, error)
	Picture(ctx context.Context, source domain.Source, id string, size int) (domain.Picture, error)
	Lyric(ctx context.Context, source domain.Source, id string) (domain.Lyric, error)
}

type Service struct {
	resolver Resolver
	memory   *memoryCache
	backend  Backend
	disabled bool
	group    singleflight.Group
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Service)

func WithBackend(backend Backend) Option {
	return func(s *Service) {
		if backend == nil {
			return
		}
		// A typed nil *RedisBackend must not become a non-nil interface.
		if redisBackend, ok := backend.(*RedisBackend); ok && redisBackend == nil {
			return
		}
		s.backend = backend
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMaxEntries(n int) Option {
	return func(s *Service) {
		s.memory = newMemoryCache(n)
	}
}

// WithCacheDisabled makes every lookup go to the resolver.
func WithCacheDisabled(disabled bool) Option {
	return func(s *Service) {
		s.disabled = disabled
	}
}

func NewService(resolver Resolver, opts ...Option) *Service {
	s := &Service{
		resolver: resolver,
		memory:   newMemoryCache(defaultMaxEntries),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) URL(ctx context.Context, source domain.Source, id string, br int) (domain.SongURL, error) {
	if br <= 0 {
		br = domain.DefaultBitrate
	}
	source, id, err := validate(source, id)
	if err != nil {
		return domain.SongURL{}, err
	}
	key := cacheKey(domain.LookupURL, source, id, strconv.Itoa(br))
	return cached(ctx, s, domain.LookupURL, key, URLTTL, func(ctx context.Context) (domain.SongURL, bool, error) {
		result, err := s.resolver.URL(ctx, source, id, br)
		return result, result.URL != "", err
	})
}

func (s *Service) Picture(ctx context.Context, source domain.Source, id string, size int) (domain.Picture, error) {
	if size <= 0 {
		size = domain.DefaultPictureSize
	}
	source, id, err := validate(source, id)
	if err != nil {
		return domain.Picture{}, err
	}
	key := cacheKey(domain.LookupPicture, source, id, strconv.Itoa(size))
	return cached(ctx, s, domain.LookupPicture, key, LongTTL, func(ctx context.Context) (domain.Picture, bool, error) {
		result, err := s.resolver.Picture(ctx, source, id, size)
		return result, result.URL != "", err
	})
}

func (s *Service) Lyric(ctx context.Context, source domain.Source, id string) (domain.Lyric, error) {
	source, id, err := validate(source, id)
	if err != nil {
		return domain.Lyric{}, err
	}
	key := cacheKey(domain.LookupLyric, source, id, "")
	return cached(ctx, s, domain.LookupLyric, key, LongTTL, func(ctx context.Context) (domain.Lyric, bool, error) {
		result, err := s.resolver.Lyric(ctx, source, id)
		found := strings.TrimSpace(result.Lyric) != "" || strings.TrimSpace(result.TLyric) != ""
		return result, found, err
	})
}

// cached serves key from memory, then the backend, then the resolver.
// Concurrent misses for the same key share one resolver call. Answers the
// resolver reports as not found are returned as ErrNotFound and not stored.
func cached[T any](ctx context.Context, s *Service, kind domain.LookupKind, key string, ttl time.Duration, fetch func(context.Context) (T, bool, error)) (T, error) {
	var zero T
	if !s.disabled {
		if value, ok := s.load(ctx, key, ttl); ok {
			var decoded T
			if err := json.Unmarshal(value, &decoded); err == nil {
				metrics.LookupCacheHitsTotal.WithLabelValues(string(kind)).Inc()
				return decoded, nil
			}
		}
		metrics.LookupCacheMissesTotal.WithLabelValues(string(kind)).Inc()
	}

	resultCh := s.group.DoChan(key, func() (any, error) {
		// Shared by every waiter, so one caller's cancellation must not fail the others.
		fetchCtx := context.WithoutCancel(ctx)
		result, found, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, ErrNotFound
		}
		if !s.disabled {
			s.store(fetchCtx, key, result, ttl)
		}
		return result, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-resultCh:
		if res.Err != nil {
			if errors.Is(res.Err, ErrNotFound) {
				return zero, res.Err
			}
			return zero, fmt.Errorf("%s lookup: %w", kind, res.Err)
		}
		return res.Val.(T), nil
	}
}

func (s *Service) load(ctx context.Context, key string, ttl time.Duration) ([]byte, bool) {
	now := s.now()
	if value, ok := s.memory.get(key, now); ok {
		return value, true
	}
	if s.backend == nil {
		return nil, false
	}
	value, remaining, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.logger.Warn("lookup cache backend read failed", slog.String("key", key), slog.String("error", err.Error()))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	// The local copy never outlives the shared entry.
	if remaining > 0 && remaining < ttl {
		ttl = remaining
	}
	s.memory.set(key, value, ttl, now)
	return value, true
}

func (s *Service) store(ctx context.Context, key string, value any, ttl time.Duration) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return
	}
	s.memory.set(key, encoded, ttl, s.now())
	if s.backend == nil {
		return
	}
	if err := s.backend.Set(ctx, key, encoded, ttl); err != nil {
		s.logger.Warn("lookup cache backend write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

func validate(source domain.Source, id string) (domain.Source, string, error) {
	source = domain.NormalizeSource(string(source))
	id = strings.TrimSpace(id)
	if source == "" || source == domain.SourceAll {
		return "", "", fmt.Errorf("%w: source is required", ErrInvalidRequest)
	}
	if id == "" {
		return "", "", fmt.Errorf("%w: id is required", ErrInvalidRequest)
	}
	return source, id, nil
}

func cacheKey(kind domain.LookupKind, source domain.Source, id, variant string) string {
	parts := []string{string(kind), string(source), id}
	if variant != "" {
		parts = append(parts, variant)
	}
	return strings.Join(parts, ":")
}
