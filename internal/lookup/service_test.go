package lookup

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ottermusic/searchservice/internal/domain"
)

type fakeResolver struct {
	urlCalls   atomic.Int32
	picCalls   atomic.Int32
	lyricCalls atomic.Int32
	url        string
	pic        string
	lyric      domain.Lyric
	err        error
	gate       chan struct{}
}

func (f *fakeResolver) URL(ctx context.Context, source domain.Source, id string, br int) (domain.SongURL, error) {
	f.urlCalls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return domain.SongURL{}, f.err
	}
	return domain.SongURL{URL: f.url, BR: br}, nil
}

func (f *fakeResolver) Picture(ctx context.Context, source domain.Source, id string, size int) (domain.Picture, error) {
	f.picCalls.Add(1)
	return domain.Picture{URL: f.pic}, f.err
}

func (f *fakeResolver) Lyric(ctx context.Context, source domain.Source, id string) (domain.Lyric, error) {
	f.lyricCalls.Add(1)
	return f.lyric, f.err
}

type mapBackend struct {
	mu      sync.Mutex
	values  map[string][]byte
	ttls    map[string]time.Duration
	expires map[string]time.Time
	now     func() time.Time
}

func newMapBackend() *mapBackend {
	return &mapBackend{
		values:  map[string][]byte{},
		ttls:    map[string]time.Duration{},
		expires: map[string]time.Time{},
		now:     time.Now,
	}
}

func (m *mapBackend) Get(ctx context.Context, key string) ([]byte, time.Duration, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[key]
	if !ok {
		return nil, 0, false, nil
	}
	remaining := m.expires[key].Sub(m.now())
	if remaining <= 0 {
		delete(m.values, key)
		return nil, 0, false, nil
	}
	return value, remaining, true, nil
}

func (m *mapBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	m.ttls[key] = ttl
	m.expires[key] = m.now().Add(ttl)
	return nil
}

func TestURLIsCachedPerBitrate(t *testing.T) {
	resolver := &fakeResolver{url: "https://cdn.example/a.mp3"}
	service := NewService(resolver)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := service.URL(ctx, domain.SourceJoox, "42", 0)
		if err != nil {
			t.Fatalf("url error: %v", err)
		}
		if result.URL != "https://cdn.example/a.mp3" || result.BR != domain.DefaultBitrate {
			t.Fatalf("unexpected result: %#v", result)
		}
	}
	if resolver.urlCalls.Load() != 1 {
		t.Fatalf("expected one resolver call, got %d", resolver.urlCalls.Load())
	}

	if _, err := service.URL(ctx, domain.SourceJoox, "42", 320); err != nil {
		t.Fatalf("url error: %v", err)
	}
	if resolver.urlCalls.Load() != 2 {
		t.Fatalf("expected a separate entry per bitrate, got %d calls", resolver.urlCalls.Load())
	}
}

func TestEmptyAnswersAreNotCached(t *testing.T) {
	resolver := &fakeResolver{}
	service := NewService(resolver)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := service.Picture(ctx, domain.SourceKuwo, "1", 0); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if _, err := service.Lyric(ctx, domain.SourceKuwo, "1"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound for blank lyric, got %v", err)
		}
	}
	if resolver.picCalls.Load() != 2 || resolver.lyricCalls.Load() != 2 {
		t.Fatalf("expected misses to reach the resolver every time, got pic=%d lyric=%d",
			resolver.picCalls.Load(), resolver.lyricCalls.Load())
	}
}

func TestEntriesExpire(t *testing.T) {
	resolver := &fakeResolver{url: "https://cdn.example/a.mp3", pic: "https://img.example/a.jpg"}
	service := NewService(resolver)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return now }
	ctx := context.Background()

	service.URL(ctx, domain.SourceJoox, "1", 0)
	service.Picture(ctx, domain.SourceJoox, "1", 0)

	now = now.Add(URLTTL + time.Second)
	service.URL(ctx, domain.SourceJoox, "1", 0)
	service.Picture(ctx, domain.SourceJoox, "1", 0)

	if resolver.urlCalls.Load() != 2 {
		t.Fatalf("expected url entry to expire after an hour, got %d calls", resolver.urlCalls.Load())
	}
	if resolver.picCalls.Load() != 1 {
		t.Fatalf("expected picture entry to outlive an hour, got %d calls", resolver.picCalls.Load())
	}
}

func TestBackendIsSharedAcrossInstances(t *testing.T) {
	backend := newMapBackend()
	ctx := context.Background()

	first := &fakeResolver{lyric: domain.Lyric{Lyric: "[00:01.00]hi"}}
	if _, err := NewService(first, WithBackend(backend)).Lyric(ctx, domain.SourceNetease, "7"); err != nil {
		t.Fatalf("lyric error: %v", err)
	}
	if ttl := backend.ttls["lyric:netease:7"]; ttl != LongTTL {
		t.Fatalf("expected lyric stored with long ttl, got %v", ttl)
	}

	second := &fakeResolver{}
	lyric, err := NewService(second, WithBackend(backend)).Lyric(ctx, domain.SourceNetease, "7")
	if err != nil || lyric.Lyric != "[00:01.00]hi" {
		t.Fatalf("expected backend hit, got %#v %v", lyric, err)
	}
	if second.lyricCalls.Load() != 0 {
		t.Fatalf("expected no resolver call on backend hit, got %d", second.lyricCalls.Load())
	}
}

func TestBackendHitKeepsRemainingTTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	backend := newMapBackend()
	backend.now = clock
	ctx := context.Background()

	first := NewService(&fakeResolver{url: "https://cdn.example/a.mp3"}, WithBackend(backend))
	first.now = clock
	if _, err := first.URL(ctx, domain.SourceJoox, "1", 0); err != nil {
		t.Fatalf("url error: %v", err)
	}

	resolver := &fakeResolver{url: "https://cdn.example/b.mp3"}
	second := NewService(resolver, WithBackend(backend))
	second.now = clock

	now = now.Add(59 * time.Minute)
	result, err := second.URL(ctx, domain.SourceJoox, "1", 0)
	if err != nil || result.URL != "https://cdn.example/a.mp3" {
		t.Fatalf("expected shared entry, got %#v %v", result, err)
	}

	now = now.Add(2 * time.Minute)
	result, err = second.URL(ctx, domain.SourceJoox, "1", 0)
	if err != nil {
		t.Fatalf("url error: %v", err)
	}
	if result.URL != "https://cdn.example/b.mp3" || resolver.urlCalls.Load() != 1 {
		t.Fatalf("expected local copy to expire with the shared entry, got %#v after %d calls", result, resolver.urlCalls.Load())
	}
}

func TestConcurrentLookupsShareOneCall(t *testing.T) {
	resolver := &fakeResolver{url: "https://cdn.example/a.mp3", gate: make(chan struct{})}
	service := NewService(resolver)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.URL(context.Background(), domain.SourceJoox, "1", 0)
			errs <- err
		}()
	}
	close(resolver.gate)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("lookup error: %v", err)
		}
	}
	if resolver.urlCalls.Load() != 1 {
		t.Fatalf("expected one shared resolver call, got %d", resolver.urlCalls.Load())
	}
}

func TestCallerCancellationReturnsPromptly(t *testing.T) {
	resolver := &fakeResolver{url: "https://cdn.example/a.mp3", gate: make(chan struct{})}
	defer close(resolver.gate)
	service := NewService(resolver)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := service.URL(ctx, domain.SourceJoox, "1", 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestResolverErrorsAreWrapped(t *testing.T) {
	boom := errors.New("upstream down")
	service := NewService(&fakeResolver{err: boom})
	_, err := service.Picture(context.Background(), domain.SourceJoox, "1", 0)
	if !errors.Is(err, boom) || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected wrapped upstream error, got %v", err)
	}
}

func TestDisabledCacheAlwaysResolves(t *testing.T) {
	resolver := &fakeResolver{url: "https://cdn.example/a.mp3"}
	service := NewService(resolver, WithCacheDisabled(true))
	for i := 0; i < 2; i++ {
		if _, err := service.URL(context.Background(), domain.SourceJoox, "1", 0); err != nil {
			t.Fatalf("url error: %v", err)
		}
	}
	if resolver.urlCalls.Load() != 2 {
		t.Fatalf("expected every lookup to resolve, got %d", resolver.urlCalls.Load())
	}
}

func TestValidation(t *testing.T) {
	service := NewService(&fakeResolver{})
	cases := []struct {
		source domain.Source
		id     string
	}{
		{"", "1"},
		{domain.SourceAll, "1"},
		{domain.SourceJoox, "  "},
	}
	for _, tc := range cases {
		if _, err := service.URL(context.Background(), tc.source, tc.id, 0); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("%q/%q: expected ErrInvalidRequest, got %v", tc.source, tc.id, err)
		}
	}
}

func TestMemoryCacheTrimsOldest(t *testing.T) {
	cache := newMemoryCache(2)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.set("a", []byte("1"), time.Hour, now)
	cache.set("b", []byte("2"), time.Hour, now.Add(time.Second))
	cache.set("c", []byte("3"), time.Hour, now.Add(2*time.Second))

	if cache.len() != 2 {
		t.Fatalf("expected 2 entries, got %d", cache.len())
	}
	if _, ok := cache.get("a", now.Add(3*time.Second)); ok {
		t.Fatal("expected oldest entry evicted")
	}
}

func TestNilRedisBackendIsIgnored(t *testing.T) {
	if NewRedisBackend(nil) != nil {
		t.Fatal("expected nil backend for nil client")
	}
	service := NewService(&fakeResolver{}, WithBackend(NewRedisBackend(nil)))
	if service.backend != nil {
		t.Fatal("expected typed nil backend to be dropped")
	}
}
