package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ottermusic/searchservice/internal/domain"
)

type fakeProvider struct {
	name     domain.Source
	tracks   []domain.Track
	hasMore  bool
	hits     atomic.Int32
	mu       sync.Mutex
	requests []domain.ProviderRequest
}

func (p *fakeProvider) Name() domain.Source { return p.name }

func (p *fakeProvider) Info() domain.SourceInfo {
	return domain.SourceInfo{Name: p.name, Label: string(p.name), Kind: "test", Enabled: true}
}

func (p *fakeProvider) Search(ctx context.Context, request domain.ProviderRequest) (domain.ProviderPage, error) {
	_ = ctx
	p.hits.Add(1)
	p.mu.Lock()
	p.requests = append(p.requests, request)
	p.mu.Unlock()
	return domain.ProviderPage{Tracks: append([]domain.Track(nil), p.tracks...), HasMore: p.hasMore}, nil
}

type failingProvider struct {
	name domain.Source
	err  error
	hits atomic.Int32
}

func (p *failingProvider) Name() domain.Source { return p.name }

func (p *failingProvider) Info() domain.SourceInfo {
	return domain.SourceInfo{Name: p.name, Label: string(p.name), Kind: "test", Enabled: true}
}

func (p *failingProvider) Search(ctx context.Context, request domain.ProviderRequest) (domain.ProviderPage, error) {
	p.hits.Add(1)
	return domain.ProviderPage{}, p.err
}

type slowProvider struct {
	name    domain.Source
	tracks  []domain.Track
	delay   time.Duration
	started chan struct{}
	once    sync.Once
}

func (p *slowProvider) Name() domain.Source { return p.name }

func (p *slowProvider) Info() domain.SourceInfo {
	return domain.SourceInfo{Name: p.name, Label: string(p.name), Kind: "test", Enabled: true}
}

func (p *slowProvider) Search(ctx context.Context, request domain.ProviderRequest) (domain.ProviderPage, error) {
	if p.started != nil {
		p.once.Do(func() { close(p.started) })
	}
	select {
	case <-time.After(p.delay):
		return domain.ProviderPage{Tracks: append([]domain.Track(nil), p.tracks...)}, nil
	case <-ctx.Done():
		return domain.ProviderPage{}, ctx.Err()
	}
}

func noRetry() ServiceOption {
	return WithRetryConfig(RetryConfig{MaxAttempts: 1})
}

func TestSearchAllMergesSources(t *testing.T) {
	joox := &fakeProvider{name: domain.SourceJoox, tracks: []domain.Track{
		track(domain.SourceJoox, "j1", "告白氣球", "周杰倫"),
		track(domain.SourceJoox, "j2", "晴天", "周杰倫"),
	}}
	netease := &fakeProvider{name: domain.SourceNetease, hasMore: true, tracks: []domain.Track{
		track(domain.SourceNetease, "n1", "告白气球 (Live)", "周杰伦"),
	}}
	service := NewService([]Provider{joox, netease}, 2*time.Second, noRetry())

	page, err := service.SearchAll(context.Background(), domain.SearchRequest{Query: "告白气球", Page: 1})
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 merged items, got %d", len(page.Items))
	}
	first := page.Items[0]
	if first.ID != "j1" || len(first.Variants) != 1 || first.Variants[0].ID != "n1" {
		t.Fatalf("unexpected top item: %#v", first)
	}
	if !page.HasMore {
		t.Fatalf("expected hasMore from netease")
	}
	if len(page.Sources) != 2 || !page.Sources[0].OK || !page.Sources[1].OK {
		t.Fatalf("unexpected statuses: %#v", page.Sources)
	}
	if page.PageSize != domain.DefaultPageSize {
		t.Fatalf("expected default page size, got %d", page.PageSize)
	}
}

func TestSearchAllPassesPagingToProviders(t *testing.T) {
	joox := &fakeProvider{name: domain.SourceJoox}
	service := NewService([]Provider{joox}, time.Second, noRetry())

	_, err := service.SearchAll(context.Background(), domain.SearchRequest{
		Query:    "  hello ",
		Page:     3,
		PageSize: 7,
		Sources:  []domain.Source{domain.SourceJoox},
	})
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(joox.requests) != 1 {
		t.Fatalf("expected one request, got %d", len(joox.requests))
	}
	got := joox.requests[0]
	if got.Query != "hello" || got.Page != 3 || got.PageSize != 7 {
		t.Fatalf("unexpected provider request: %#v", got)
	}
}

func TestSearchAllIsolatesSourceFailure(t *testing.T) {
	service := NewService([]Provider{
		&failingProvider{name: domain.SourceJoox, err: errors.New("bad gateway")},
		&fakeProvider{name: domain.SourceNetease, tracks: []domain.Track{track(domain.SourceNetease, "n1", "Hello", "Adele")}},
	}, 2*time.Second, noRetry())

	page, err := service.SearchAll(context.Background(), domain.SearchRequest{Query: "hello", Page: 1})
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != "n1" {
		t.Fatalf("expected netease item, got %#v", page.Items)
	}
	if page.AllFailed() {
		t.Fatalf("one source succeeded")
	}
	if page.Sources[0].OK || !strings.Contains(page.Sources[0].Error, "bad gateway") {
		t.Fatalf("expected failed joox status, got %#v", page.Sources[0])
	}
}

func TestSearchAllReportsTotalFailure(t *testing.T) {
	service := NewService([]Provider{
		&failingProvider{name: domain.SourceJoox, err: errors.New("boom")},
		&failingProvider{name: domain.SourceNetease, err: errors.New("boom")},
	}, time.Second, noRetry())

	page, err := service.SearchAll(context.Background(), domain.SearchRequest{Query: "hello", Page: 1})
	if err != nil {
		t.Fatalf("total failure must not be an error, got %v", err)
	}
	if !page.AllFailed() || len(page.Items) != 0 || page.HasMore {
		t.Fatalf("expected empty failed page, got %#v", page)
	}
}

func TestSearchAllCancellationReturnsCancelledPage(t *testing.T) {
	slow := &slowProvider{name: domain.SourceJoox, delay: 5 * time.Second, started: make(chan struct{})}
	service := NewService([]Provider{slow, &fakeProvider{name: domain.SourceNetease}}, 10*time.Second, noRetry())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-slow.started
		cancel()
	}()

	startedAt := time.Now()
	page, err := service.SearchAll(ctx, domain.SearchRequest{Query: "hello", Page: 1})
	if err != nil {
		t.Fatalf("cancellation must not be an error, got %v", err)
	}
	if !page.Cancelled {
		t.Fatalf("expected cancelled page")
	}
	if len(page.Items) != 0 {
		t.Fatalf("cancelled page must be empty")
	}
	if elapsed := time.Since(startedAt); elapsed > 2*time.Second {
		t.Fatalf("cancellation took too long: %v", elapsed)
	}
}

func TestSearchAllTimeoutIsSourceFailure(t *testing.T) {
	service := NewService([]Provider{
		&slowProvider{name: domain.SourceJoox, delay: 2 * time.Second},
		&fakeProvider{name: domain.SourceNetease, tracks: []domain.Track{track(domain.SourceNetease, "n1", "Hello", "Adele")}},
	}, 50*time.Millisecond, noRetry())

	page, err := service.SearchAll(context.Background(), domain.SearchRequest{Query: "hello", Page: 1})
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if page.Cancelled {
		t.Fatalf("service timeout is not a caller cancellation")
	}
	if page.Sources[0].OK || page.Sources[0].Cancelled {
		t.Fatalf("expected timed out joox status, got %#v", page.Sources[0])
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected netease item, got %d", len(page.Items))
	}
}

func TestSearchAllValidation(t *testing.T) {
	service := NewService([]Provider{&fakeProvider{name: domain.SourceJoox}}, time.Second)
	ctx := context.Background()

	if _, err := service.SearchAll(ctx, domain.SearchRequest{Query: "   ", Page: 1}); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
	if _, err := service.SearchAll(ctx, domain.SearchRequest{Query: "x", Page: 0, Sources: []domain.Source{domain.SourceJoox}}); !errors.Is(err, ErrInvalidPage) {
		t.Fatalf("expected ErrInvalidPage, got %v", err)
	}
	if _, err := service.SearchAll(ctx, domain.SearchRequest{Query: "x", Page: 1, Sources: []domain.Source{"qq"}}); !errors.Is(err, ErrUnknownSource) {
		t.Fatalf("expected ErrUnknownSource, got %v", err)
	}
	// Default aggregated sources include netease, which is not registered.
	if _, err := service.SearchAll(ctx, domain.SearchRequest{Query: "x", Page: 1}); !errors.Is(err, ErrUnknownSource) {
		t.Fatalf("expected ErrUnknownSource for default sources, got %v", err)
	}

	empty := NewService([]Provider{&fakeProvider{name: domain.SourceJoox}}, time.Second, WithAggregatedSources())
	if _, err := empty.SearchAll(ctx, domain.SearchRequest{Query: "x", Page: 1}); !errors.Is(err, ErrNoSources) {
		t.Fatalf("expected ErrNoSources, got %v", err)
	}
}

func TestSearchSingleSourceKeepsOrderAndFoldsExactDuplicates(t *testing.T) {
	service := NewService([]Provider{&fakeProvider{name: domain.SourceKuwo, hasMore: true, tracks: []domain.Track{
		track(domain.SourceKuwo, "1", "Zebra", "X"),
		track(domain.SourceKuwo, "2", "Apple", "Y"),
		track(domain.SourceKuwo, "3", "zebra", "x"),
	}}}, time.Second, noRetry())

	page, err := service.Search(context.Background(), "zebra", domain.SourceKuwo, 1, 0)
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(page.Items) != 2 || page.Items[0].ID != "1" || page.Items[1].ID != "2" {
		t.Fatalf("unexpected items: %s", describe(page.Items))
	}
	if !page.HasMore || len(page.Sources) != 1 || page.Sources[0].Count != 3 {
		t.Fatalf("unexpected page metadata: %#v", page)
	}
}

func TestSearchSingleSourceFailureIsDistinguishable(t *testing.T) {
	service := NewService([]Provider{
		&failingProvider{name: domain.SourceJoox, err: errors.New("upstream 500")},
		&fakeProvider{name: domain.SourceNetease},
	}, time.Second, noRetry())

	_, err := service.Search(context.Background(), "hello", domain.SourceJoox, 1, 10)
	if !errors.Is(err, ErrSourceFailed) {
		t.Fatalf("expected ErrSourceFailed, got %v", err)
	}

	page, err := service.Search(context.Background(), "hello", domain.SourceNetease, 1, 10)
	if err != nil {
		t.Fatalf("empty result must not be an error, got %v", err)
	}
	if len(page.Items) != 0 || page.Cancelled {
		t.Fatalf("expected empty page, got %#v", page)
	}

	if _, err := service.Search(context.Background(), "hello", "qq", 1, 10); !errors.Is(err, ErrUnknownSource) {
		t.Fatalf("expected ErrUnknownSource, got %v", err)
	}
}

func TestSearchSingleSourceCancellation(t *testing.T) {
	slow := &slowProvider{name: domain.SourceJoox, delay: 5 * time.Second, started: make(chan struct{})}
	service := NewService([]Provider{slow}, 10*time.Second, noRetry())
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-slow.started
		cancel()
	}()

	page, err := service.Search(ctx, "hello", domain.SourceJoox, 1, 10)
	if err != nil {
		t.Fatalf("cancellation must not be an error, got %v", err)
	}
	if !page.Cancelled {
		t.Fatalf("expected cancelled page")
	}
}

func TestFetchDispatchesBySource(t *testing.T) {
	joox := &fakeProvider{name: domain.SourceJoox}
	netease := &fakeProvider{name: domain.SourceNetease}
	service := NewService([]Provider{joox, netease}, time.Second, noRetry())
	ctx := context.Background()

	if _, err := service.Fetch(ctx, domain.SearchRequest{Query: "x", Source: domain.SourceAll, Page: 1}); err != nil {
		t.Fatalf("aggregated fetch: %v", err)
	}
	if joox.hits.Load() != 1 || netease.hits.Load() != 1 {
		t.Fatalf("expected both sources queried, got %d/%d", joox.hits.Load(), netease.hits.Load())
	}

	page, err := service.Fetch(ctx, domain.SearchRequest{Query: "x", Source: "JOOX", Page: 1})
	if err != nil {
		t.Fatalf("single fetch: %v", err)
	}
	if joox.hits.Load() != 2 || netease.hits.Load() != 1 {
		t.Fatalf("expected only joox queried, got %d/%d", joox.hits.Load(), netease.hits.Load())
	}
	if len(page.Sources) != 1 || page.Sources[0].Source != domain.SourceJoox {
		t.Fatalf("unexpected statuses: %#v", page.Sources)
	}

	if _, err := service.Fetch(ctx, domain.SearchRequest{Query: "x", Sources: []domain.Source{domain.SourceNetease}, Page: 1}); err != nil {
		t.Fatalf("single-source list fetch: %v", err)
	}
	if netease.hits.Load() != 2 || joox.hits.Load() != 2 {
		t.Fatalf("expected only netease queried, got %d/%d", joox.hits.Load(), netease.hits.Load())
	}
}

func TestCircuitBreakerSkipsBlockedSource(t *testing.T) {
	failing := &failingProvider{name: domain.SourceJoox, err: fmt.Errorf("connection timeout")}
	service := NewService([]Provider{failing, &fakeProvider{name: domain.SourceNetease}}, time.Second, noRetry())
	ctx := context.Background()

	for i := 0; i < sourceFailureThreshold; i++ {
		if _, err := service.SearchAll(ctx, domain.SearchRequest{Query: "x", Page: 1}); err != nil {
			t.Fatalf("search error: %v", err)
		}
	}
	page, err := service.SearchAll(ctx, domain.SearchRequest{Query: "x", Page: 1})
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if got := failing.hits.Load(); got != sourceFailureThreshold {
		t.Fatalf("blocked source should not be called, got %d calls", got)
	}
	if !strings.Contains(page.Sources[0].Error, "temporarily unhealthy") {
		t.Fatalf("expected blocked status, got %#v", page.Sources[0])
	}

	diagnostics := service.SourceDiagnostics()
	var joox domain.SourceDiagnostics
	for _, item := range diagnostics {
		if item.Name == domain.SourceJoox {
			joox = item
		}
	}
	if joox.BlockedUntil == nil || joox.ConsecutiveFailures != sourceFailureThreshold || joox.TimeoutCount != sourceFailureThreshold {
		t.Fatalf("unexpected diagnostics: %#v", joox)
	}
}

func TestSourcesOrderedByPriority(t *testing.T) {
	service := NewService([]Provider{
		&fakeProvider{name: domain.SourceNetease},
		&fakeProvider{name: "qq"},
		&fakeProvider{name: domain.SourceKuwo},
		&fakeProvider{name: domain.SourceJoox},
	}, time.Second)

	infos := service.Sources()
	want := []domain.Source{domain.SourceKuwo, domain.SourceJoox, domain.SourceNetease, "qq"}
	if len(infos) != len(want) {
		t.Fatalf("expected %d sources, got %d", len(want), len(infos))
	}
	for i, name := range want {
		if infos[i].Name != name {
			t.Fatalf("position %d: expected %s, got %s", i, name, infos[i].Name)
		}
	}
	if !infos[1].Aggregated || infos[0].Aggregated {
		t.Fatalf("expected joox aggregated by default and kuwo not")
	}
	if infos[0].Weight != 30 {
		t.Fatalf("expected kuwo weight 30, got %.0f", infos[0].Weight)
	}
}

func TestSourceDiagnosticsIncludeQuality(t *testing.T) {
	service := NewService([]Provider{&fakeProvider{name: domain.SourceJoox}}, time.Second,
		WithQuality(fakeScorer{domain.SourceJoox: 12}))
	diagnostics := service.SourceDiagnostics()
	if len(diagnostics) != 1 || diagnostics[0].DynamicScore != 12 {
		t.Fatalf("unexpected diagnostics: %#v", diagnostics)
	}
}

func TestNewServiceSkipsNilAndDefaultsTimeout(t *testing.T) {
	service := NewService([]Provider{nil, &fakeProvider{name: " Joox "}}, 0)
	if service.timeout != 15*time.Second {
		t.Fatalf("expected default timeout, got %v", service.timeout)
	}
	if _, ok := service.provider(domain.SourceJoox); !ok {
		t.Fatalf("expected normalized provider name")
	}
}

func TestSourceRateLimitHonoursCancellation(t *testing.T) {
	joox := &fakeProvider{name: domain.SourceJoox}
	service := NewService([]Provider{joox}, time.Second, noRetry(), WithSourceRateLimit(0.001, 1))
	ctx := context.Background()

	if _, err := service.Search(ctx, "x", domain.SourceJoox, 1, 10); err != nil {
		t.Fatalf("first call uses the burst: %v", err)
	}
	_, err := service.Search(ctx, "x", domain.SourceJoox, 1, 10)
	if !errors.Is(err, ErrSourceFailed) {
		t.Fatalf("expected throttled call to fail, got %v", err)
	}
	if joox.hits.Load() != 1 {
		t.Fatalf("throttled call must not reach the provider")
	}
}
