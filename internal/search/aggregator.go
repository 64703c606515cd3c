package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"ottermusic/searchservice/internal/domain"
	"ottermusic/searchservice/internal/metrics"
)

// maxConcurrentSources limits the number of source queries that run at once.
const maxConcurrentSources = 10

type sourceResult struct {
	page domain.ProviderPage
	err  error
}

// Fetch dispatches request to an aggregated search when it selects "all" or
// names several sources, and to a single-source search otherwise.
func (s *Service) Fetch(ctx context.Context, request domain.SearchRequest) (domain.SearchPage, error) {
	source := domain.NormalizeSource(string(request.Source))
	switch {
	case source == domain.SourceAll, source == "" && len(request.Sources) != 1:
		return s.SearchAll(ctx, request)
	case source == "":
		source = request.Sources[0]
	}
	return s.Search(ctx, request.Query, source, request.Page, request.PageSize)
}

// SearchAll queries every selected source concurrently, isolates per-source
// failures and returns one merged, clustered and diversified page. A caller
// cancellation yields a page with Cancelled set and a nil error.
func (s *Service) SearchAll(ctx context.Context, request domain.SearchRequest) (domain.SearchPage, error) {
	query := strings.TrimSpace(request.Query)
	if query == "" {
		return domain.SearchPage{}, ErrInvalidQuery
	}
	if request.Page < 1 {
		return domain.SearchPage{}, ErrInvalidPage
	}
	selected, err := s.resolveSources(request.Sources)
	if err != nil {
		return domain.SearchPage{}, err
	}
	pageSize := s.effectivePageSize(request.PageSize)

	ctx, span := s.tracer.Start(ctx, "search.all", trace.WithAttributes(
		attribute.String("search.query", query),
		attribute.Int("search.page", request.Page),
		attribute.Int("search.sources", len(selected)),
	))
	defer span.End()

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startedAt := time.Now()
	providerRequest := domain.ProviderRequest{Query: query, Page: request.Page, PageSize: pageSize}
	results := make([]sourceResult, len(selected))

	sem := semaphore.NewWeighted(maxConcurrentSources)
	var wg sync.WaitGroup
	for i, provider := range selected {
		wg.Add(1)
		go func(index int, current Provider) {
			defer wg.Done()
			if err := sem.Acquire(runCtx, 1); err != nil {
				results[index] = sourceResult{err: err}
				return
			}
			defer sem.Release(1)
			page, err := s.searchSource(runCtx, current, providerRequest)
			results[index] = sourceResult{page: page, err: err}
		}(i, provider)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
	if ctx.Err() != nil {
		span.SetAttributes(attribute.Bool("search.cancelled", true))
		return cancelledPage(query, request.Page, pageSize), nil
	}

	statuses := make([]domain.SourceStatus, 0, len(selected))
	var tracks []domain.Track
	hasMore := false
	for i, provider := range selected {
		result := results[i]
		status := domain.SourceStatus{Source: provider.Name()}
		if result.err != nil {
			status.Error = result.err.Error()
			status.Cancelled = errors.Is(result.err, context.Canceled)
		} else {
			status.OK = true
			status.Count = len(result.page.Tracks)
			status.HasMore = result.page.HasMore
			hasMore = hasMore || result.page.HasMore
			tracks = append(tracks, result.page.Tracks...)
		}
		statuses = append(statuses, status)
	}

	items := MergeAndRank(tracks, query, s.table, s.quality)
	metrics.MergedClusters.Observe(float64(len(items)))

	page := domain.SearchPage{
		Query:     query,
		Items:     items,
		HasMore:   hasMore,
		Page:      request.Page,
		PageSize:  pageSize,
		Sources:   statuses,
		ElapsedMS: time.Since(startedAt).Milliseconds(),
	}
	if page.AllFailed() {
		span.SetStatus(codes.Error, "all sources failed")
		s.logger.Warn("aggregated search failed on every source",
			slog.String("query", query),
			slog.Int("sources", len(statuses)),
		)
	}
	s.logger.Debug("aggregated search completed",
		slog.String("query", query),
		slog.Int("page", request.Page),
		slog.Int("tracks", len(tracks)),
		slog.Int("items", len(items)),
		slog.Bool("hasMore", hasMore),
		slog.Int64("elapsedMs", page.ElapsedMS),
	)
	return page, nil
}

// Search queries one source. Results keep provider order; only exact
// duplicates are folded. A failing source returns an error wrapping
// ErrSourceFailed so callers can tell a failure from an empty result.
func (s *Service) Search(ctx context.Context, query string, source domain.Source, page, pageSize int) (domain.SearchPage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.SearchPage{}, ErrInvalidQuery
	}
	if page < 1 {
		return domain.SearchPage{}, ErrInvalidPage
	}
	provider, ok := s.provider(source)
	if !ok {
		return domain.SearchPage{}, fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}
	pageSize = s.effectivePageSize(pageSize)

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startedAt := time.Now()
	result, err := s.searchSource(runCtx, provider, domain.ProviderRequest{Query: query, Page: page, PageSize: pageSize})
	if ctx.Err() != nil {
		return cancelledPage(query, page, pageSize), nil
	}
	if err != nil {
		return domain.SearchPage{}, fmt.Errorf("%w: %s: %w", ErrSourceFailed, provider.Name(), err)
	}

	return domain.SearchPage{
		Query:    query,
		Items:    dedupeOnly(result.Tracks, s.table),
		HasMore:  result.HasMore,
		Page:     page,
		PageSize: pageSize,
		Sources: []domain.SourceStatus{{
			Source:  provider.Name(),
			OK:      true,
			Count:   len(result.Tracks),
			HasMore: result.HasMore,
		}},
		ElapsedMS: time.Since(startedAt).Milliseconds(),
	}, nil
}

// searchSource runs one provider call behind the circuit breaker, the
// per-source throttle and the retry policy.
func (s *Service) searchSource(ctx context.Context, provider Provider, request domain.ProviderRequest) (domain.ProviderPage, error) {
	source := provider.Name()
	ctx, span := s.tracer.Start(ctx, "search.source", trace.WithAttributes(
		attribute.String("search.source", string(source)),
		attribute.Int("search.page", request.Page),
	))
	defer span.End()

	now := time.Now()
	if blocked, until, lastErr := s.isSourceBlocked(source, now); blocked {
		err := fmt.Errorf("source temporarily unhealthy until %s: %s", until.UTC().Format(time.RFC3339), lastErr)
		span.SetStatus(codes.Error, err.Error())
		return domain.ProviderPage{}, err
	}
	if err := s.waitSourceRateLimit(ctx, source); err != nil {
		return domain.ProviderPage{}, fmt.Errorf("rate limit wait: %w", err)
	}

	startedAt := time.Now()
	var page domain.ProviderPage
	err := RetryWithBackoff(ctx, s.retry, func() error {
		var err error
		page, err = provider.Search(ctx, request)
		return err
	})
	s.recordSourceResult(source, request.Query, err, time.Since(startedAt), time.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if !errors.Is(err, context.Canceled) {
			s.logger.Warn("source search failed",
				slog.String("source", string(source)),
				slog.String("query", request.Query),
				slog.String("error", err.Error()),
			)
		}
		return domain.ProviderPage{}, err
	}
	span.SetAttributes(attribute.Int("search.tracks", len(page.Tracks)))
	return page, nil
}

func (s *Service) resolveSources(names []domain.Source) ([]Provider, error) {
	requested := uniqueSources(names)
	if len(requested) == 0 {
		requested = s.aggregated
	}
	if len(requested) == 0 {
		return nil, ErrNoSources
	}
	selected := make([]Provider, 0, len(requested))
	for _, name := range requested {
		provider, ok := s.provider(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSource, name)
		}
		selected = append(selected, provider)
	}
	return selected, nil
}

func (s *Service) effectivePageSize(size int) int {
	if size <= 0 {
		return s.pageSize
	}
	return domain.NormalizePageSize(size)
}

func cancelledPage(query string, page, pageSize int) domain.SearchPage {
	return domain.SearchPage{
		Query:     query,
		Items:     []domain.MergedTrack{},
		Page:      page,
		PageSize:  pageSize,
		Cancelled: true,
	}
}
