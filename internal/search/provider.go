package search

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"ottermusic/searchservice/internal/domain"
)

var (
	ErrInvalidQuery  = errors.New("query is required")
	ErrInvalidPage   = errors.New("page must be >= 1")
	ErrNoSources     = errors.New("no search sources selected")
	ErrUnknownSource = errors.New("unknown source")
	ErrSourceFailed  = errors.New("source search failed")
)

// Provider is one music-search backend.
type Provider interface {
	Name() domain.Source
	Info() domain.SourceInfo
	Search(ctx context.Context, request domain.ProviderRequest) (domain.ProviderPage, error)
}

type Service struct {
	providers  map[domain.Source]Provider
	order      []domain.Source
	timeout    time.Duration
	table      SourceTable
	quality    QualityScorer
	aggregated []domain.Source
	pageSize   int
	retry      RetryConfig
	logger     *slog.Logger
	tracer     trace.Tracer

	sourceRPS   float64
	sourceBurst int
	limiterMu   sync.Mutex
	limiters    map[domain.Source]*rate.Limiter

	healthMu sync.Mutex
	health   map[domain.Source]*sourceHealth
}

type ServiceOption func(*Service)

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithSourceTable(table SourceTable) ServiceOption {
	return func(s *Service) {
		if len(table.Priority) > 0 || len(table.Weights) > 0 {
			s.table = table
		}
	}
}

func WithQuality(scorer QualityScorer) ServiceOption {
	return func(s *Service) {
		s.quality = scorer
	}
}

// WithAggregatedSources sets the sources queried when an aggregated search
// does not name any.
func WithAggregatedSources(sources ...domain.Source) ServiceOption {
	return func(s *Service) {
		s.aggregated = uniqueSources(sources)
	}
}

func WithPageSize(size int) ServiceOption {
	return func(s *Service) {
		if size > 0 {
			s.pageSize = domain.NormalizePageSize(size)
		}
	}
}

func WithRetryConfig(cfg RetryConfig) ServiceOption {
	return func(s *Service) {
		s.retry = cfg
	}
}

// WithSourceRateLimit throttles requests to each source independently.
// A non-positive rps disables throttling.
func WithSourceRateLimit(rps float64, burst int) ServiceOption {
	return func(s *Service) {
		s.sourceRPS = rps
		if burst < 1 {
			burst = 1
		}
		s.sourceBurst = burst
	}
}

func NewService(providers []Provider, timeout time.Duration, opts ...ServiceOption) *Service {
	registry := make(map[domain.Source]Provider, len(providers))
	order := make([]domain.Source, 0, len(providers))
	for _, provider := range providers {
		if provider == nil {
			continue
		}
		name := domain.NormalizeSource(string(provider.Name()))
		if name == "" || name == domain.SourceAll {
			continue
		}
		if _, exists := registry[name]; !exists {
			order = append(order, name)
		}
		registry[name] = provider
	}

	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	svc := &Service{
		providers:  registry,
		order:      order,
		timeout:    timeout,
		table:      DefaultSourceTable(),
		aggregated: []domain.Source{domain.SourceJoox, domain.SourceNetease},
		pageSize:   domain.DefaultPageSize,
		retry:      DefaultRetryConfig(),
		logger:     slog.Default(),
		tracer:     otel.Tracer("ottermusic/searchservice/search"),
		limiters:   make(map[domain.Source]*rate.Limiter),
		health:     make(map[domain.Source]*sourceHealth),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Table returns the ranking configuration in effect.
func (s *Service) Table() SourceTable {
	return s.table
}

// AggregatedSources returns the default source set of aggregated searches.
func (s *Service) AggregatedSources() []domain.Source {
	return append([]domain.Source(nil), s.aggregated...)
}

func (s *Service) Sources() []domain.SourceInfo {
	if len(s.providers) == 0 {
		return nil
	}
	aggregated := make(map[domain.Source]struct{}, len(s.aggregated))
	for _, source := range s.aggregated {
		aggregated[source] = struct{}{}
	}

	items := make([]domain.SourceInfo, 0, len(s.providers))
	for _, name := range s.order {
		info := s.providers[name].Info()
		info.Name = name
		if info.Label == "" {
			info.Label = string(name)
		}
		info.Priority = s.table.Rank(name)
		info.Weight = s.table.Weight(name)
		_, info.Aggregated = aggregated[name]
		items = append(items, info)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority < items[j].Priority
		}
		return items[i].Name < items[j].Name
	})
	return items
}

func (s *Service) provider(source domain.Source) (Provider, bool) {
	provider, ok := s.providers[domain.NormalizeSource(string(source))]
	return provider, ok
}

func (s *Service) waitSourceRateLimit(ctx context.Context, source domain.Source) error {
	if s.sourceRPS <= 0 {
		return nil
	}
	s.limiterMu.Lock()
	limiter := s.limiters[source]
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Limit(s.sourceRPS), s.sourceBurst)
		s.limiters[source] = limiter
	}
	s.limiterMu.Unlock()
	return limiter.Wait(ctx)
}

func uniqueSources(sources []domain.Source) []domain.Source {
	out := make([]domain.Source, 0, len(sources))
	seen := make(map[domain.Source]struct{}, len(sources))
	for _, source := range sources {
		name := domain.NormalizeSource(string(source))
		if name == "" || name == domain.SourceAll {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
