package search

import (
	"context"
	"errors"
	"strings"
	"sync"

	"ottermusic/searchservice/internal/domain"
	"ottermusic/searchservice/internal/metrics"
	"ottermusic/searchservice/internal/musickey"
)

var (
	ErrInvalidTransition = errors.New("load more requires a settled session")
	ErrNoMorePages       = errors.New("no more pages")
	ErrAllSourcesFailed  = errors.New("all sources failed")
)

type SessionState string

const (
	StateIdle     SessionState = "idle"
	StateFetching SessionState = "fetching"
	StateSettled  SessionState = "settled"
	StateFailed   SessionState = "failed"
)

// FetchOutcome reports what happened to the result of one fetch.
type FetchOutcome string

const (
	OutcomeApplied    FetchOutcome = "applied"
	OutcomeSuperseded FetchOutcome = "superseded"
	OutcomeCancelled  FetchOutcome = "cancelled"
	OutcomeFailed     FetchOutcome = "failed"
)

// Fetcher is satisfied by *Service.
type Fetcher interface {
	Fetch(ctx context.Context, request domain.SearchRequest) (domain.SearchPage, error)
}

// Session is one logical search as seen by a client: a query, the pages
// committed so far and at most one fetch in flight. A fetch only commits if
// no newer Submit or LoadMore started after it.
type Session struct {
	fetcher  Fetcher
	source   domain.Source
	sources  []domain.Source
	pageSize int

	mu         sync.Mutex
	generation uint64
	state      SessionState
	query      string
	page       int
	hasMore    bool
	items      []domain.MergedTrack
	seen       map[string]struct{}
	lastErr    error
	cancel     context.CancelFunc
}

type SessionSnapshot struct {
	State      SessionState         `json:"state"`
	Query      string               `json:"query"`
	Page       int                  `json:"page"`
	HasMore    bool                 `json:"hasMore"`
	Items      []domain.MergedTrack `json:"items"`
	Error      string               `json:"error,omitempty"`
	Generation uint64               `json:"generation"`
}

type SessionOption func(*Session)

// WithSessionSource pins the session to one source, or to "all".
func WithSessionSource(source domain.Source) SessionOption {
	return func(s *Session) {
		s.source = domain.NormalizeSource(string(source))
	}
}

func WithSessionSources(sources ...domain.Source) SessionOption {
	return func(s *Session) {
		s.sources = uniqueSources(sources)
	}
}

func WithSessionPageSize(size int) SessionOption {
	return func(s *Session) {
		s.pageSize = size
	}
}

func NewSession(fetcher Fetcher, opts ...SessionOption) *Session {
	s := &Session{
		fetcher: fetcher,
		source:  domain.SourceAll,
		state:   StateIdle,
		seen:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit starts a new query from page 1, superseding any fetch in flight.
// It is valid from every state.
func (s *Session) Submit(ctx context.Context, query string) (FetchOutcome, error) {
	s.mu.Lock()
	s.generation++
	generation := s.generation
	if s.cancel != nil {
		s.cancel()
	}
	s.state = StateFetching
	s.query = strings.TrimSpace(query)
	s.page = 0
	s.hasMore = false
	s.items = nil
	s.seen = make(map[string]struct{})
	s.lastErr = nil
	fetchCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	request := s.requestLocked(1)
	s.mu.Unlock()

	return s.run(fetchCtx, cancel, generation, request, true)
}

// LoadMore fetches the next page. It is only valid from StateSettled while
// more pages are available.
func (s *Session) LoadMore(ctx context.Context) (FetchOutcome, error) {
	s.mu.Lock()
	if s.state != StateSettled {
		s.mu.Unlock()
		return "", ErrInvalidTransition
	}
	if !s.hasMore {
		s.mu.Unlock()
		return "", ErrNoMorePages
	}
	s.generation++
	generation := s.generation
	s.state = StateFetching
	fetchCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	request := s.requestLocked(s.page + 1)
	s.mu.Unlock()

	return s.run(fetchCtx, cancel, generation, request, false)
}

// Cancel abandons the fetch in flight, if any. The session returns to the
// state it had before that fetch started.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := SessionSnapshot{
		State:      s.state,
		Query:      s.query,
		Page:       s.page,
		HasMore:    s.hasMore,
		Items:      domain.CloneMergedTracks(s.items),
		Generation: s.generation,
	}
	if snapshot.Items == nil {
		snapshot.Items = []domain.MergedTrack{}
	}
	if s.lastErr != nil {
		snapshot.Error = s.lastErr.Error()
	}
	return snapshot
}

func (s *Session) requestLocked(page int) domain.SearchRequest {
	return domain.SearchRequest{
		Query:    s.query,
		Source:   s.source,
		Sources:  append([]domain.Source(nil), s.sources...),
		Page:     page,
		PageSize: s.pageSize,
	}
}

func (s *Session) run(ctx context.Context, cancel context.CancelFunc, generation uint64, request domain.SearchRequest, reset bool) (FetchOutcome, error) {
	result, err := s.fetcher.Fetch(ctx, request)
	cancelled := ctx.Err() != nil || result.Cancelled || errors.Is(err, context.Canceled)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		metrics.SessionFetchesTotal.WithLabelValues(string(OutcomeSuperseded)).Inc()
		return OutcomeSuperseded, nil
	}
	s.cancel = nil

	if cancelled {
		if reset {
			s.state = StateIdle
		} else {
			s.state = StateSettled
		}
		metrics.SessionFetchesTotal.WithLabelValues(string(OutcomeCancelled)).Inc()
		return OutcomeCancelled, nil
	}
	if err == nil && result.AllFailed() {
		err = ErrAllSourcesFailed
	}
	if err != nil {
		s.state = StateFailed
		s.lastErr = err
		metrics.SessionFetchesTotal.WithLabelValues(string(OutcomeFailed)).Inc()
		return OutcomeFailed, err
	}

	for _, item := range result.Items {
		key := musickey.TrackKey(item.Track)
		if _, ok := s.seen[key]; ok {
			continue
		}
		s.seen[key] = struct{}{}
		s.items = append(s.items, item)
	}
	s.page = request.Page
	s.hasMore = result.HasMore
	s.state = StateSettled
	metrics.SessionFetchesTotal.WithLabelValues(string(OutcomeApplied)).Inc()
	return OutcomeApplied, nil
}
