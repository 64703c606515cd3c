// Package quality tracks per-source playback outcomes and turns them into a
// bounded ranking bonus.
package quality

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"ottermusic/searchservice/internal/domain"
	"ottermusic/searchservice/internal/metrics"
)

const (
	maxDynamicScore = 50.0
	scoreMultiplier = 20.0
	storeTimeout    = 3 * time.Second
)

type Stats struct {
	Success int64 `json:"success"`
	Fail    int64 `json:"fail"`
}

func (s Stats) Total() int64 {
	return s.Success + s.Fail
}

// Score rewards both a high success rate and a larger sample:
// rate * ln(total+1) * 20, capped at 50.
func (s Stats) Score() float64 {
	total := s.Total()
	if total <= 0 {
		return 0
	}
	rate := float64(s.Success) / float64(total)
	return math.Min(rate*math.Log(float64(total)+1)*scoreMultiplier, maxDynamicScore)
}

type Tracker struct {
	mu    sync.RWMutex
	stats map[domain.Source]Stats
	// writeMu orders store writes so the store never lags behind memory.
	writeMu sync.Mutex
	store   Store
	logger  *slog.Logger
}

type Option func(*Tracker)

func WithStore(store Store) Option {
	return func(t *Tracker) {
		t.store = store
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		stats:  make(map[domain.Source]Stats),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Load replaces in-memory stats with the persisted ones. A missing store or
// an unreadable one leaves every source at zero state.
func (t *Tracker) Load(ctx context.Context) {
	if t == nil || t.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	entries, err := t.store.Load(ctx)
	if err != nil {
		t.logger.Warn("quality stats load failed", slog.String("error", err.Error()))
		return
	}

	t.mu.Lock()
	t.stats = make(map[domain.Source]Stats, len(entries))
	for source, stats := range entries {
		t.stats[source] = stats
	}
	t.mu.Unlock()

	for source, stats := range entries {
		metrics.SourceDynamicScore.WithLabelValues(string(source)).Set(stats.Score())
	}
	t.logger.Info("quality stats loaded", slog.Int("sources", len(entries)))
}

func (t *Tracker) RecordSuccess(ctx context.Context, source domain.Source) {
	t.record(ctx, source, true)
}

func (t *Tracker) RecordFail(ctx context.Context, source domain.Source) {
	t.record(ctx, source, false)
}

func (t *Tracker) record(ctx context.Context, source domain.Source, success bool) {
	if t == nil {
		return
	}
	name := domain.NormalizeSource(string(source))
	if name == "" {
		return
	}

	t.mu.Lock()
	stats := t.stats[name]
	outcome := "fail"
	if success {
		stats.Success++
		outcome = "success"
	} else {
		stats.Fail++
	}
	t.stats[name] = stats
	t.mu.Unlock()

	metrics.PlaybackEventsTotal.WithLabelValues(string(name), outcome).Inc()
	metrics.SourceDynamicScore.WithLabelValues(string(name)).Set(stats.Score())
	t.persist(ctx, name)
}

// persist saves the stats current at write time. A source cleared by Reset in
// the meantime is not written back.
func (t *Tracker) persist(ctx context.Context, source domain.Source) {
	if t.store == nil {
		return
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.mu.RLock()
	stats, ok := t.stats[source]
	t.mu.RUnlock()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()
	if err := t.store.Save(ctx, source, stats); err != nil {
		t.logger.Warn("quality stats save failed",
			slog.String("source", string(source)),
			slog.String("error", err.Error()),
		)
	}
}

// DynamicScore returns a value in [0, 50]; sources without events score 0.
func (t *Tracker) DynamicScore(source domain.Source) float64 {
	return t.Stats(source).Score()
}

func (t *Tracker) Stats(source domain.Source) Stats {
	if t == nil {
		return Stats{}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stats[domain.NormalizeSource(string(source))]
}

func (t *Tracker) Snapshot() map[domain.Source]Stats {
	if t == nil {
		return map[domain.Source]Stats{}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[domain.Source]Stats, len(t.stats))
	for source, stats := range t.stats {
		out[source] = stats
	}
	return out
}

// Sources lists every source with recorded events in name order.
func (t *Tracker) Sources() []domain.Source {
	snapshot := t.Snapshot()
	out := make([]domain.Source, 0, len(snapshot))
	for source := range snapshot {
		out = append(out, source)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Reset forgets every recorded outcome, in memory and in the store.
func (t *Tracker) Reset(ctx context.Context) {
	if t == nil {
		return
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	t.mu.Lock()
	previous := t.stats
	t.stats = make(map[domain.Source]Stats)
	t.mu.Unlock()

	for source := range previous {
		metrics.SourceDynamicScore.WithLabelValues(string(source)).Set(0)
	}
	if t.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()
	if err := t.store.Clear(ctx); err != nil {
		t.logger.Warn("quality stats clear failed", slog.String("error", err.Error()))
	}
}
