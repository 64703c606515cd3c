package apihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"ottermusic/searchservice/internal/domain"
	"ottermusic/searchservice/internal/lookup"
	"ottermusic/searchservice/internal/quality"
	"ottermusic/searchservice/internal/search"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type SearchService interface {
	Fetch(ctx context.Context, request domain.SearchRequest) (domain.SearchPage, error)
	Sources() []domain.SourceInfo
	SourceDiagnostics() []domain.SourceDiagnostics
}

type QualityService interface {
	RecordSuccess(ctx context.Context, source domain.Source)
	RecordFail(ctx context.Context, source domain.Source)
	Stats(source domain.Source) quality.Stats
	Snapshot() map[domain.Source]quality.Stats
	Reset(ctx context.Context)
}

type LookupService interface {
	URL(ctx context.Context, source domain.Source, id string, br int) (domain.SongURL, error)
	Picture(ctx context.Context, source domain.Source, id string, size int) (domain.Picture, error)
	Lyric(ctx context.Context, source domain.Source, id string) (domain.Lyric, error)
}

type Server struct {
	search       SearchService
	quality      QualityService
	lookup       LookupService
	logger       *slog.Logger
	rateRPS      float64
	rateBurst    int
	validateURL  func(ctx context.Context, u *url.URL) error
	imageTimeout time.Duration
}

type qualityItem struct {
	Source       domain.Source `json:"source"`
	Success      int64         `json:"success"`
	Fail         int64         `json:"fail"`
	Total        int64         `json:"total"`
	DynamicScore float64       `json:"dynamicScore"`
}

type playbackEvent struct {
	Source  string `json:"source"`
	Outcome string `json:"outcome"`
}

const (
	maxQueryLength   = 200
	defaultRateRPS   = 50
	defaultRateBurst = 100
)

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithQuality(quality QualityService) ServerOption {
	return func(s *Server) {
		s.quality = quality
	}
}

func WithLookup(lookup LookupService) ServerOption {
	return func(s *Server) {
		s.lookup = lookup
	}
}

// WithRateLimit sets the global request budget; rps <= 0 keeps the default.
func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) {
		if rps > 0 {
			s.rateRPS = rps
		}
		if burst > 0 {
			s.rateBurst = burst
		}
	}
}

func NewServer(searchService SearchService, options ...ServerOption) *Server {
	server := &Server{
		search:       searchService,
		logger:       slog.Default(),
		rateRPS:      defaultRateRPS,
		rateBurst:    defaultRateBurst,
		validateURL:  validateProxyURL,
		imageTimeout: 12 * time.Second,
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	if server.logger == nil {
		server.logger = slog.Default()
	}
	return server
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/search/sources", s.handleSources)
	mux.HandleFunc("/search/sources/health", s.handleSourcesHealth)
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/quality", s.handleQuality)
	mux.HandleFunc("/quality/events", s.handleQualityEvents)
	mux.HandleFunc("/tracks/url", s.handleTrackURL)
	mux.HandleFunc("/tracks/pic", s.handleTrackPicture)
	mux.HandleFunc("/tracks/lyric", s.handleTrackLyric)
	mux.HandleFunc("/tracks/cover", s.handleTrackCover)
	var labels sourceLabeler
	if s.search != nil {
		labels = newSourceLabeler(s.search.Sources())
	}
	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, labels, mux), "music-search",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/health"
		}),
	)
	return recoveryMiddleware(s.logger, rateLimitMiddleware(s.rateRPS, s.rateBurst, metricsMiddleware(labels, traced)))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query is required")
		return
	}
	if len([]rune(query)) > maxQueryLength {
		writeError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("query too long (max %d characters)", maxQueryLength))
		return
	}
	page, err := parsePositiveInt(r, "page", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid page")
		return
	}
	count, err := parsePositiveInt(r, "count", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid count")
		return
	}

	source := domain.NormalizeSource(r.URL.Query().Get("source"))
	sources := parseSources(r.URL.Query().Get("sources"))
	if source == "" && len(sources) == 0 {
		source = domain.SourceAll
	}

	result, err := s.search.Fetch(r.Context(), domain.SearchRequest{
		Query:    query,
		Source:   source,
		Sources:  sources,
		Page:     page,
		PageSize: count,
	})
	if err != nil {
		s.logger.Warn("search request failed",
			slog.String("query", truncate(query, 80)),
			slog.String("source", string(source)),
			slog.Any("sources", sources),
			slog.String("error", err.Error()),
		)
		writeSearchError(w, err)
		return
	}
	if result.Cancelled {
		// The client is gone; nothing useful can be written.
		return
	}
	if result.AllFailed() {
		s.logger.Warn("search failed on every source",
			slog.String("query", truncate(query, 80)),
			slog.Int("sources", len(result.Sources)),
		)
		writeError(w, http.StatusBadGateway, "sources_unavailable", "all music sources failed")
		return
	}

	failedSources := make([]string, 0, len(result.Sources))
	for _, status := range result.Sources {
		if !status.OK {
			failedSources = append(failedSources, string(status.Source))
		}
	}
	s.logger.Info("search completed",
		slog.String("query", truncate(query, 80)),
		slog.String("source", string(source)),
		slog.Int("page", result.Page),
		slog.Int("items", len(result.Items)),
		slog.Int64("elapsedMs", result.ElapsedMS),
		slog.Int("failedSources", len(failedSources)),
	)
	if len(failedSources) > 0 {
		s.logger.Warn("search sources partially failed",
			slog.String("query", truncate(query, 80)),
			slog.Any("failedSources", failedSources),
		)
	}

	writeJSON(w, http.StatusOK, result)
}

func writeSearchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, search.ErrInvalidQuery),
		errors.Is(err, search.ErrInvalidPage),
		errors.Is(err, search.ErrUnknownSource):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, search.ErrNoSources):
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", err.Error())
	case errors.Is(err, search.ErrSourceFailed):
		writeError(w, http.StatusBadGateway, "upstream_error", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "search failed")
	}
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search/sources" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": s.search.Sources(),
	})
}

func (s *Server) handleSourcesHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search/sources/health" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"checkedAt": time.Now().UTC(),
		"items":     s.search.SourceDiagnostics(),
	})
}

func (s *Server) handleQuality(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/quality" {
		http.NotFound(w, r)
		return
	}
	if s.quality == nil {
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", "quality tracking is not configured")
		return
	}

	switch r.Method {
	case http.MethodGet:
		snapshot := s.quality.Snapshot()
		sources := make([]domain.Source, 0, len(snapshot))
		for source := range snapshot {
			sources = append(sources, source)
		}
		slices.Sort(sources)
		items := make([]qualityItem, 0, len(sources))
		for _, source := range sources {
			items = append(items, newQualityItem(source, snapshot[source]))
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodDelete:
		s.quality.Reset(r.Context())
		s.logger.Info("quality stats reset")
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleQualityEvents(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/quality/events" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.quality == nil {
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", "quality tracking is not configured")
		return
	}

	var event playbackEvent
	if err := decodeJSONBody(r, &event); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	source := domain.NormalizeSource(event.Source)
	if !s.isConfiguredSource(source) {
		writeError(w, http.StatusBadRequest, "invalid_request", "unknown source")
		return
	}

	switch strings.ToLower(strings.TrimSpace(event.Outcome)) {
	case "success":
		s.quality.RecordSuccess(r.Context(), source)
	case "fail", "failure":
		s.quality.RecordFail(r.Context(), source)
	default:
		writeError(w, http.StatusBadRequest, "invalid_request", "outcome must be success or fail")
		return
	}
	writeJSON(w, http.StatusAccepted, newQualityItem(source, s.quality.Stats(source)))
}

// isConfiguredSource reports whether source has a search provider, so
// playback outcomes are only learned for sources that can be ranked.
func (s *Server) isConfiguredSource(source domain.Source) bool {
	if s.search == nil || source == "" {
		return false
	}
	for _, info := range s.search.Sources() {
		if info.Name == source {
			return true
		}
	}
	return false
}

func newQualityItem(source domain.Source, stats quality.Stats) qualityItem {
	return qualityItem{
		Source:       source,
		Success:      stats.Success,
		Fail:         stats.Fail,
		Total:        stats.Total(),
		DynamicScore: stats.Score(),
	}
}

func (s *Server) handleTrackURL(w http.ResponseWriter, r *http.Request) {
	if !s.lookupPreamble(w, r, "/tracks/url") {
		return
	}
	br, err := parsePositiveInt(r, "br", domain.DefaultBitrate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid br")
		return
	}
	source, id := trackRef(r)
	result, err := s.lookup.URL(r.Context(), source, id, br)
	if err != nil {
		s.writeLookupError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTrackPicture(w http.ResponseWriter, r *http.Request) {
	if !s.lookupPreamble(w, r, "/tracks/pic") {
		return
	}
	size, err := parsePositiveInt(r, "size", domain.DefaultPictureSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid size")
		return
	}
	source, id := trackRef(r)
	result, err := s.lookup.Picture(r.Context(), source, id, size)
	if err != nil {
		s.writeLookupError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTrackLyric(w http.ResponseWriter, r *http.Request) {
	if !s.lookupPreamble(w, r, "/tracks/lyric") {
		return
	}
	source, id := trackRef(r)
	result, err := s.lookup.Lyric(r.Context(), source, id)
	if err != nil {
		s.writeLookupError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) lookupPreamble(w http.ResponseWriter, r *http.Request, path string) bool {
	if r.URL.Path != path {
		http.NotFound(w, r)
		return false
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	if s.lookup == nil {
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", "track lookup is not configured")
		return false
	}
	return true
}

func (s *Server) writeLookupError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, lookup.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, lookup.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, context.Canceled):
		return
	default:
		s.logger.Warn("track lookup failed",
			slog.String("path", r.URL.Path),
			slog.String("source", r.URL.Query().Get("source")),
			slog.String("id", truncate(r.URL.Query().Get("id"), 64)),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "upstream_error", "music api lookup failed")
	}
}

func trackRef(r *http.Request) (domain.Source, string) {
	return domain.NormalizeSource(r.URL.Query().Get("source")), strings.TrimSpace(r.URL.Query().Get("id"))
}

func parseSources(raw string) []domain.Source {
	values := parseCSV(raw)
	if len(values) == 0 {
		return nil
	}
	out := make([]domain.Source, 0, len(values))
	for _, value := range values {
		out = append(out, domain.Source(value))
	}
	return out
}

func parseCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		value := strings.ToLower(strings.TrimSpace(part))
		if value == "" {
			continue
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func decodeJSONBody(r *http.Request, dest any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return errors.New("request body is required")
	}

	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

func parsePositiveInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return 0, errors.New("invalid value")
	}
	return parsed, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
