package apihttp

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"ottermusic/searchservice/internal/domain"
	"ottermusic/searchservice/internal/metrics"
)

const (
	labelAllSources = "all"
	labelNoSource   = "none"
	labelOther      = "other"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

func (rw *statusRecorder) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// sourceLabeler maps the source a request names onto a bounded label set:
// configured sources keep their name, anything else collapses to "other".
type sourceLabeler struct {
	known map[domain.Source]struct{}
}

func newSourceLabeler(infos []domain.SourceInfo) sourceLabeler {
	known := make(map[domain.Source]struct{}, len(infos))
	for _, info := range infos {
		known[info.Name] = struct{}{}
	}
	return sourceLabeler{known: known}
}

func (l sourceLabeler) label(r *http.Request) string {
	route := normalizeRoute(r.URL.Path)
	if !routeTakesSource(route) {
		return labelNoSource
	}
	source := domain.NormalizeSource(r.URL.Query().Get("source"))
	if route == "/search" && (source == "" || source == domain.SourceAll) {
		return labelAllSources
	}
	if _, ok := l.known[source]; ok {
		return string(source)
	}
	return labelOther
}

func routeTakesSource(route string) bool {
	return route == "/search" || strings.HasPrefix(route, "/tracks/")
}

func loggingMiddleware(logger *slog.Logger, labels sourceLabeler, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		route := normalizeRoute(r.URL.Path)
		attrs := []slog.Attr{
			slog.String("method", r.Method),
			slog.String("route", route),
			slog.Int("status", rw.status),
			slog.Int("bytes", rw.size),
			slog.Int64("durationMs", time.Since(start).Milliseconds()),
			slog.String("clientIP", clientIP(r)),
		}
		if route == labelOther {
			attrs = append(attrs, slog.String("path", truncate(r.URL.Path, 120)))
		}
		if routeTakesSource(route) {
			attrs = append(attrs, slog.String("source", labels.label(r)))
		}
		if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" && route == "/search" {
			attrs = append(attrs, slog.String("q", truncate(q, 80)))
		}
		if id := strings.TrimSpace(r.URL.Query().Get("id")); id != "" && strings.HasPrefix(route, "/tracks/") {
			attrs = append(attrs, slog.String("id", truncate(id, 64)))
		}
		logger.LogAttrs(r.Context(), requestLogLevel(route, rw.status), "http request", attrs...)
	})
}

func recoveryMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if recovered := recover(); recovered != nil {
				logger.Error("panic recovered",
					slog.Any("error", recovered),
					slog.String("method", r.Method),
					slog.String("route", normalizeRoute(r.URL.Path)),
					slog.String("clientIP", clientIP(r)),
					slog.String("stack", string(debug.Stack())),
				)
				writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func metricsMiddleware(labels sourceLabeler, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		route := normalizeRoute(r.URL.Path)
		source := labels.label(r)
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, source, strconv.Itoa(rw.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route, source).Observe(time.Since(start).Seconds())
	})
}

func normalizeRoute(path string) string {
	switch {
	case path == "/health" || path == "/metrics" || path == "/search":
		return path
	case strings.HasPrefix(path, "/search/sources"):
		return "/search/sources"
	case strings.HasPrefix(path, "/quality"):
		return "/quality"
	case path == "/tracks/url" || path == "/tracks/pic" || path == "/tracks/lyric" || path == "/tracks/cover":
		return path
	default:
		return labelOther
	}
}

func requestLogLevel(route string, status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	case route == "/health" || route == "/metrics":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	remote := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(remote); err == nil && host != "" {
		return host
	}
	return remote
}

// truncate shortens value to at most limit runes, marking the cut with "...".
func truncate(value string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(value) <= limit {
		return value
	}
	runes := []rune(value)
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

// rateLimitMiddleware applies one token bucket to every API route. Rejected
// requests get 429 with Retry-After set to when the next token is due.
func rateLimitMiddleware(rps float64, burst int, next http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		now := time.Now()
		reservation := limiter.ReserveN(now, 1)
		if reservation.OK() {
			delay := reservation.DelayFrom(now)
			if delay == 0 {
				next.ServeHTTP(w, r)
				return
			}
			reservation.CancelAt(now)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(delay)))
		} else {
			w.Header().Set("Retry-After", "1")
		}
		writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
	})
}

func retryAfterSeconds(delay time.Duration) int {
	seconds := int(math.Ceil(delay.Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}
