package app

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"ottermusic/searchservice/internal/domain"
	"ottermusic/searchservice/internal/providers/gdstudio"
	"ottermusic/searchservice/internal/search"
)

type Config struct {
	HTTPAddr              string
	RequestTimeout        time.Duration
	LogLevel              string
	LogFormat             string
	UserAgent             string
	MusicAPIURLs          []string
	Sources               []domain.Source
	AggregatedSources     []domain.Source
	SourcePriority        []domain.Source
	SourceWeights         map[domain.Source]float64
	SourceCookies         map[domain.Source]string
	PageSize              int
	SourceRPS             float64
	SourceBurst           int
	RedisURL              string
	QualityStoreKey       string
	MongoURI              string
	MongoDatabase         string
	LookupCacheDisabled   bool
	LookupCacheMaxEntries int
	HTTPRateLimitRPS      float64
	HTTPRateLimitBurst    int
	OTLPEndpoint          string
}

// LoadDotEnv merges variables from .env files into the process environment
// without overriding ones already set. Missing files are not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	existing := make([]string, 0, len(paths))
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
		existing = append(existing, path)
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

func LoadConfig() Config {
	cfg := Config{
		HTTPAddr:              getEnv("HTTP_ADDR", ":8090"),
		RequestTimeout:        time.Duration(getEnvInt("SEARCH_TIMEOUT_SECONDS", 15)) * time.Second,
		LogLevel:              strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:             strings.ToLower(getEnv("LOG_FORMAT", "text")),
		UserAgent:             getEnv("SEARCH_USER_AGENT", "otter-music-search/1.0"),
		MusicAPIURLs:          parseList(getEnv("MUSIC_API_URLS", gdstudio.DefaultBaseURL)),
		Sources:               parseSources(getEnv("SEARCH_SOURCES", "joox,netease,kuwo,bilibili")),
		AggregatedSources:     parseSources(getEnv("SEARCH_AGGREGATED_SOURCES", "joox,netease")),
		SourcePriority:        parseSources(getEnv("SEARCH_SOURCE_PRIORITY", "")),
		SourceWeights:         parseWeights(getEnv("SEARCH_SOURCE_WEIGHTS", "")),
		SourceCookies:         loadSourceCookies(),
		PageSize:              domain.NormalizePageSize(getEnvInt("SEARCH_PAGE_SIZE", domain.DefaultPageSize)),
		SourceRPS:             getEnvFloat("SEARCH_SOURCE_RPS", 0),
		SourceBurst:           getEnvInt("SEARCH_SOURCE_BURST", 2),
		RedisURL:              getEnv("REDIS_URL", ""),
		QualityStoreKey:       getEnv("QUALITY_STORE_KEY", ""),
		MongoURI:              getEnv("MONGO_URI", ""),
		MongoDatabase:         getEnv("MONGO_DB", "ottermusic"),
		LookupCacheDisabled:   getEnvBool("LOOKUP_CACHE_DISABLED", false),
		LookupCacheMaxEntries: getEnvInt("LOOKUP_CACHE_MAX_ENTRIES", 2000),
		HTTPRateLimitRPS:      getEnvFloat("HTTP_RATE_LIMIT_RPS", 50),
		HTTPRateLimitBurst:    getEnvInt("HTTP_RATE_LIMIT_BURST", 100),
		OTLPEndpoint:          getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
	cfg.AggregatedSources = restrictSources(cfg.AggregatedSources, cfg.Sources)
	return cfg
}

// restrictSources keeps the aggregated sources that have a provider. When
// none of them do, every available source is aggregated instead.
func restrictSources(aggregated, available []domain.Source) []domain.Source {
	kept := make([]domain.Source, 0, len(aggregated))
	for _, source := range aggregated {
		if containsSource(available, source) {
			kept = append(kept, source)
		}
	}
	if len(kept) == 0 {
		return append([]domain.Source(nil), available...)
	}
	return kept
}

// SourceTable applies the configured priority and weight overrides to the
// built-in ranking table. Sources missing from a priority override keep
// their default relative order after the listed ones.
func (c Config) SourceTable() search.SourceTable {
	table := search.DefaultSourceTable()
	if len(c.SourcePriority) > 0 {
		priority := append([]domain.Source(nil), c.SourcePriority...)
		for _, source := range table.Priority {
			if !containsSource(priority, source) {
				priority = append(priority, source)
			}
		}
		table.Priority = priority
	}
	if len(c.SourceWeights) > 0 {
		weights := make(map[domain.Source]float64, len(table.Weights)+len(c.SourceWeights))
		for source, weight := range table.Weights {
			weights[source] = weight
		}
		for source, weight := range c.SourceWeights {
			weights[source] = weight
		}
		table.Weights = weights
	}
	return table
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		if value := strings.TrimSpace(part); value != "" {
			items = append(items, value)
		}
	}
	return items
}

func parseSources(raw string) []domain.Source {
	items := parseList(raw)
	sources := make([]domain.Source, 0, len(items))
	for _, item := range items {
		source := domain.NormalizeSource(item)
		if source == "" || source == domain.SourceAll || containsSource(sources, source) {
			continue
		}
		sources = append(sources, source)
	}
	return sources
}

// parseWeights reads "kuwo=30,joox=25"; malformed pairs are ignored.
func parseWeights(raw string) map[domain.Source]float64 {
	weights := make(map[domain.Source]float64)
	for _, item := range parseList(raw) {
		name, value, ok := strings.Cut(item, "=")
		if !ok {
			continue
		}
		source := domain.NormalizeSource(name)
		weight, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if source == "" || err != nil || weight < 0 {
			continue
		}
		weights[source] = weight
	}
	return weights
}

func loadSourceCookies() map[domain.Source]string {
	cookies := make(map[domain.Source]string)
	for _, source := range domain.KnownSources() {
		if cookie := getEnv("SOURCE_COOKIE_"+strings.ToUpper(string(source)), ""); cookie != "" {
			cookies[source] = cookie
		}
	}
	return cookies
}

func containsSource(sources []domain.Source, source domain.Source) bool {
	for _, candidate := range sources {
		if candidate == source {
			return true
		}
	}
	return false
}
