package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apihttp "ottermusic/searchservice/internal/api/http"
	"ottermusic/searchservice/internal/app"
	"ottermusic/searchservice/internal/lookup"
	"ottermusic/searchservice/internal/metrics"
	"ottermusic/searchservice/internal/providers/gdstudio"
	"ottermusic/searchservice/internal/quality"
	"ottermusic/searchservice/internal/search"
	"ottermusic/searchservice/internal/telemetry"
)

const serviceName = "music-search"

func main() {
	dotEnvErr := app.LoadDotEnv()
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	if dotEnvErr != nil {
		logger.Warn("failed to load .env file", slog.String("error", dotEnvErr.Error()))
	}
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), serviceName, cfg.OTLPEndpoint)
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", serviceName),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.Duration("requestTimeout", cfg.RequestTimeout),
		slog.Any("musicAPIURLs", cfg.MusicAPIURLs),
		slog.Any("sources", cfg.Sources),
		slog.Any("aggregatedSources", cfg.AggregatedSources),
		slog.Int("pageSize", cfg.PageSize),
		slog.Int("sourceCookies", len(cfg.SourceCookies)),
		slog.Bool("hasRedis", strings.TrimSpace(cfg.RedisURL) != ""),
		slog.Bool("hasMongo", strings.TrimSpace(cfg.MongoURI) != ""),
		slog.Bool("lookupCacheDisabled", cfg.LookupCacheDisabled),
		slog.Bool("tracing", cfg.OTLPEndpoint != ""),
	)

	redisClient := connectRedis(cfg.RedisURL, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	mongoClient := connectMongo(cfg.MongoURI, logger)
	if mongoClient != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mongoClient.Disconnect(ctx)
		}()
	}

	tracker := buildQualityTracker(cfg, redisClient, mongoClient, logger)

	musicAPI := gdstudio.NewClient(gdstudio.Config{
		BaseURLs:  cfg.MusicAPIURLs,
		UserAgent: cfg.UserAgent,
		Cookies:   cfg.SourceCookies,
		Client:    &http.Client{Timeout: cfg.RequestTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)},
	})
	providers := make([]search.Provider, 0, len(cfg.Sources))
	for _, source := range cfg.Sources {
		providers = append(providers, gdstudio.NewProvider(musicAPI, source))
	}

	searchService := search.NewService(providers, cfg.RequestTimeout, buildServiceOptions(cfg, tracker, logger)...)

	lookupOpts := []lookup.Option{
		lookup.WithLogger(logger),
		lookup.WithCacheDisabled(cfg.LookupCacheDisabled),
		lookup.WithMaxEntries(cfg.LookupCacheMaxEntries),
	}
	if redisClient != nil {
		lookupOpts = append(lookupOpts, lookup.WithBackend(lookup.NewRedisBackend(redisClient)))
	}
	lookupService := lookup.NewService(musicAPI, lookupOpts...)

	handler := apihttp.NewServer(searchService,
		apihttp.WithLogger(logger),
		apihttp.WithQuality(tracker),
		apihttp.WithLookup(lookupService),
		apihttp.WithRateLimit(cfg.HTTPRateLimitRPS, cfg.HTTPRateLimitBurst),
	).Handler()
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("music search service started",
		slog.String("addr", cfg.HTTPAddr),
		slog.Duration("timeout", cfg.RequestTimeout),
		slog.Int("sources", len(providers)),
	)

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("music search service stopped")
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// connectRedis returns nil when Redis is not configured or unreachable; every
// consumer then falls back to in-process state.
func connectRedis(rawURL string, logger *slog.Logger) *redis.Client {
	redisURL := strings.TrimSpace(rawURL)
	if redisURL == "" {
		return nil
	}
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("invalid redis url, using in-memory state only", slog.String("error", err.Error()))
		return nil
	}
	client := redis.NewClient(redisOpts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not reachable, using in-memory state only", slog.String("error", err.Error()))
		_ = client.Close()
		return nil
	}
	logger.Info("redis connected", slog.String("addr", redisOpts.Addr))
	return client
}

// connectMongo returns nil when MongoDB is not configured or unreachable.
func connectMongo(rawURI string, logger *slog.Logger) *mongo.Client {
	uri := strings.TrimSpace(rawURI)
	if uri == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetMonitor(otelmongo.NewMonitor()))
	if err != nil {
		logger.Warn("mongo connect failed, quality stats not stored in mongo", slog.String("error", err.Error()))
		return nil
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		logger.Warn("mongo ping failed, quality stats not stored in mongo", slog.String("error", err.Error()))
		_ = client.Disconnect(context.Background())
		return nil
	}
	logger.Info("mongo connected")
	return client
}

// buildQualityTracker persists playback stats to MongoDB when available,
// then Redis, then process memory.
func buildQualityTracker(cfg app.Config, redisClient *redis.Client, mongoClient *mongo.Client, logger *slog.Logger) *quality.Tracker {
	var store quality.Store = quality.NewMemoryStore()
	switch {
	case mongoClient != nil:
		store = quality.NewMongoStore(mongoClient, cfg.MongoDatabase, "")
	case redisClient != nil:
		store = quality.NewRedisStore(redisClient, cfg.QualityStoreKey)
	}
	tracker := quality.NewTracker(quality.WithStore(store), quality.WithLogger(logger))
	tracker.Load(context.Background())
	return tracker
}

func buildServiceOptions(cfg app.Config, tracker *quality.Tracker, logger *slog.Logger) []search.ServiceOption {
	opts := []search.ServiceOption{
		search.WithLogger(logger),
		search.WithSourceTable(cfg.SourceTable()),
		search.WithQuality(tracker),
		search.WithPageSize(cfg.PageSize),
	}
	if len(cfg.AggregatedSources) > 0 {
		opts = append(opts, search.WithAggregatedSources(cfg.AggregatedSources...))
	}
	if cfg.SourceRPS > 0 {
		opts = append(opts, search.WithSourceRateLimit(cfg.SourceRPS, cfg.SourceBurst))
	}
	return opts
}
