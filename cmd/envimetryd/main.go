// Package main wires together the telemetry pipeline service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcpubsub "cloud.google.com/go/pubsub"
	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/envimetry/pipeline/internal/adapters"
	"github.com/envimetry/pipeline/internal/api"
	"github.com/envimetry/pipeline/internal/cache"
	"github.com/envimetry/pipeline/internal/clock"
	"github.com/envimetry/pipeline/internal/config"
	"github.com/envimetry/pipeline/internal/id/uuid"
	"github.com/envimetry/pipeline/internal/logging"
	"github.com/envimetry/pipeline/internal/orchestrator"
	"github.com/envimetry/pipeline/internal/pipeline"
	gcspublisher "github.com/envimetry/pipeline/internal/publisher/pubsub"
	"github.com/envimetry/pipeline/internal/ratelimit"
	"github.com/envimetry/pipeline/internal/registry"
	"github.com/envimetry/pipeline/internal/schema"
	"github.com/envimetry/pipeline/internal/storage/gcs"
	"github.com/envimetry/pipeline/internal/storage/local"
	"github.com/envimetry/pipeline/internal/storage/postgres"
	"github.com/envimetry/pipeline/internal/telemetry"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("service failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	clk := clock.System{}
	idGen := uuid.NewUUIDGenerator()

	reg := registry.Load(cfg.Locations.File, logger.Named("registry"))

	respCache, err := cache.NewFileCache(cfg.Cache.Dir, clk, logger.Named("cache"))
	if err != nil {
		return fmt.Errorf("init response cache: %w", err)
	}
	limiter := ratelimit.New(ratelimit.Config{
		DefaultRPS:   cfg.RateLimit.DefaultRPS,
		DefaultBurst: cfg.RateLimit.DefaultBurst,
		SourceRPS:    cfg.RateLimit.SourceRPS,
	})
	retry := orchestrator.NewRetryPolicy(cfg.Crawler.MaxRetries, cfg.BackoffInitial(), cfg.BackoffMax())

	adapterCfg := adapters.Config{
		OpenWeatherAPIKey: cfg.Providers.OpenWeatherAPIKey,
		WAQIToken:         cfg.Providers.WAQIToken,
		HTTPTimeout:       cfg.HTTPTimeout(),
		Clock:             clk,
		Logger:            logger.Named("adapters"),
	}
	crawlers := make(map[string]pipeline.Crawler, len(schema.Domains()))
	for _, domain := range schema.Domains() {
		domainAdapters, err := adapters.ForDomain(domain, adapterCfg)
		if err != nil {
			return fmt.Errorf("build %s adapters: %w", domain, err)
		}
		crawlers[domain] = orchestrator.New(domainAdapters, respCache, limiter, retry,
			clk, idGen, logger.Named("orchestrator").With(zap.String("domain", domain)),
			orchestrator.Config{MaxWorkers: cfg.Crawler.Concurrency})
	}

	loader, err := postgres.NewLoader(ctx, postgres.LoaderConfig{
		DSN:             cfg.DB.DSN,
		MaxConns:        cfg.DB.MaxConns,
		MinConns:        cfg.DB.MinConns,
		MaxConnLifetime: cfg.DBConnLifetime(),
	}, logger.Named("loader"))
	if err != nil {
		return fmt.Errorf("init loader: %w", err)
	}
	defer loader.Close()

	blobs, err := buildBlobStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init blob store: %w", err)
	}
	publisher, err := buildPublisher(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init publisher: %w", err)
	}

	service := pipeline.New(reg, crawlers, loader, idGen, clk, logger.Named("pipeline"),
		pipeline.Options{
			Blobs:     blobs,
			Publisher: publisher,
			Topic:     cfg.PubSub.TopicName,
		})
	apiServer := api.NewServer(service, logger.Named("api"), cfg.ServerTimeout())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

func buildBlobStore(ctx context.Context, cfg config.Config) (telemetry.BlobStore, error) {
	if cfg.Storage.GCSBucket != "" {
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client: %w", err)
		}
		return gcs.New(client, gcs.Config{Bucket: cfg.Storage.GCSBucket})
	}
	return local.New(local.Config{BaseDir: cfg.Storage.LocalDir})
}

func buildPublisher(ctx context.Context, cfg config.Config) (telemetry.Publisher, error) {
	if cfg.PubSub.ProjectID == "" {
		return nil, nil
	}
	client, err := gcpubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	return gcspublisher.New(client.Topic(cfg.PubSub.TopicName)), nil
}
