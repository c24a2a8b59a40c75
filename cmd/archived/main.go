package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kitewatch/wind-archive/internal/adapter/http"
	kafkaadapter "github.com/kitewatch/wind-archive/internal/adapter/kafka"
	"github.com/kitewatch/wind-archive/internal/adapter/windguru"
	"github.com/kitewatch/wind-archive/internal/config"
	"github.com/kitewatch/wind-archive/internal/credstore"
	"github.com/kitewatch/wind-archive/internal/domain"
	"github.com/kitewatch/wind-archive/internal/observability"
	"github.com/kitewatch/wind-archive/internal/pipeline"
	"github.com/kitewatch/wind-archive/internal/scheduler"
	"github.com/kitewatch/wind-archive/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	client := windguru.NewClient(cfg.BaseURL, cfg.FetchTimeout, cfg.FetchRetries, logger)
	if err := authenticate(cfg, client, logger); err != nil {
		logger.Error("authentication failed", "error", err)
		os.Exit(1)
	}

	searcher := newSearcher(cfg, client, logger, metrics)

	store, err := storage.Open(cfg.DatabasePath, logger)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Point publishing is feature-flagged via KAFKA_BROKERS.
	var publisher pipeline.PointPublisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled() {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	svc := pipeline.New(client, store, publisher, logger, metrics, cfg.OutputDir)

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, searcher, svc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	var refresher *scheduler.Scheduler
	if len(cfg.RefreshSpots) > 0 {
		refresher, err = scheduler.New(scheduler.Config{
			Spots:        cfg.RefreshSpots,
			ModelID:      cfg.RefreshModelID,
			StepHours:    cfg.StepHours,
			Interval:     cfg.RefreshInterval,
			LookbackDays: cfg.RefreshLookbackDays,
		}, svc, logger, metrics)
		if err != nil {
			logger.Error("failed to create refresh scheduler", "error", err)
			os.Exit(1)
		}
		refresher.Start()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if refresher != nil {
		refresher.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if closer, ok := searcher.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("spot cache close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// authenticate attaches credentials to the client: stored ones when they
// exist, otherwise a fresh login with the configured username and password.
func authenticate(cfg *config.Config, client *windguru.Client, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var store *credstore.Store
	if cfg.CredentialsFile != "" {
		store = credstore.New(cfg.CredentialsFile)
		creds, err := store.Load()
		switch {
		case err == nil:
			client.SetCredentials(creds)
			logger.Info("using stored credentials", "file", cfg.CredentialsFile)
			return nil
		case errors.Is(err, credstore.ErrNoCredentials):
			// fall through to login
		default:
			return err
		}
	}

	if !cfg.HasLogin() {
		logger.Warn("no credentials configured, archive fetches will fail until login")
		return nil
	}

	creds, err := client.Login(ctx, cfg.Username, cfg.Password)
	if err != nil {
		return err
	}
	if store != nil {
		if err := store.Save(creds); err != nil {
			logger.Warn("failed to store credentials", "error", err)
		}
	}
	return nil
}

// newSearcher wraps the client in a spot cache: Redis when configured, an
// in-process LRU otherwise.
func newSearcher(cfg *config.Config, client *windguru.Client, logger *slog.Logger, metrics *observability.Metrics) domain.SpotSearcher {
	if cfg.RedisEnabled() {
		logger.Info("redis spot cache enabled", "addr", cfg.RedisAddr)
		return windguru.NewRedisSearcher(client, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger, metrics)
	}
	return windguru.NewCachedSearcher(client, cfg.SpotCacheSize, metrics)
}
