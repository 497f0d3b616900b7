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

	httpadapter "github.com/Peterstangolis/ontschoolsapp/internal/adapter/http"
	kafkaadapter "github.com/Peterstangolis/ontschoolsapp/internal/adapter/kafka"
	"github.com/Peterstangolis/ontschoolsapp/internal/adapter/opendata"
	redisadapter "github.com/Peterstangolis/ontschoolsapp/internal/adapter/redis"
	"github.com/Peterstangolis/ontschoolsapp/internal/config"
	"github.com/Peterstangolis/ontschoolsapp/internal/domain"
	"github.com/Peterstangolis/ontschoolsapp/internal/observability"
	"github.com/Peterstangolis/ontschoolsapp/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env file is fine; the environment still applies.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Shared body cache tier (enabled via REDIS_ADDR).
	cacheOpts := opendata.CacheOptions{MaxEntries: cfg.CacheSize, TTL: cfg.CacheTTL, FillTimeout: fetchBudget(cfg)}
	var store *redisadapter.BodyStore
	if cfg.RedisAddr != "" {
		store, err = redisadapter.NewBodyStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Warn("redis unavailable, using local cache only", "addr", cfg.RedisAddr, "error", err)
		} else {
			cacheOpts.Shared = store
			logger.Info("redis body cache enabled", "addr", cfg.RedisAddr)
		}
	}

	client := opendata.NewClient(cfg.FetchTimeout, cfg.FetchRetries, metrics, logger)
	fetcher := opendata.NewCachedFetcher(client, cacheOpts, metrics, logger)
	source, err := opendata.NewSource(fetcher,
		opendata.Dataset{URL: cfg.SummaryURL, Encoding: cfg.SummaryEncoding},
		opendata.Dataset{URL: cfg.ActiveCasesURL, Encoding: cfg.ActiveCasesEncoding},
		domain.DefaultSchoolNameRules, metrics, logger)
	if err != nil {
		logger.Error("invalid dataset configuration", "error", err)
		os.Exit(1)
	}

	// Snapshot publishing (enabled via KAFKA_ENABLED).
	var publisher pipeline.Publisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, metrics, logger)
		publisher = writer
		logger.Info("snapshot publishing enabled", "topic", cfg.KafkaSnapshotTopic, "brokers", cfg.KafkaBrokers)
	}

	p := pipeline.New(source, publisher, domain.Options{
		Threshold:         cfg.SchoolCaseThreshold,
		MunicipalityLimit: cfg.MunicipalityLimit,
		SchoolLimit:       cfg.SchoolLimit,
		SchoolYearDays:    cfg.SchoolYearDays,
	}, logger, metrics)

	var refresher *pipeline.Refresher
	if cfg.RefreshSchedule != "" {
		refresher, err = pipeline.NewRefresher(p, cfg.RefreshSchedule, refreshTimeout(cfg), logger)
		if err != nil {
			logger.Error("failed to schedule refresh", "error", err)
			os.Exit(1)
		}
		refresher.Start(ctx)
	} else {
		logger.Info("background refresh disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if refresher != nil {
		refresher.Stop()
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// newLogger builds the process logger and installs it as the slog default.
func newLogger(cfg *config.Config) *slog.Logger {
	return sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
}

// fetchBudget covers every attempt of one download and the waits between them.
func fetchBudget(cfg *config.Config) time.Duration {
	return cfg.FetchTimeout*time.Duration(cfg.FetchRetries+1) + opendata.MaxRetryWait*time.Duration(cfg.FetchRetries)
}

// refreshTimeout allows one download plus publishing.
func refreshTimeout(cfg *config.Config) time.Duration {
	return fetchBudget(cfg) + 30*time.Second
}
