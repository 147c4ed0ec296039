package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/bird-observation-dashboard/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/bird-observation-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/bird-observation-dashboard/internal/adapter/sqlstore"
	"github.com/couchcryptid/bird-observation-dashboard/internal/config"
	"github.com/couchcryptid/bird-observation-dashboard/internal/observability"
	"github.com/couchcryptid/bird-observation-dashboard/internal/pipeline"
	"github.com/couchcryptid/bird-observation-dashboard/internal/render"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	source, err := sqlstore.NewSource(cfg, logger)
	if err != nil {
		logger.Error("failed to create observation source", "error", err)
		os.Exit(1)
	}

	// Snapshot publishing is feature-flagged via KAFKA_ENABLED.
	var publisher pipeline.Publisher
	var kafkaPublisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		kafkaPublisher = kafkaadapter.NewPublisher(cfg, logger)
		publisher = kafkaPublisher
		logger.Info("snapshot publishing enabled", "topic", cfg.KafkaTopic, "batch_size", cfg.KafkaBatchSize)
	} else {
		logger.Info("snapshot publishing disabled")
	}

	loader := pipeline.NewLoader(source, publisher, clock, logger, metrics)
	dataset := pipeline.NewDataset(loader, clock, cfg.CacheTTL, logger, metrics)
	charts := render.NewCachedRenderer(render.NewRenderer(), cfg.RenderCacheSize, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, dataset, charts, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Warm the dataset. A failure leaves the service unready; requests retry the load.
	go func() {
		if _, err := dataset.Get(ctx); err != nil {
			logger.Error("initial dataset load failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
