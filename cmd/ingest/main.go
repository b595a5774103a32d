package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	artifactadapter "github.com/borealsmoke/smoke-data-etl/internal/adapter/artifact"
	"github.com/borealsmoke/smoke-data-etl/internal/adapter/cwfis"
	"github.com/borealsmoke/smoke-data-etl/internal/adapter/ecaqhi"
	"github.com/borealsmoke/smoke-data-etl/internal/adapter/geomet"
	httpadapter "github.com/borealsmoke/smoke-data-etl/internal/adapter/http"
	kafkaadapter "github.com/borealsmoke/smoke-data-etl/internal/adapter/kafka"
	"github.com/borealsmoke/smoke-data-etl/internal/config"
	"github.com/borealsmoke/smoke-data-etl/internal/observability"
	"github.com/borealsmoke/smoke-data-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	communities, err := pipeline.LoadCommunities(cfg.CommunitiesFile)
	if err != nil {
		logger.Error("failed to load communities", "error", err)
		os.Exit(1)
	}
	logger.Info("tracking communities", "count", len(communities))

	fireSource := cwfis.NewFetcher(
		cwfis.NewClient(cfg.CWFISBaseURL, cfg.FetchTimeout, cfg.RetryMinWait, cfg.RetryMaxWait, logger),
		logger, metrics,
	)
	weatherSource := geomet.NewClient(cfg.GeoMetBaseURL, cfg.FetchTimeout, cfg.WeatherConcurrency, logger)
	baselineSource := ecaqhi.NewFetcher(cfg.AQHIFeedURL, cfg.AQHIPageURL, cfg.FetchTimeout, logger)
	artifacts := artifactadapter.NewWriter(cfg.ArtifactDir, cfg.IngestInterval, logger)

	// Kafka publication (feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS).
	var publisher pipeline.DatasetPublisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("kafka publication enabled", "topic", cfg.KafkaSinkTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka publication disabled")
	}

	ingestor := pipeline.New(
		fireSource, weatherSource, baselineSource, artifacts, publisher,
		communities, cfg, logger, metrics,
	)

	srv := httpadapter.NewServer(cfg.HTTPAddr, ingestor, ingestor.LastCycle, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ingestion loop.
	go func() {
		if err := ingestor.Run(ctx); err != nil {
			logger.Error("ingestor error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
