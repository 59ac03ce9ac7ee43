package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/agroclim/gdd-tracker/internal/adapter/http"
	kafkaadapter "github.com/agroclim/gdd-tracker/internal/adapter/kafka"
	"github.com/agroclim/gdd-tracker/internal/adapter/opencage"
	"github.com/agroclim/gdd-tracker/internal/adapter/power"
	"github.com/agroclim/gdd-tracker/internal/config"
	"github.com/agroclim/gdd-tracker/internal/domain"
	"github.com/agroclim/gdd-tracker/internal/observability"
	"github.com/agroclim/gdd-tracker/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	fetcher := power.NewClient(cfg, metrics, logger)

	// Geocoding is feature-flagged via OPENCAGE_API_KEY / GEOCODE_ENABLED.
	var geocoder domain.Geocoder
	if cfg.GeocodeEnabled {
		client := opencage.NewClient(cfg.OpenCageKey, cfg.OpenCageBaseURL, cfg.GeocodeTimeout, metrics, logger)
		geocoder = opencage.NewCachedGeocoder(client, cfg.GeocodeCacheSize, metrics)
		logger.Info("opencage geocoding enabled", "cache_size", cfg.GeocodeCacheSize, "timeout", cfg.GeocodeTimeout)
	} else {
		logger.Info("opencage geocoding disabled")
	}

	// Stage-event publishing is optional; no brokers means no publisher.
	var publisher service.StagePublisher
	var kafkaPublisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled() {
		kafkaPublisher = kafkaadapter.NewPublisher(cfg, logger)
		publisher = kafkaPublisher
		logger.Info("stage event publishing enabled", "topic", cfg.KafkaStageTopic)
	} else {
		logger.Info("stage event publishing disabled")
	}

	svc := service.New(cfg, fetcher, geocoder, publisher, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, svc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
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
