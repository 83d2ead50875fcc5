// Package main provides the entrypoint for the weather aggregator API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/stationhub/weatheraggregator/internal/api"
	"github.com/stationhub/weatheraggregator/internal/api/handler"
	"github.com/stationhub/weatheraggregator/internal/api/middleware"
	"github.com/stationhub/weatheraggregator/internal/app"
	"github.com/stationhub/weatheraggregator/internal/auth"
	"github.com/stationhub/weatheraggregator/internal/config"
	"github.com/stationhub/weatheraggregator/internal/station"
	"github.com/stationhub/weatheraggregator/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "weather-aggregator-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting weather aggregator API")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize OpenTelemetry
	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.Telemetry.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Float64("sample_ratio", cfg.Telemetry.SampleRatio).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	stationMetrics, err := station.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize station metrics")
		os.Exit(1)
	}

	// Storage and services
	services, err := app.NewServices(ctx, cfg, log, stationMetrics)
	if err != nil {
		log.Fatal().Err(err).Str("storage", cfg.Storage).Msg("failed to initialize services")
	}
	defer services.Close()

	var db handler.Pinger
	if services.Pool != nil {
		db = services.Pool
	}

	// Ingestion tokens (optional)
	var tokenService *auth.TokenService
	if cfg.Ingest.SigningKey != "" {
		tokenService = auth.NewTokenService(auth.TokenConfig{
			SigningKey: cfg.Ingest.SigningKey,
			Issuer:     cfg.Ingest.Issuer,
			Audience:   cfg.Ingest.Audience,
		})
		log.Info().Msg("ingestion token auth enabled")
	} else {
		log.Warn().Msg("INGEST_SIGNING_KEY not set - ingestion endpoints are open")
	}

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:               Version,
		BuildTime:             BuildTime,
		Logger:                log,
		ServiceName:           serviceName,
		Metrics:               httpMetrics,
		RequireTLS:            cfg.RequireTLS,
		IngestMetrics:         stationMetrics,
		StationService:        services.Stations,
		BulgarianMeteoService: services.BulgarianMeteo,
		WeatherMasterXService: services.WeatherMasterX,
		TokenService:          tokenService,
		Database:              db,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("storage", cfg.Storage).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
