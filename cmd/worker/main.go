// Package main provides the entrypoint for the background ingestion worker.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/stationhub/weatheraggregator/internal/app"
	"github.com/stationhub/weatheraggregator/internal/config"
	"github.com/stationhub/weatheraggregator/internal/station"
	"github.com/stationhub/weatheraggregator/internal/telemetry"
	"github.com/stationhub/weatheraggregator/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

type feedStatus struct {
	Name         string     `json:"name"`
	CircuitState string     `json:"circuitState"`
	LastSuccess  *time.Time `json:"lastSuccessAt,omitempty"`
	LastFailure  *time.Time `json:"lastFailureAt,omitempty"`
	LastError    string     `json:"lastError,omitempty"`
}

func main() {
	const serviceName = "weather-aggregator-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting weather aggregator worker")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	stationMetrics, err := station.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize station metrics")
	}

	services, err := app.NewServices(ctx, cfg, log, stationMetrics)
	if err != nil {
		log.Fatal().Err(err).Str("storage", cfg.Storage).Msg("failed to initialize services")
	}
	defer services.Close()

	var (
		wg     sync.WaitGroup
		poller *worker.Poller
	)

	// Feed poller
	if len(cfg.Poll.Feeds) > 0 {
		poller = worker.NewPoller(worker.PollerConfig{
			Config:   cfg.Poll,
			Ingester: services.Stations,
			Logger:   log.With().Str("component", "poller").Logger(),
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			poller.Start(ctx)
		}()
	} else {
		log.Info().Msg("FEED_URLS not set - feed poller disabled")
	}

	// Pub/Sub consumer
	if cfg.PubSub.ProjectID != "" {
		handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        cfg.PubSub.ProjectID,
			SubscriptionName: cfg.PubSub.Subscription,
			Ingester:         services.Stations,
			Logger:           log.With().Str("component", "pubsub").Logger(),
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub handler")
		}
		defer func() {
			if err := handler.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close pubsub client")
			}
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := handler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("pubsub handler stopped")
				cancel()
			}
		}()
	} else {
		log.Info().Msg("PUBSUB_PROJECT_ID not set - pubsub consumer disabled")
	}

	// Health endpoint for the platform
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		body := map[string]interface{}{
			"status":  "OK",
			"version": Version,
		}
		if poller != nil {
			feeds := make([]feedStatus, 0)
			for _, h := range poller.FeedHealth() {
				feeds = append(feeds, feedStatus{
					Name:         h.Name,
					CircuitState: h.CircuitState.String(),
					LastSuccess:  h.LastSuccessAt,
					LastFailure:  h.LastFailureAt,
					LastError:    h.LastError,
				})
			}
			m := poller.GetMetrics()
			body["feeds"] = feeds
			body["polls"] = m.TotalPolls
			body["ingested"] = m.Ingested
			body["rejected"] = m.Rejected
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(body)
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	// Wait for interrupt signal or a fatal consumer error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	wg.Wait()
	log.Info().Msg("worker stopped")
}
