// Package api provides the HTTP API for the weather aggregator.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/stationhub/weatheraggregator/internal/api/handler"
	"github.com/stationhub/weatheraggregator/internal/api/middleware"
	"github.com/stationhub/weatheraggregator/internal/auth"
	"github.com/stationhub/weatheraggregator/internal/reading"
	"github.com/stationhub/weatheraggregator/internal/station"
	"github.com/stationhub/weatheraggregator/internal/vendors/bulgarianmeteo"
	"github.com/stationhub/weatheraggregator/internal/vendors/weathermasterx"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	RequireTLS  bool

	// IngestMetrics counts ingestions lost to a handler panic. Optional.
	IngestMetrics middleware.IngestRecorder

	StationService        *station.Service
	BulgarianMeteoService *bulgarianmeteo.Service
	WeatherMasterXService *weathermasterx.Service

	// TokenService validates ingestion tokens. Nil leaves the ingestion
	// endpoints open.
	TokenService *auth.TokenService

	// Database is checked by the readiness endpoint. Nil when running on
	// in-memory storage.
	Database handler.Pinger
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "weather-aggregator-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger, cfg.IngestMetrics)) // Panic recovery
	r.Use(chimiddleware.RealIP)                               // Real IP extraction
	r.Use(middleware.SecurityHeaders)                         // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))              // TLS enforcement
	r.Use(middleware.ContentTypeJSON)                         // JSON content type

	// A typed nil must not reach IngestAuth as a non-nil interface
	var tokens middleware.TokenValidator
	if cfg.TokenService != nil {
		tokens = cfg.TokenService
	}

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(handler.OpsHandlerConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Database:  cfg.Database,
		Stations:  cfg.StationService,
		Logger:    cfg.Logger,
	})
	stationHandler := handler.NewStationHandler(cfg.StationService, cfg.Logger)
	bulgarianHandler := handler.NewReadingHandler[*bulgarianmeteo.Reading](
		reading.KindBulgarianMeteoPro, cfg.StationService, cfg.BulgarianMeteoService, cfg.Logger,
	)
	wmxHandler := handler.NewReadingHandler[*weathermasterx.Reading](
		reading.KindWeatherMasterX, cfg.StationService, cfg.WeatherMasterXService, cfg.Logger,
	)

	// Create rate limit middleware for different endpoint categories
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min
	ingestRateLimit := middleware.RateLimitByClient(middleware.IngestRateLimit)   // 300 req/min

	vendorRoutes := func(kind reading.Kind, create, list http.HandlerFunc) func(chi.Router) {
		return func(r chi.Router) {
			r.Use(middleware.StationType(kind))
			r.With(
				middleware.IngestAuth(tokens, kind),
				ingestRateLimit,
				middleware.RequireJSON,
			).Post("/", create)
			r.With(standardRateLimit).Get("/{city}", list)
		}
	}

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.With(standardRateLimit).Get("/status", opsHandler.SystemStatus)
		})

		// Vendor ingestion and vendor-native listings
		r.Route("/bulgarian-meteo-pro/weather-data",
			vendorRoutes(reading.KindBulgarianMeteoPro, bulgarianHandler.Create, bulgarianHandler.ListByCity))
		r.Route("/weather-master-x/weather-data",
			vendorRoutes(reading.KindWeatherMasterX, wmxHandler.Create, wmxHandler.ListByCity))

		// Cross-vendor aggregation - fans out to every store
		r.With(expensiveRateLimit).Get("/stations/weather-data/{city}", stationHandler.GetWeatherData)
	})

	return r
}
