// Package handler provides HTTP handlers for the weather aggregator API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/stationhub/weatheraggregator/internal/api/models"
	"github.com/stationhub/weatheraggregator/internal/api/response"
)

const readinessTimeout = 2 * time.Second

// Pinger checks that a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StationCounter reports registry entries per station type.
type StationCounter interface {
	Counts(ctx context.Context) ([]models.StationCount, error)
}

// OpsHandlerConfig holds configuration for the ops handler.
type OpsHandlerConfig struct {
	Version   string
	BuildTime string

	// Database is pinged by the readiness and status checks. Nil means the
	// service runs on in-memory storage.
	Database Pinger

	Stations StationCounter
	Logger   zerolog.Logger
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	database  Pinger
	stations  StationCounter
	logger    zerolog.Logger
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsHandlerConfig) *OpsHandler {
	return &OpsHandler{
		version:   cfg.Version,
		buildTime: cfg.BuildTime,
		database:  cfg.Database,
		stations:  cfg.Stations,
		logger:    cfg.Logger,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.pingDatabase(r.Context()); err != nil {
		h.logger.Warn().Err(err).Msg("readiness check failed")
		response.ServiceUnavailable(w, r, "database is not reachable")
		return
	}

	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}
	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - subsystem status and registry counts.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(time.Now()),
		Subsystems: []models.SubsystemStatus{},
		Stations:   []models.StationCount{},
	}

	storage := models.SubsystemStatus{Name: "postgres", Status: models.HealthStatusOK}
	if h.database == nil {
		storage.Name = "memory"
	} else if err := h.pingDatabase(r.Context()); err != nil {
		detail := err.Error()
		storage.Status = models.HealthStatusFail
		storage.Detail = &detail
		status.Status = models.HealthStatusDegraded
	}
	status.Subsystems = append(status.Subsystems, storage)

	if storage.Status == models.HealthStatusOK && h.stations != nil {
		counts, err := h.stations.Counts(r.Context())
		if err != nil {
			h.logger.Error().Err(err).Msg("count stations")
			status.Status = models.HealthStatusDegraded
		} else {
			status.Stations = counts
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) pingDatabase(ctx context.Context) error {
	if h.database == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()
	return h.database.Ping(ctx)
}
