package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/stationhub/weatheraggregator/internal/api/response"
	"github.com/stationhub/weatheraggregator/internal/station"
)

// NoStationsDetail is returned when a city has no usable station data.
const NoStationsDetail = "No weather stations found for the specified city."

// Aggregator builds the per-city weather view.
type Aggregator interface {
	Aggregate(ctx context.Context, city string, raw bool) ([]interface{}, error)
}

// StationHandler handles the cross-vendor station endpoints.
type StationHandler struct {
	aggregator Aggregator
	logger     zerolog.Logger
}

// NewStationHandler creates a new StationHandler.
func NewStationHandler(aggregator Aggregator, logger zerolog.Logger) *StationHandler {
	return &StationHandler{aggregator: aggregator, logger: logger}
}

// GetWeatherData handles GET /v1/stations/weather-data/{city} - every
// station reading recorded for a city, normalized to the common field set,
// or as originally submitted when ?raw=true.
func (h *StationHandler) GetWeatherData(w http.ResponseWriter, r *http.Request) {
	city := strings.TrimSpace(chi.URLParam(r, "city"))
	if city == "" {
		response.BadRequest(w, r, "city is required", nil)
		return
	}

	raw := strings.EqualFold(r.URL.Query().Get("raw"), "true")

	items, err := h.aggregator.Aggregate(r.Context(), city, raw)
	if err != nil {
		if errors.Is(err, station.ErrNoStations) {
			response.NotFound(w, r, NoStationsDetail)
			return
		}
		h.logger.Error().Err(err).Str("city", city).Bool("raw", raw).Msg("aggregate weather data")
		response.InternalError(w, r, "failed to load weather data")
		return
	}

	response.JSON(w, r, http.StatusOK, items)
}
