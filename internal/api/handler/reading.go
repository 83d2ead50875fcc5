package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/stationhub/weatheraggregator/internal/api/models"
	"github.com/stationhub/weatheraggregator/internal/api/response"
	"github.com/stationhub/weatheraggregator/internal/reading"
	"github.com/stationhub/weatheraggregator/internal/station"
)

// MaxPayloadBytes bounds a single vendor payload.
const MaxPayloadBytes = 1 << 20

// Ingester stores a vendor payload and its registry entry.
type Ingester interface {
	Ingest(ctx context.Context, kind reading.Kind, payload []byte) (reading.Reading, error)
}

// CityLister lists one vendor's readings for a city.
type CityLister[T any] interface {
	ListByCity(ctx context.Context, city string) ([]T, error)
}

// ReadingHandler serves the vendor-native endpoints of one station type.
// T is the vendor's reading type as returned by its list endpoint.
type ReadingHandler[T any] struct {
	kind     reading.Kind
	ingester Ingester
	lister   CityLister[T]
	logger   zerolog.Logger
}

// NewReadingHandler creates a handler for the readings of kind.
func NewReadingHandler[T any](kind reading.Kind, ingester Ingester, lister CityLister[T], logger zerolog.Logger) *ReadingHandler[T] {
	return &ReadingHandler[T]{
		kind:     kind,
		ingester: ingester,
		lister:   lister,
		logger:   logger.With().Str("station_type", string(kind)).Logger(),
	}
}

// Create handles POST .../weather-data - ingest one vendor payload. The
// stored reading is returned in the vendor's own shape.
func (h *ReadingHandler[T]) Create(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxPayloadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.BadRequest(w, r, fmt.Sprintf("payload exceeds %d bytes", MaxPayloadBytes), nil)
			return
		}
		response.BadRequest(w, r, "could not read request body", nil)
		return
	}

	rd, err := h.ingester.Ingest(r.Context(), h.kind, payload)
	if err != nil {
		var verr *station.ValidationError
		if errors.As(err, &verr) {
			response.BadRequest(w, r, "invalid "+string(h.kind)+" payload", toFieldErrors(verr.Errors))
			return
		}
		h.logger.Error().Err(err).Str("client_id", GetClientID(r.Context())).Msg("ingest reading")
		response.InternalError(w, r, "failed to store reading")
		return
	}

	response.Created(w, r, "", rd)
}

// ListByCity handles GET .../weather-data/{city} - the vendor's readings for
// a city in recording order.
func (h *ReadingHandler[T]) ListByCity(w http.ResponseWriter, r *http.Request) {
	city := strings.TrimSpace(chi.URLParam(r, "city"))
	if city == "" {
		response.BadRequest(w, r, "city is required", nil)
		return
	}

	items, err := h.lister.ListByCity(r.Context(), city)
	if err != nil {
		h.logger.Error().Err(err).Str("city", city).Msg("list readings")
		response.InternalError(w, r, "failed to load readings")
		return
	}

	response.JSON(w, r, http.StatusOK, items)
}

// toFieldErrors converts decoder field errors to their API form.
func toFieldErrors(errs []reading.FieldError) []models.FieldError {
	if len(errs) == 0 {
		return nil
	}
	out := make([]models.FieldError, len(errs))
	for i, e := range errs {
		out[i] = models.FieldError{Field: e.Field, Message: e.Message, Code: e.Code}
	}
	return out
}
