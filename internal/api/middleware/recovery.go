package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/stationhub/weatheraggregator/internal/api/models"
	"github.com/stationhub/weatheraggregator/internal/reading"
)

// ErrHandlerPanic is recorded as the outcome of an ingestion whose handler
// panicked.
var ErrHandlerPanic = errors.New("handler panicked")

// IngestRecorder records ingestion outcomes. *station.Metrics implements it.
type IngestRecorder interface {
	RecordIngest(kind reading.Kind, err error)
}

// Recovery returns a middleware that recovers from panics and returns a 500
// error. A panic while ingesting a vendor payload is counted as a failed
// ingestion of that station type; recorder may be nil.
func Recovery(log zerolog.Logger, recorder IngestRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					requestID := GetRequestID(r.Context())
					kind := GetStationType(r.Context())

					event := log.Error().
						Str("request_id", requestID).
						Interface("error", err).
						Str("stack", string(debug.Stack()))
					if kind != "" {
						event = event.Str("station_type", string(kind))
					}
					event.Msg("panic recovered")

					if recorder != nil && kind != "" && r.Method == http.MethodPost {
						recorder.RecordIngest(kind, ErrHandlerPanic)
					}

					problem := models.NewInternalError(requestID, "an unexpected error occurred")
					problem.Instance = r.URL.Path
					problem.Write(w)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
