package middleware_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stationhub/weatheraggregator/internal/api/middleware"
	"github.com/stationhub/weatheraggregator/internal/api/models"
	"github.com/stationhub/weatheraggregator/internal/reading"
)

type ingestOutcome struct {
	kind reading.Kind
	err  error
}

type recorderFunc func(kind reading.Kind, err error)

func (f recorderFunc) RecordIngest(kind reading.Kind, err error) { f(kind, err) }

func TestRecovery_ReturnsProblem(t *testing.T) {
	var buf bytes.Buffer

	handler := middleware.RequestID(middleware.Recovery(zerolog.New(&buf), nil)(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("adapter table corrupted")
		}),
	))

	req := httptest.NewRequest(http.MethodGet, "/v1/stations/weather-data/Sofia", http.NoBody)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))

	var problem models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.Equal(t, models.ProblemTypeInternal, problem.Type)
	assert.Equal(t, "/v1/stations/weather-data/Sofia", problem.Instance)
	assert.NotEmpty(t, problem.TraceID)

	assert.Contains(t, buf.String(), "panic recovered")
	assert.Contains(t, buf.String(), "adapter table corrupted")
}

func TestRecovery_PassesThrough(t *testing.T) {
	handler := middleware.Recovery(zerolog.Nop(), nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRecovery_RecordsFailedIngestion(t *testing.T) {
	var (
		buf      bytes.Buffer
		outcomes []ingestOutcome
	)
	recorder := recorderFunc(func(kind reading.Kind, err error) {
		outcomes = append(outcomes, ingestOutcome{kind: kind, err: err})
	})

	handler := middleware.RequestID(middleware.Recovery(zerolog.New(&buf), recorder)(
		middleware.StationType(reading.KindWeatherMasterX)(
			http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				panic("nil readings block")
			}),
		),
	))

	req := httptest.NewRequest(http.MethodPost, "/v1/weather-master-x/weather-data", http.NoBody)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.Len(t, outcomes, 1)
	assert.Equal(t, reading.KindWeatherMasterX, outcomes[0].kind)
	assert.ErrorIs(t, outcomes[0].err, middleware.ErrHandlerPanic)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "weathermasterx", entry["station_type"])
}

func TestRecovery_DoesNotRecordReads(t *testing.T) {
	recorded := false
	recorder := recorderFunc(func(reading.Kind, error) { recorded = true })

	handler := middleware.RequestID(middleware.Recovery(zerolog.Nop(), recorder)(
		middleware.StationType(reading.KindBulgarianMeteoPro)(
			http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				panic("list failed")
			}),
		),
	))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/bulgarian-meteo-pro/weather-data/Sofia", http.NoBody))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, recorded)
}
