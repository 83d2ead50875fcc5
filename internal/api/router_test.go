package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stationhub/weatheraggregator/internal/api"
	"github.com/stationhub/weatheraggregator/internal/api/handler"
	"github.com/stationhub/weatheraggregator/internal/api/models"
	"github.com/stationhub/weatheraggregator/internal/auth"
	"github.com/stationhub/weatheraggregator/internal/reading"
	"github.com/stationhub/weatheraggregator/internal/station"
	"github.com/stationhub/weatheraggregator/internal/vendors/bulgarianmeteo"
	"github.com/stationhub/weatheraggregator/internal/vendors/weathermasterx"
)

const bulgarianPayload = `{
	"station_id": "BG-SOF-001",
	"city": "Sofia",
	"latitude": 42.6977,
	"longitude": 23.3219,
	"timestamp": "2024-11-05T14:30:00Z",
	"temperature_celsius": 12.5,
	"humidity_percent": 68.25,
	"wind_speed_kph": 14.2,
	"station_status": "active"
}`

const wmxPayload = `{
	"station_identifier": "WMX-SOF-2",
	"recorded_at": "2024-11-05T14:45:00Z",
	"operational_status": "maintenance",
	"location": {"city_name": "Sofia", "coordinates": {"lat": 42.7, "lon": 23.32}},
	"readings": {
		"temp_fahrenheit": 73.4,
		"humidity_percent": 50,
		"pressure_hpa": 1012.5,
		"uv_index": 3,
		"rain_mm": 1.25
	}
}`

func testTokenService() *auth.TokenService {
	return auth.NewTokenService(auth.TokenConfig{
		SigningKey: "test-secret-key-for-testing-only",
		Issuer:     "https://weather.stationhub.dev",
		Audience:   "weather-ingest",
	})
}

type routerOption func(*api.RouterConfig)

func withTokens(svc *auth.TokenService) routerOption {
	return func(cfg *api.RouterConfig) { cfg.TokenService = svc }
}

func withDatabase(p handler.Pinger) routerOption {
	return func(cfg *api.RouterConfig) { cfg.Database = p }
}

func newTestRouter(opts ...routerOption) http.Handler {
	logger := zerolog.New(io.Discard)

	bmp := bulgarianmeteo.NewService(bulgarianmeteo.NewInMemoryRepository())
	wmx := weathermasterx.NewService(weathermasterx.NewInMemoryRepository())
	stations := station.NewService(station.ServiceConfig{
		Registry: station.NewInMemoryRepository(),
		Stores:   []reading.Store{bmp, wmx},
		Factory:  station.NewFactory(bulgarianmeteo.NewAdapter(), weathermasterx.NewAdapter()),
		Logger:   logger,
	})

	cfg := api.RouterConfig{
		Version:               "test",
		BuildTime:             "2024-01-01T00:00:00Z",
		Logger:                logger,
		StationService:        stations,
		BulgarianMeteoService: bmp,
		WeatherMasterXService: wmx,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return api.NewRouter(cfg)
}

func post(t *testing.T, router http.Handler, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRouter_HealthCheck(t *testing.T) {
	w := get(newTestRouter(), "/v1/ops/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	var health models.Health
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))

	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "test", health.Details["version"])
}

func TestRouter_ReadinessCheck(t *testing.T) {
	w := get(newTestRouter(), "/v1/ops/ready")

	assert.Equal(t, http.StatusOK, w.Code)

	var health models.Health
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, models.HealthStatusOK, health.Status)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestRouter_ReadinessCheckDatabaseDown(t *testing.T) {
	down := pingerFunc(func(context.Context) error { return errors.New("connection refused") })

	w := get(newTestRouter(withDatabase(down)), "/v1/ops/ready")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
}

func TestRouter_SystemStatus(t *testing.T) {
	router := newTestRouter()

	require.Equal(t, http.StatusCreated, post(t, router, "/v1/weather-master-x/weather-data", wmxPayload, "").Code)

	w := get(router, "/v1/ops/status")
	assert.Equal(t, http.StatusOK, w.Code)

	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))

	assert.Equal(t, models.HealthStatusOK, status.Status)
	require.Len(t, status.Subsystems, 1)
	assert.Equal(t, "memory", status.Subsystems[0].Name)
	assert.Contains(t, status.Stations, models.StationCount{StationType: "weathermasterx", Count: 1})
	assert.Contains(t, status.Stations, models.StationCount{StationType: "bulgarianmeteoprodata", Count: 0})
}

func TestRouter_SystemStatusDegraded(t *testing.T) {
	down := pingerFunc(func(context.Context) error { return errors.New("connection refused") })

	w := get(newTestRouter(withDatabase(down)), "/v1/ops/status")
	assert.Equal(t, http.StatusOK, w.Code)

	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, models.HealthStatusDegraded, status.Status)
	assert.Equal(t, models.HealthStatusFail, status.Subsystems[0].Status)
}

func TestRouter_CreateBulgarianMeteoPro(t *testing.T) {
	w := post(t, newTestRouter(), "/v1/bulgarian-meteo-pro/weather-data", bulgarianPayload, "")

	assert.Equal(t, http.StatusCreated, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "BG-SOF-001", body["station_id"])
	assert.Equal(t, "active", body["station_status"])
	assert.NotZero(t, body["id"])
	assert.Contains(t, body, "raw_data")
}

func TestRouter_CreateWeatherMasterX(t *testing.T) {
	w := post(t, newTestRouter(), "/v1/weather-master-x/weather-data", wmxPayload, "")

	assert.Equal(t, http.StatusCreated, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Sofia", body["city_name"])
	assert.Equal(t, 42.7, body["lat"])
	assert.Equal(t, 73.4, body["temp_fahrenheit"])
	assert.NotContains(t, body, "raw_data")
	assert.NotContains(t, body, "location")
}

func TestRouter_CreateInvalidPayload(t *testing.T) {
	router := newTestRouter()

	payload := `{"station_id": "BG-1", "city": "Sofia", "latitude": "north"}`
	w := post(t, router, "/v1/bulgarian-meteo-pro/weather-data", payload, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))

	var problem models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.Equal(t, models.ProblemTypeValidation, problem.Type)

	codes := make(map[string]string, len(problem.Errors))
	for _, e := range problem.Errors {
		codes[e.Field] = e.Code
		assert.NotEmpty(t, e.Message, e.Field)
	}
	assert.Equal(t, reading.CodeInvalid, codes["latitude"])
	assert.Equal(t, reading.CodeRequired, codes["timestamp"])

	// Nothing was stored
	assert.Equal(t, http.StatusNotFound, get(router, "/v1/stations/weather-data/Sofia").Code)
}

func TestRouter_CreateRejectsNonJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/weather-master-x/weather-data", strings.NewReader(wmxPayload))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()

	newTestRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestRouter_CreateRejectsOversizedBody(t *testing.T) {
	body := `{"padding": "` + strings.Repeat("x", handler.MaxPayloadBytes) + `"}`

	w := post(t, newTestRouter(), "/v1/weather-master-x/weather-data", body, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "payload exceeds")
}

func TestRouter_AggregateUnknownCity(t *testing.T) {
	w := get(newTestRouter(), "/v1/stations/weather-data/Atlantis")

	assert.Equal(t, http.StatusNotFound, w.Code)

	var problem models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.Equal(t, "No weather stations found for the specified city.", problem.Detail)
}

func TestRouter_AggregateNormalized(t *testing.T) {
	router := newTestRouter()

	require.Equal(t, http.StatusCreated, post(t, router, "/v1/bulgarian-meteo-pro/weather-data", bulgarianPayload, "").Code)
	require.Equal(t, http.StatusCreated, post(t, router, "/v1/weather-master-x/weather-data", wmxPayload, "").Code)

	w := get(router, "/v1/stations/weather-data/sofia")
	assert.Equal(t, http.StatusOK, w.Code)

	var items []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 2)

	for _, item := range items {
		assert.Len(t, item, 11)
	}

	assert.Equal(t, "BG-SOF-001", items[0]["station_id"])
	assert.Equal(t, 14.2, items[0]["wind_speed_kph"])
	assert.Nil(t, items[0]["pressure_hpa"])
	assert.Equal(t, true, items[0]["is_active"])

	assert.Equal(t, "WMX-SOF-2", items[1]["station_id"])
	assert.InDelta(t, 23.0, items[1]["temperature_celsius"], 0.01)
	assert.Equal(t, 1012.5, items[1]["pressure_hpa"])
	assert.Nil(t, items[1]["wind_speed_kph"])
	assert.Equal(t, false, items[1]["is_active"])
	assert.Equal(t, "2024-11-05T14:45:00Z", items[1]["timestamp"])
}

func TestRouter_AggregateKeepsFractionalSeconds(t *testing.T) {
	router := newTestRouter()

	payload := strings.Replace(bulgarianPayload, "2024-11-05T14:30:00Z", "2024-11-05T14:30:00.123456Z", 1)
	created := post(t, router, "/v1/bulgarian-meteo-pro/weather-data", payload, "")
	require.Equal(t, http.StatusCreated, created.Code)

	var native map[string]interface{}
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &native))

	w := get(router, "/v1/stations/weather-data/Sofia")
	require.Equal(t, http.StatusOK, w.Code)

	var items []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 1)

	assert.Equal(t, "2024-11-05T14:30:00.123456Z", items[0]["timestamp"])
	assert.Equal(t, native["timestamp"], items[0]["timestamp"])
}

func TestRouter_AggregateRaw(t *testing.T) {
	router := newTestRouter()

	require.Equal(t, http.StatusCreated, post(t, router, "/v1/bulgarian-meteo-pro/weather-data", bulgarianPayload, "").Code)
	require.Equal(t, http.StatusCreated, post(t, router, "/v1/weather-master-x/weather-data", wmxPayload, "").Code)

	w := get(router, "/v1/stations/weather-data/Sofia?raw=TRUE")
	assert.Equal(t, http.StatusOK, w.Code)

	var items []json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 2)
	assert.JSONEq(t, bulgarianPayload, string(items[0]))
	assert.JSONEq(t, wmxPayload, string(items[1]))
}

func TestRouter_AggregateRawOnlyWhenTrue(t *testing.T) {
	router := newTestRouter()

	require.Equal(t, http.StatusCreated, post(t, router, "/v1/bulgarian-meteo-pro/weather-data", bulgarianPayload, "").Code)

	w := get(router, "/v1/stations/weather-data/Sofia?raw=1")
	assert.Equal(t, http.StatusOK, w.Code)

	var items []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Contains(t, items[0], "temperature_celsius")
	assert.NotContains(t, items[0], "station_status")
}

func TestRouter_VendorListByCity(t *testing.T) {
	router := newTestRouter()

	later := strings.Replace(wmxPayload, "2024-11-05T14:45:00Z", "2024-11-05T18:00:00Z", 1)
	require.Equal(t, http.StatusCreated, post(t, router, "/v1/weather-master-x/weather-data", later, "").Code)
	require.Equal(t, http.StatusCreated, post(t, router, "/v1/weather-master-x/weather-data", wmxPayload, "").Code)

	w := get(router, "/v1/weather-master-x/weather-data/SOFIA")
	assert.Equal(t, http.StatusOK, w.Code)

	var items []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "2024-11-05T14:45:00Z", items[0]["recorded_at"])
	assert.Equal(t, "2024-11-05T18:00:00Z", items[1]["recorded_at"])
}

func TestRouter_VendorListEmptyCity(t *testing.T) {
	w := get(newTestRouter(), "/v1/bulgarian-meteo-pro/weather-data/Varna")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestRouter_IngestionAuth(t *testing.T) {
	tokens := testTokenService()
	router := newTestRouter(withTokens(tokens))

	wmxOnly, _, err := tokens.IssueToken("nyc-gateway", []reading.Kind{reading.KindWeatherMasterX}, time.Hour)
	require.NoError(t, err)

	t.Run("missing token", func(t *testing.T) {
		w := post(t, router, "/v1/weather-master-x/weather-data", wmxPayload, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("allowed kind", func(t *testing.T) {
		w := post(t, router, "/v1/weather-master-x/weather-data", wmxPayload, wmxOnly)
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("other kind", func(t *testing.T) {
		w := post(t, router, "/v1/bulgarian-meteo-pro/weather-data", bulgarianPayload, wmxOnly)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("reads stay public", func(t *testing.T) {
		w := get(router, "/v1/stations/weather-data/Sofia")
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRouter_SecurityHeaders(t *testing.T) {
	w := get(newTestRouter(), "/v1/ops/health")

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestRouter_RequestIDPropagation(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	req.Header.Set("X-Request-Id", "req_custom123")
	w := httptest.NewRecorder()

	newTestRouter().ServeHTTP(w, req)

	assert.Equal(t, "req_custom123", w.Header().Get("X-Request-Id"))
}

func TestRouter_ProblemCarriesRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/weather-master-x/weather-data", bytes.NewReader([]byte(`[]`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", "req_problem42")
	w := httptest.NewRecorder()

	newTestRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var problem models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.Equal(t, "req_problem42", problem.TraceID)
	assert.Equal(t, "/v1/weather-master-x/weather-data", problem.Instance)
}
