package worker_test

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/stationhub/weatheraggregator/internal/reading"
	"github.com/stationhub/weatheraggregator/internal/station"
	"github.com/stationhub/weatheraggregator/internal/vendors/bulgarianmeteo"
	"github.com/stationhub/weatheraggregator/internal/vendors/weathermasterx"
)

type testStack struct {
	service  *station.Service
	registry *station.InMemoryRepository
	bmp      *bulgarianmeteo.InMemoryRepository
	wmx      *weathermasterx.InMemoryRepository
}

func newTestStack() *testStack {
	registry := station.NewInMemoryRepository()
	bmpRepo := bulgarianmeteo.NewInMemoryRepository()
	wmxRepo := weathermasterx.NewInMemoryRepository()

	svc := station.NewService(station.ServiceConfig{
		Registry: registry,
		Stores: []reading.Store{
			bulgarianmeteo.NewService(bmpRepo),
			weathermasterx.NewService(wmxRepo),
		},
		Factory: station.NewFactory(bulgarianmeteo.NewAdapter(), weathermasterx.NewAdapter()),
		Logger:  zerolog.New(io.Discard),
	})

	return &testStack{service: svc, registry: registry, bmp: bmpRepo, wmx: wmxRepo}
}

// entries returns the number of registry entries across all kinds.
func (s *testStack) entries(t *testing.T) int {
	t.Helper()

	counts, err := s.registry.CountByKind(context.Background())
	require.NoError(t, err)

	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}

// readings returns the number of stored readings of kind for city.
func (s *testStack) readings(t *testing.T, kind reading.Kind, city string) int {
	t.Helper()
	ctx := context.Background()

	switch kind {
	case reading.KindBulgarianMeteoPro:
		list, err := s.bmp.ListByCity(ctx, city)
		require.NoError(t, err)
		return len(list)
	case reading.KindWeatherMasterX:
		list, err := s.wmx.ListByCity(ctx, city)
		require.NoError(t, err)
		return len(list)
	}
	t.Fatalf("no store for kind %q", kind)
	return 0
}

const sofiaPayload = `{
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

const bostonPayload = `{
	"station_identifier": "WMX-BOS-7",
	"recorded_at": "2024-11-05T09:00:00Z",
	"operational_status": "operational",
	"location": {"city_name": "Boston", "coordinates": {"lat": 42.36, "lon": -71.06}},
	"readings": {"temp_fahrenheit": 50, "humidity_percent": 40, "pressure_hpa": 1018, "uv_index": 1, "rain_mm": 0}
}`
