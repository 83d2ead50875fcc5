package station_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stationhub/weatheraggregator/internal/api/models"
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
	"station_status": "inactive"
}`

const wmxPayload = `{
	"station_identifier": "WMX-SOF-2",
	"recorded_at": "2024-11-05T14:45:00Z",
	"operational_status": "operational",
	"location": {"city_name": "Sofia", "coordinates": {"lat": 42.7, "lon": 23.32}},
	"readings": {
		"temp_fahrenheit": 73.4,
		"humidity_percent": 50,
		"pressure_hpa": 1012.5,
		"uv_index": 3,
		"rain_mm": 0
	}
}`

type fixture struct {
	svc      *station.Service
	registry *station.InMemoryRepository
	bmp      *bulgarianmeteo.InMemoryRepository
	wmx      *weathermasterx.InMemoryRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	registry := station.NewInMemoryRepository()
	bmp := bulgarianmeteo.NewInMemoryRepository()
	wmx := weathermasterx.NewInMemoryRepository()

	svc := station.NewService(station.ServiceConfig{
		Registry: registry,
		Stores: []reading.Store{
			bulgarianmeteo.NewService(bmp),
			weathermasterx.NewService(wmx),
		},
		Factory: station.NewFactory(bulgarianmeteo.NewAdapter(), weathermasterx.NewAdapter()),
		Logger:  zerolog.Nop(),
	})

	return &fixture{svc: svc, registry: registry, bmp: bmp, wmx: wmx}
}

// countEntries sums the registry counts of every kind.
func countEntries(t *testing.T, registry station.Repository) int {
	t.Helper()

	counts, err := registry.CountByKind(context.Background())
	require.NoError(t, err)

	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}

// addDanglingEntry registers a WeatherMaster X station whose reading row
// does not exist.
func addDanglingEntry(t *testing.T, registry station.Repository, city string) {
	t.Helper()

	require.NoError(t, registry.Create(context.Background(), &station.Entry{
		StationType: string(reading.KindWeatherMasterX),
		City:        city,
		Kind:        reading.KindWeatherMasterX,
		RowID:       4242,
		IsActive:    true,
	}))
}

func TestService_IngestCreatesReadingAndEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rd, err := f.svc.Ingest(ctx, reading.KindBulgarianMeteoPro, []byte(bulgarianPayload))
	require.NoError(t, err)
	require.NotNil(t, rd)
	assert.NotZero(t, rd.ReadingID())

	stored, err := f.bmp.ListByCity(ctx, "Sofia")
	require.NoError(t, err)
	assert.Len(t, stored, 1)
	assert.Equal(t, 1, countEntries(t, f.registry))

	entries, err := f.registry.ListByCity(ctx, "sofia")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "bulgarianmeteoprodata", entries[0].StationType)
	assert.Equal(t, "Sofia", entries[0].City)
	assert.Equal(t, rd.ReadingID(), entries[0].RowID)
	assert.False(t, entries[0].IsActive)
}

func TestService_IngestInvalidCreatesNothing(t *testing.T) {
	f := newFixture(t)

	rd, err := f.svc.Ingest(context.Background(), reading.KindBulgarianMeteoPro, []byte(`{"city": "Sofia"}`))
	assert.Nil(t, rd)

	var verr *station.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, reading.KindBulgarianMeteoPro, verr.Kind)
	assert.NotEmpty(t, verr.Errors)

	stored, err := f.bmp.ListByCity(context.Background(), "Sofia")
	require.NoError(t, err)
	assert.Empty(t, stored)
	assert.Zero(t, countEntries(t, f.registry))
}

func TestService_IngestUnknownKind(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Ingest(context.Background(), reading.Kind("acmeweather"), []byte(`{}`))
	assert.ErrorIs(t, err, reading.ErrNoAdapter)
}

type recordingTx struct {
	calls int
	err   error
}

func (r *recordingTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.calls++
	if err := fn(ctx); err != nil {
		return err
	}
	return r.err
}

func TestService_IngestRunsInTransaction(t *testing.T) {
	tx := &recordingTx{err: errors.New("commit failed")}
	svc := station.NewService(station.ServiceConfig{
		Registry: station.NewInMemoryRepository(),
		Stores:   []reading.Store{weathermasterx.NewService(weathermasterx.NewInMemoryRepository())},
		Factory:  station.NewFactory(weathermasterx.NewAdapter()),
		Tx:       tx,
		Logger:   zerolog.Nop(),
	})

	_, err := svc.Ingest(context.Background(), reading.KindWeatherMasterX, []byte(wmxPayload))
	assert.EqualError(t, err, "commit failed")
	assert.Equal(t, 1, tx.calls)
}

func TestService_AggregateNoStations(t *testing.T) {
	f := newFixture(t)

	items, err := f.svc.Aggregate(context.Background(), "Atlantis", false)
	assert.Nil(t, items)
	assert.ErrorIs(t, err, station.ErrNoStations)
}

func TestService_AggregateNormalized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Ingest(ctx, reading.KindBulgarianMeteoPro, []byte(bulgarianPayload))
	require.NoError(t, err)
	_, err = f.svc.Ingest(ctx, reading.KindWeatherMasterX, []byte(wmxPayload))
	require.NoError(t, err)

	items, err := f.svc.Aggregate(ctx, "SOFIA", false)
	require.NoError(t, err)
	require.Len(t, items, 2)

	first := items[0].(models.WeatherData)
	assert.Equal(t, "BG-SOF-001", *first.StationID)
	assert.InDelta(t, 14.2, *first.WindSpeedKPH, 1e-9)
	assert.Nil(t, first.PressureHPA)
	assert.False(t, *first.IsActive)

	second := items[1].(models.WeatherData)
	assert.Equal(t, "WMX-SOF-2", *second.StationID)
	assert.InDelta(t, 23.0, *second.TemperatureCelsius, 0.01)
	assert.Nil(t, second.WindSpeedKPH)
	assert.True(t, *second.IsActive)

	body, err := json.Marshal(second)
	require.NoError(t, err)

	var shape map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &shape))
	assert.Len(t, shape, 11)
	assert.Contains(t, shape, "wind_speed_kph")
	assert.Nil(t, shape["wind_speed_kph"])
	assert.Equal(t, "2024-11-05T14:45:00Z", shape["timestamp"])
}

func TestService_AggregateRaw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Ingest(ctx, reading.KindWeatherMasterX, []byte(wmxPayload))
	require.NoError(t, err)

	items, err := f.svc.Aggregate(ctx, "sofia", true)
	require.NoError(t, err)
	require.Len(t, items, 1)

	raw, ok := items[0].(json.RawMessage)
	require.True(t, ok)
	assert.JSONEq(t, wmxPayload, string(raw))
}

func TestService_AggregateSkipsDanglingEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	addDanglingEntry(t, f.registry, "Sofia")
	_, err := f.svc.Ingest(ctx, reading.KindBulgarianMeteoPro, []byte(bulgarianPayload))
	require.NoError(t, err)

	items, err := f.svc.Aggregate(ctx, "Sofia", false)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "BG-SOF-001", *items[0].(models.WeatherData).StationID)
}

func TestService_AggregateAllSkipped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	addDanglingEntry(t, f.registry, "Sofia")

	_, err := f.svc.Aggregate(ctx, "Sofia", true)
	assert.ErrorIs(t, err, station.ErrNoStations)
}

func TestService_AggregateSkipsKindsWithoutAdapter(t *testing.T) {
	registry := station.NewInMemoryRepository()
	bmp := bulgarianmeteo.NewService(bulgarianmeteo.NewInMemoryRepository())

	writer := station.NewService(station.ServiceConfig{
		Registry: registry,
		Stores:   []reading.Store{bmp},
		Factory:  station.NewFactory(bulgarianmeteo.NewAdapter()),
		Logger:   zerolog.Nop(),
	})
	_, err := writer.Ingest(context.Background(), reading.KindBulgarianMeteoPro, []byte(bulgarianPayload))
	require.NoError(t, err)

	reader := station.NewService(station.ServiceConfig{
		Registry: registry,
		Stores:   []reading.Store{bmp},
		Factory:  station.NewFactory(),
		Logger:   zerolog.Nop(),
	})
	_, err = reader.Aggregate(context.Background(), "Sofia", false)
	assert.ErrorIs(t, err, station.ErrNoStations)
}

func TestService_Counts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Ingest(ctx, reading.KindWeatherMasterX, []byte(wmxPayload))
	require.NoError(t, err)
	_, err = f.svc.Ingest(ctx, reading.KindWeatherMasterX, []byte(wmxPayload))
	require.NoError(t, err)

	counts, err := f.svc.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.StationCount{
		{StationType: "bulgarianmeteoprodata", Count: 0},
		{StationType: "weathermasterx", Count: 2},
	}, counts)
}
