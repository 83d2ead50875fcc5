package station

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/stationhub/weatheraggregator/internal/api/models"
	"github.com/stationhub/weatheraggregator/internal/reading"
)

// Skip reasons reported in logs and metrics.
const (
	skipNoStore   = "no_store"
	skipNoRow     = "missing_row"
	skipNoAdapter = "no_adapter"
	skipNormalize = "normalize_failed"
)

// TxRunner runs fn inside a transaction.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ServiceConfig holds configuration for the station service.
type ServiceConfig struct {
	Registry Repository
	Stores   []reading.Store
	Factory  *Factory

	// Tx makes the reading and its registry entry one unit of work. When
	// nil, writes run directly.
	Tx TxRunner

	Logger  zerolog.Logger
	Metrics *Metrics
}

// Service ingests vendor payloads and aggregates readings per city.
type Service struct {
	registry Repository
	stores   map[reading.Kind]reading.Store
	factory  *Factory
	tx       TxRunner
	logger   zerolog.Logger
	metrics  *Metrics
}

// NewService creates a new station service.
func NewService(cfg ServiceConfig) *Service {
	stores := make(map[reading.Kind]reading.Store, len(cfg.Stores))
	for _, s := range cfg.Stores {
		stores[s.Kind()] = s
	}

	factory := cfg.Factory
	if factory == nil {
		factory = NewFactory()
	}

	return &Service{
		registry: cfg.Registry,
		stores:   stores,
		factory:  factory,
		tx:       cfg.Tx,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
	}
}

// Ingest decodes and validates payload as a reading of the given kind, then
// stores the reading together with its registry entry. Validation failures
// are returned as *ValidationError and nothing is stored.
func (s *Service) Ingest(ctx context.Context, kind reading.Kind, payload []byte) (reading.Reading, error) {
	rd, err := s.ingest(ctx, kind, payload)
	s.metrics.RecordIngest(kind, err)
	return rd, err
}

func (s *Service) ingest(ctx context.Context, kind reading.Kind, payload []byte) (reading.Reading, error) {
	adapter, err := s.factory.Adapter(kind)
	if err != nil {
		return nil, err
	}

	store, ok := s.stores[kind]
	if !ok {
		return nil, fmt.Errorf("%w for %q", ErrNoStore, kind)
	}

	rd, fieldErrs := adapter.Decode(payload)
	if len(fieldErrs) > 0 {
		s.metrics.RecordReject(kind)
		return nil, &ValidationError{Kind: kind, Errors: fieldErrs}
	}

	fields, err := adapter.Normalize(rd)
	if err != nil {
		return nil, fmt.Errorf("normalize %s reading: %w", kind, err)
	}

	entry := &Entry{
		StationType: string(kind),
		City:        deref(fields.City),
		Kind:        kind,
		IsActive:    deref(fields.IsActive),
		CreatedAt:   time.Now().UTC(),
	}

	err = s.withinTx(ctx, func(ctx context.Context) error {
		if err := store.Save(ctx, rd); err != nil {
			return fmt.Errorf("save %s reading: %w", kind, err)
		}

		entry.RowID = rd.ReadingID()
		if err := s.registry.Create(ctx, entry); err != nil {
			return fmt.Errorf("register station: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("station_type", entry.StationType).
		Str("city", entry.City).
		Int64("row_id", entry.RowID).
		Int64("entry_id", entry.ID).
		Msg("reading ingested")

	return rd, nil
}

func (s *Service) withinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return s.tx.WithinTx(ctx, fn)
}

// Aggregate returns one item per registry entry of city, in registry order.
// With raw set each item is the payload originally submitted
// (json.RawMessage); otherwise it is the normalized models.WeatherData.
// Entries whose reading is missing or whose kind has no store or adapter
// are skipped. ErrNoStations is returned when nothing is left.
func (s *Service) Aggregate(ctx context.Context, city string, raw bool) ([]interface{}, error) {
	start := time.Now()
	items, err := s.aggregate(ctx, city, raw)
	s.metrics.RecordAggregate(time.Since(start), raw, err)
	return items, err
}

func (s *Service) aggregate(ctx context.Context, city string, raw bool) ([]interface{}, error) {
	entries, err := s.registry.ListByCity(ctx, city)
	if err != nil {
		return nil, fmt.Errorf("list station entries: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrNoStations
	}

	rows, err := s.loadRows(ctx, entries)
	if err != nil {
		return nil, err
	}

	items := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		kindRows, ok := rows[e.Kind]
		if !ok {
			s.skip(e, skipNoStore, nil)
			continue
		}

		rd, ok := kindRows[e.RowID]
		if !ok {
			s.skip(e, skipNoRow, nil)
			continue
		}

		adapter, err := s.factory.Adapter(e.Kind)
		if err != nil {
			s.skip(e, skipNoAdapter, err)
			continue
		}

		if raw {
			items = append(items, rd.RawPayload())
			continue
		}

		fields, err := adapter.Normalize(rd)
		if err != nil {
			s.skip(e, skipNormalize, err)
			continue
		}
		items = append(items, toWeatherData(fields))
	}

	if len(items) == 0 {
		return nil, ErrNoStations
	}
	return items, nil
}

// loadRows batch-loads the readings behind entries with one call per kind.
func (s *Service) loadRows(ctx context.Context, entries []*Entry) (map[reading.Kind]map[int64]reading.Reading, error) {
	ids := make(map[reading.Kind][]int64)
	for _, e := range entries {
		ids[e.Kind] = append(ids[e.Kind], e.RowID)
	}

	rows := make(map[reading.Kind]map[int64]reading.Reading, len(ids))
	for kind, kindIDs := range ids {
		store, ok := s.stores[kind]
		if !ok {
			continue
		}

		loaded, err := store.Load(ctx, kindIDs)
		if err != nil {
			return nil, fmt.Errorf("load %s readings: %w", kind, err)
		}
		rows[kind] = loaded
	}

	return rows, nil
}

func (s *Service) skip(e *Entry, reason string, err error) {
	s.metrics.RecordSkip(e.Kind, reason)

	event := s.logger.Debug().
		Int64("entry_id", e.ID).
		Str("station_type", e.StationType).
		Int64("row_id", e.RowID).
		Str("reason", reason)
	if err != nil && !errors.Is(err, reading.ErrNoAdapter) {
		event = event.Err(err)
	}
	event.Msg("station entry skipped")
}

// Counts returns the number of registry entries per known kind, including
// kinds with none, followed by any other kinds found in the registry.
func (s *Service) Counts(ctx context.Context) ([]models.StationCount, error) {
	counts, err := s.registry.CountByKind(ctx)
	if err != nil {
		return nil, fmt.Errorf("count station entries: %w", err)
	}

	out := make([]models.StationCount, 0, len(counts))
	for _, kind := range reading.Kinds() {
		out = append(out, models.StationCount{StationType: string(kind), Count: counts[kind]})
		delete(counts, kind)
	}
	extra := make([]models.StationCount, 0, len(counts))
	for kind, n := range counts {
		extra = append(extra, models.StationCount{StationType: string(kind), Count: n})
	}
	sort.Slice(extra, func(i, j int) bool {
		return extra[i].StationType < extra[j].StationType
	})
	return append(out, extra...), nil
}

func toWeatherData(f reading.Fields) models.WeatherData {
	wd := models.WeatherData{
		StationID:          f.StationID,
		City:               f.City,
		Latitude:           f.Latitude,
		Longitude:          f.Longitude,
		TemperatureCelsius: f.TemperatureCelsius,
		HumidityPercent:    f.HumidityPercent,
		WindSpeedKPH:       f.WindSpeedKPH,
		PressureHPA:        f.PressureHPA,
		UVIndex:            f.UVIndex,
		IsActive:           f.IsActive,
	}
	if f.Timestamp != nil {
		ts := models.Timestamp(*f.Timestamp)
		wd.Timestamp = &ts
	}
	return wd
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
