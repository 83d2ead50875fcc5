// Package app assembles the storage and services shared by the API and
// worker processes.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/stationhub/weatheraggregator/internal/config"
	"github.com/stationhub/weatheraggregator/internal/database"
	"github.com/stationhub/weatheraggregator/internal/reading"
	"github.com/stationhub/weatheraggregator/internal/station"
	"github.com/stationhub/weatheraggregator/internal/vendors/bulgarianmeteo"
	"github.com/stationhub/weatheraggregator/internal/vendors/weathermasterx"
)

// Services holds the wired station service and its vendor stores.
type Services struct {
	Stations       *station.Service
	BulgarianMeteo *bulgarianmeteo.Service
	WeatherMasterX *weathermasterx.Service

	// Pool is nil when running on in-memory storage.
	Pool *pgxpool.Pool
}

// Close releases the database pool, if any.
func (s *Services) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}

// NewServices wires the station service over the configured storage
// backend. With PostgreSQL the schema is migrated first when
// DB_AUTO_MIGRATE is set, and each ingestion runs in one transaction.
func NewServices(ctx context.Context, cfg *config.Config, logger zerolog.Logger, metrics *station.Metrics) (*Services, error) {
	var (
		svc      = &Services{}
		registry station.Repository
		bmpRepo  bulgarianmeteo.Repository
		wmxRepo  weathermasterx.Repository
		tx       station.TxRunner
	)

	switch cfg.Storage {
	case config.StorageMemory:
		logger.Warn().Msg("using in-memory storage - data is lost on restart")
		registry = station.NewInMemoryRepository()
		bmpRepo = bulgarianmeteo.NewInMemoryRepository()
		wmxRepo = weathermasterx.NewInMemoryRepository()

	case config.StoragePostgres:
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		logger.Info().
			Str("host", cfg.Database.Host).
			Int("port", cfg.Database.Port).
			Str("database", cfg.Database.Database).
			Msg("database connected")

		if cfg.Database.AutoMigrate {
			if err := database.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrate database: %w", err)
			}
			logger.Info().Msg("database schema migrated")
		}

		svc.Pool = pool
		registry = station.NewPostgresRepository(pool)
		bmpRepo = bulgarianmeteo.NewPostgresRepository(pool)
		wmxRepo = weathermasterx.NewPostgresRepository(pool)
		tx = database.NewTransactor(pool)

	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage)
	}

	svc.BulgarianMeteo = bulgarianmeteo.NewService(bmpRepo)
	svc.WeatherMasterX = weathermasterx.NewService(wmxRepo)
	svc.Stations = station.NewService(station.ServiceConfig{
		Registry: registry,
		Stores:   []reading.Store{svc.BulgarianMeteo, svc.WeatherMasterX},
		Factory:  station.NewFactory(bulgarianmeteo.NewAdapter(), weathermasterx.NewAdapter()),
		Tx:       tx,
		Logger:   logger,
		Metrics:  metrics,
	})

	return svc, nil
}
