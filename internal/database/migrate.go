package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is idempotent and safe to apply on every start.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS bulgarian_meteo_pro_readings (
		id                  BIGSERIAL PRIMARY KEY,
		station_id          VARCHAR(50)   NOT NULL,
		city                VARCHAR(100)  NOT NULL,
		latitude            DOUBLE PRECISION NOT NULL,
		longitude           DOUBLE PRECISION NOT NULL,
		timestamp           TIMESTAMPTZ   NOT NULL,
		temperature_celsius NUMERIC(5, 2) NOT NULL,
		humidity_percent    NUMERIC(5, 2) NOT NULL,
		wind_speed_kph      NUMERIC(5, 2) NOT NULL,
		station_status      VARCHAR(20)   NOT NULL,
		raw_data            JSONB         NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bmp_readings_city_timestamp
		ON bulgarian_meteo_pro_readings (lower(city), timestamp)`,

	`CREATE TABLE IF NOT EXISTS weather_master_x_readings (
		id                 BIGSERIAL PRIMARY KEY,
		station_identifier VARCHAR(50)    NOT NULL,
		city_name          VARCHAR(100)   NOT NULL,
		lat                DOUBLE PRECISION NOT NULL,
		lon                DOUBLE PRECISION NOT NULL,
		recorded_at        TIMESTAMPTZ    NOT NULL,
		temp_fahrenheit    NUMERIC(5, 2)  NOT NULL,
		humidity_percent   NUMERIC(5, 2)  NOT NULL,
		pressure_hpa       NUMERIC(10, 2) NOT NULL,
		uv_index           INTEGER        NOT NULL,
		rain_mm            NUMERIC(5, 2)  NOT NULL,
		operational_status VARCHAR(20)    NOT NULL,
		raw_data           JSONB          NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_wmx_readings_city_recorded
		ON weather_master_x_readings (lower(city_name), recorded_at)`,

	`CREATE TABLE IF NOT EXISTS stations (
		id           BIGSERIAL PRIMARY KEY,
		station_type VARCHAR(100) NOT NULL,
		city         VARCHAR(100) NOT NULL,
		kind         VARCHAR(50)  NOT NULL,
		row_id       BIGINT       NOT NULL,
		is_active    BOOLEAN      NOT NULL DEFAULT TRUE,
		created_at   TIMESTAMPTZ  NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_stations_kind_row ON stations (kind, row_id)`,
	`CREATE INDEX IF NOT EXISTS idx_stations_city ON stations (lower(city))`,
}

// Migrate applies the schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
