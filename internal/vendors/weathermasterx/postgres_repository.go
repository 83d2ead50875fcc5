package weathermasterx

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stationhub/weatheraggregator/internal/database"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL reading repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const selectColumns = `
	SELECT id, station_identifier, city_name, lat, lon, recorded_at, temp_fahrenheit,
	       humidity_percent, pressure_hpa, uv_index, rain_mm, operational_status, raw_data
	FROM weather_master_x_readings
`

// Create stores a new reading and sets its ID.
func (r *PostgresRepository) Create(ctx context.Context, rd *Reading) error {
	query := `
		INSERT INTO weather_master_x_readings (
			station_identifier, city_name, lat, lon, recorded_at, temp_fahrenheit,
			humidity_percent, pressure_hpa, uv_index, rain_mm, operational_status, raw_data
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	err := database.Conn(ctx, r.pool).QueryRow(ctx, query,
		rd.StationIdentifier,
		rd.CityName,
		rd.Lat,
		rd.Lon,
		rd.RecordedAt,
		rd.TempFahrenheit,
		rd.HumidityPercent,
		rd.PressureHPA,
		rd.UVIndex,
		rd.RainMM,
		string(rd.OperationalStatus),
		[]byte(rd.Raw),
	).Scan(&rd.ID)
	if err != nil {
		return fmt.Errorf("insert weather master x reading: %w", err)
	}

	return nil
}

// GetByIDs batch-loads readings by primary key.
func (r *PostgresRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*Reading, error) {
	out := make(map[int64]*Reading, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := database.Conn(ctx, r.pool).Query(ctx, selectColumns+`WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}

	readings, err := scanReadings(rows)
	if err != nil {
		return nil, err
	}
	for _, rd := range readings {
		out[rd.ID] = rd
	}
	return out, nil
}

// ListByCity returns the readings of a city ordered by recording time.
func (r *PostgresRepository) ListByCity(ctx context.Context, city string) ([]*Reading, error) {
	query := selectColumns + `
		WHERE lower(city_name) = lower($1)
		ORDER BY recorded_at, id
	`

	rows, err := database.Conn(ctx, r.pool).Query(ctx, query, city)
	if err != nil {
		return nil, err
	}
	return scanReadings(rows)
}

func scanReadings(rows pgx.Rows) ([]*Reading, error) {
	defer rows.Close()

	var readings []*Reading
	for rows.Next() {
		var (
			rd     Reading
			status string
			raw    []byte
		)
		err := rows.Scan(
			&rd.ID,
			&rd.StationIdentifier,
			&rd.CityName,
			&rd.Lat,
			&rd.Lon,
			&rd.RecordedAt,
			&rd.TempFahrenheit,
			&rd.HumidityPercent,
			&rd.PressureHPA,
			&rd.UVIndex,
			&rd.RainMM,
			&status,
			&raw,
		)
		if err != nil {
			return nil, err
		}
		rd.OperationalStatus = OperationalStatus(status)
		rd.Raw = raw
		rd.RecordedAt = rd.RecordedAt.UTC()
		readings = append(readings, &rd)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return readings, nil
}

var _ Repository = (*PostgresRepository)(nil)
