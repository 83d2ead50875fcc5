package bulgarianmeteo

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
	SELECT id, station_id, city, latitude, longitude, timestamp,
	       temperature_celsius, humidity_percent, wind_speed_kph, station_status, raw_data
	FROM bulgarian_meteo_pro_readings
`

// Create stores a new reading and sets its ID.
func (r *PostgresRepository) Create(ctx context.Context, rd *Reading) error {
	query := `
		INSERT INTO bulgarian_meteo_pro_readings (
			station_id, city, latitude, longitude, timestamp,
			temperature_celsius, humidity_percent, wind_speed_kph, station_status, raw_data
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	err := database.Conn(ctx, r.pool).QueryRow(ctx, query,
		rd.StationID,
		rd.City,
		rd.Latitude,
		rd.Longitude,
		rd.Timestamp,
		rd.TemperatureCelsius,
		rd.HumidityPercent,
		rd.WindSpeedKPH,
		string(rd.StationStatus),
		[]byte(rd.Raw),
	).Scan(&rd.ID)
	if err != nil {
		return fmt.Errorf("insert bulgarian meteo pro reading: %w", err)
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

// ListByCity returns the readings of a city, oldest first.
func (r *PostgresRepository) ListByCity(ctx context.Context, city string) ([]*Reading, error) {
	query := selectColumns + `
		WHERE lower(city) = lower($1)
		ORDER BY timestamp, id
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
			&rd.StationID,
			&rd.City,
			&rd.Latitude,
			&rd.Longitude,
			&rd.Timestamp,
			&rd.TemperatureCelsius,
			&rd.HumidityPercent,
			&rd.WindSpeedKPH,
			&status,
			&raw,
		)
		if err != nil {
			return nil, err
		}
		rd.StationStatus = Status(status)
		rd.Raw = raw
		rd.Timestamp = rd.Timestamp.UTC()
		readings = append(readings, &rd)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return readings, nil
}

var _ Repository = (*PostgresRepository)(nil)
