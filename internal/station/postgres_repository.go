package station

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stationhub/weatheraggregator/internal/database"
	"github.com/stationhub/weatheraggregator/internal/reading"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL registry repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Create stores a new entry and sets its ID.
func (r *PostgresRepository) Create(ctx context.Context, e *Entry) error {
	query := `
		INSERT INTO stations (station_type, city, kind, row_id, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := database.Conn(ctx, r.pool).QueryRow(ctx, query,
		e.StationType,
		e.City,
		string(e.Kind),
		e.RowID,
		e.IsActive,
		e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert station entry: %w", err)
	}

	return nil
}

// ListByCity returns the entries of a city in insertion order.
func (r *PostgresRepository) ListByCity(ctx context.Context, city string) ([]*Entry, error) {
	query := `
		SELECT id, station_type, city, kind, row_id, is_active, created_at
		FROM stations
		WHERE lower(city) = lower($1)
		ORDER BY id
	`

	rows, err := database.Conn(ctx, r.pool).Query(ctx, query, city)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var (
			e    Entry
			kind string
		)
		err := rows.Scan(
			&e.ID,
			&e.StationType,
			&e.City,
			&kind,
			&e.RowID,
			&e.IsActive,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		e.Kind = reading.Kind(kind)
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// CountByKind returns the number of entries per kind.
func (r *PostgresRepository) CountByKind(ctx context.Context) (map[reading.Kind]int, error) {
	rows, err := database.Conn(ctx, r.pool).Query(ctx, `SELECT kind, count(*) FROM stations GROUP BY kind`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[reading.Kind]int)
	for rows.Next() {
		var (
			kind  string
			count int
		)
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		counts[reading.Kind(kind)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}

var _ Repository = (*PostgresRepository)(nil)
