package weathermasterx

import "context"

// Repository defines the interface for WeatherMaster X reading persistence.
type Repository interface {
	// Create stores a new reading and sets its ID.
	Create(ctx context.Context, r *Reading) error

	// GetByIDs batch-loads readings by primary key. Missing ids are omitted.
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*Reading, error)

	// ListByCity returns the readings of a city (case-insensitive) ordered
	// by recording time.
	ListByCity(ctx context.Context, city string) ([]*Reading, error)
}
