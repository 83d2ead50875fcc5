package station

import (
	"context"

	"github.com/stationhub/weatheraggregator/internal/reading"
)

// Repository defines the interface for registry persistence.
type Repository interface {
	// Create stores a new entry and sets its ID.
	Create(ctx context.Context, e *Entry) error

	// ListByCity returns the entries of a city (case-insensitive) in
	// insertion order.
	ListByCity(ctx context.Context, city string) ([]*Entry, error)

	// CountByKind returns the number of entries per kind.
	CountByKind(ctx context.Context) (map[reading.Kind]int, error)
}
