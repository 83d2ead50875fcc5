// Package station keeps the registry that links each city to the vendor
// readings recorded there and builds the aggregated per-city view.
package station

import (
	"errors"
	"time"

	"github.com/stationhub/weatheraggregator/internal/reading"
)

// Service errors.
var (
	ErrNoStations = errors.New("no weather stations found for city")
	ErrNoStore    = errors.New("no store registered")
)

// Entry is a registry record pointing at one stored vendor reading.
// Entries are written once per ingestion and never changed.
type Entry struct {
	ID          int64
	StationType string
	City        string
	Kind        reading.Kind
	RowID       int64
	IsActive    bool
	CreatedAt   time.Time
}

// ValidationError represents validation errors.
type ValidationError struct {
	Kind   reading.Kind
	Errors []reading.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}
