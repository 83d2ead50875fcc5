package station

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/stationhub/weatheraggregator/internal/reading"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu      sync.RWMutex
	nextID  int64
	entries map[int64]*Entry
}

// NewInMemoryRepository creates a new in-memory registry repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		entries: make(map[int64]*Entry),
	}
}

// Create stores a new entry and sets its ID.
func (r *InMemoryRepository) Create(_ context.Context, e *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	e.ID = r.nextID

	cpy := *e
	r.entries[e.ID] = &cpy
	return nil
}

// ListByCity returns the entries of a city in insertion order.
func (r *InMemoryRepository) ListByCity(_ context.Context, city string) ([]*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Entry
	for _, e := range r.entries {
		if strings.EqualFold(e.City, city) {
			cpy := *e
			out = append(out, &cpy)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})

	return out, nil
}

// CountByKind returns the number of entries per kind.
func (r *InMemoryRepository) CountByKind(_ context.Context) (map[reading.Kind]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[reading.Kind]int)
	for _, e := range r.entries {
		counts[e.Kind]++
	}
	return counts, nil
}

var _ Repository = (*InMemoryRepository)(nil)
