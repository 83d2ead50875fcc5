package weathermasterx

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu       sync.RWMutex
	nextID   int64
	readings map[int64]*Reading
}

// NewInMemoryRepository creates a new in-memory reading repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		readings: make(map[int64]*Reading),
	}
}

// Create stores a new reading and sets its ID.
func (r *InMemoryRepository) Create(_ context.Context, rd *Reading) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	rd.ID = r.nextID

	cpy := *rd
	r.readings[rd.ID] = &cpy
	return nil
}

// GetByIDs batch-loads readings by primary key.
func (r *InMemoryRepository) GetByIDs(_ context.Context, ids []int64) (map[int64]*Reading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[int64]*Reading, len(ids))
	for _, id := range ids {
		if rd, ok := r.readings[id]; ok {
			cpy := *rd
			out[id] = &cpy
		}
	}
	return out, nil
}

// ListByCity returns the readings of a city ordered by recording time.
func (r *InMemoryRepository) ListByCity(_ context.Context, city string) ([]*Reading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Reading
	for _, rd := range r.readings {
		if strings.EqualFold(rd.CityName, city) {
			cpy := *rd
			out = append(out, &cpy)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].RecordedAt.Before(out[j].RecordedAt)
	})

	return out, nil
}

var _ Repository = (*InMemoryRepository)(nil)
