package bulgarianmeteo

import (
	"context"
	"fmt"

	"github.com/stationhub/weatheraggregator/internal/reading"
)

// Service provides Bulgarian Meteo Pro reading operations. It is also the
// reading.Store the station registry resolves this kind through.
type Service struct {
	repo Repository
}

// NewService creates a new Bulgarian Meteo Pro service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Kind implements reading.Store.
func (s *Service) Kind() reading.Kind {
	return reading.KindBulgarianMeteoPro
}

// Save implements reading.Store.
func (s *Service) Save(ctx context.Context, r reading.Reading) error {
	rd, ok := r.(*Reading)
	if !ok {
		return fmt.Errorf("%w: got %s", reading.ErrKindMismatch, r.Kind())
	}
	return s.repo.Create(ctx, rd)
}

// Load implements reading.Store.
func (s *Service) Load(ctx context.Context, ids []int64) (map[int64]reading.Reading, error) {
	rows, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load bulgarian meteo pro readings: %w", err)
	}

	out := make(map[int64]reading.Reading, len(rows))
	for id, rd := range rows {
		out[id] = rd
	}
	return out, nil
}

// ListByCity returns the readings recorded for city, oldest first.
func (s *Service) ListByCity(ctx context.Context, city string) ([]*Reading, error) {
	readings, err := s.repo.ListByCity(ctx, city)
	if err != nil {
		return nil, fmt.Errorf("list bulgarian meteo pro readings: %w", err)
	}
	if readings == nil {
		readings = []*Reading{}
	}
	return readings, nil
}

var _ reading.Store = (*Service)(nil)
