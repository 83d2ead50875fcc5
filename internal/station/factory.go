package station

import (
	"fmt"

	"github.com/stationhub/weatheraggregator/internal/reading"
)

// Factory resolves the adapter for a store kind. The mapping is fixed at
// construction.
type Factory struct {
	adapters map[reading.Kind]reading.Adapter
}

// NewFactory creates a factory over the given adapters. A later adapter for
// the same kind replaces an earlier one.
func NewFactory(adapters ...reading.Adapter) *Factory {
	f := &Factory{adapters: make(map[reading.Kind]reading.Adapter, len(adapters))}
	for _, a := range adapters {
		f.adapters[a.Kind()] = a
	}
	return f
}

// Adapter returns the adapter for kind or reading.ErrNoAdapter.
func (f *Factory) Adapter(kind reading.Kind) (reading.Adapter, error) {
	a, ok := f.adapters[kind]
	if !ok {
		return nil, fmt.Errorf("%w for %q", reading.ErrNoAdapter, kind)
	}
	return a, nil
}
