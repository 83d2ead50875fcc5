package resilience

import (
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// FeedHealth is a snapshot of one tracked client.
type FeedHealth struct {
	Name          string
	CircuitState  gobreaker.State
	Counts        gobreaker.Counts
	LastSuccessAt *time.Time
	LastFailureAt *time.Time
	LastError     string
}

// IsHealthy returns true while the breaker is closed.
func (h FeedHealth) IsHealthy() bool {
	return h.CircuitState == gobreaker.StateClosed
}

// Tracker records the outcome of every fetch per client.
type Tracker struct {
	mu      sync.RWMutex
	clients map[string]*trackedClient
}

type trackedClient struct {
	client        *Client
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{clients: make(map[string]*trackedClient)}
}

// Register adds a client under name, replacing any earlier one.
func (t *Tracker) Register(name string, client *Client) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clients[name] = &trackedClient{client: client}
}

// Record stores the outcome of a fetch. Unknown names are ignored.
func (t *Tracker) Record(name string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.clients[name]
	if !ok {
		return
	}

	now := time.Now()
	if err == nil {
		c.lastSuccessAt = &now
		return
	}
	c.lastFailureAt = &now
	c.lastError = err.Error()
}

// Health returns a snapshot of every registered client, sorted by name.
func (t *Tracker) Health() []FeedHealth {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]FeedHealth, 0, len(t.clients))
	for name, c := range t.clients {
		out = append(out, FeedHealth{
			Name:          name,
			CircuitState:  c.client.CircuitBreakerState(),
			Counts:        c.client.CircuitBreakerCounts(),
			LastSuccessAt: c.lastSuccessAt,
			LastFailureAt: c.lastFailureAt,
			LastError:     c.lastError,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
