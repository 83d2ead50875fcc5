package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/stationhub/weatheraggregator/internal/resilience"
	"github.com/stationhub/weatheraggregator/internal/station"
	"github.com/stationhub/weatheraggregator/internal/telemetry"
)

const tracerName = "github.com/stationhub/weatheraggregator/internal/worker"

// Poller pulls vendor feeds on an interval and ingests every item.
type Poller struct {
	config   PollConfig
	ingester Ingester
	logger   zerolog.Logger
	tracer   trace.Tracer
	tracker  *resilience.Tracker
	clients  map[string]*resilience.Client

	metrics *PollMetrics
}

// PollMetrics tracks poller statistics across rounds.
type PollMetrics struct {
	mu sync.RWMutex

	TotalPolls int64
	Ingested   int64
	Rejected   int64
	Failed     int64
	FeedErrors int64

	LastPollAt       time.Time
	LastPollDuration time.Duration
}

// PollerConfig holds configuration for creating a Poller.
type PollerConfig struct {
	Config   PollConfig
	Ingester Ingester
	Logger   zerolog.Logger

	// Client is the template for each feed's HTTP client; Name is set per
	// feed. If nil, resilience.DefaultClientConfig is used.
	Client *resilience.ClientConfig

	// Tracker receives the outcome of every fetch. If nil, a private one
	// is created.
	Tracker *resilience.Tracker
}

// NewPoller creates a feed poller with one resilient client per feed.
func NewPoller(cfg PollerConfig) *Poller {
	config := cfg.Config.withDefaults()

	tracker := cfg.Tracker
	if tracker == nil {
		tracker = resilience.NewTracker()
	}

	clients := make(map[string]*resilience.Client, len(config.Feeds))
	feeds := make([]Feed, 0, len(config.Feeds))
	for _, feed := range config.Feeds {
		// A repeated feed would be polled twice per round through one breaker
		if _, ok := clients[feed.Name()]; ok {
			cfg.Logger.Warn().Str("feed", feed.Name()).Msg("duplicate feed ignored")
			continue
		}
		feeds = append(feeds, feed)

		clientCfg := resilience.DefaultClientConfig(feed.Name())
		if cfg.Client != nil {
			clientCfg = *cfg.Client
			clientCfg.Name = feed.Name()
			if clientCfg.CircuitBreaker != nil {
				cb := *clientCfg.CircuitBreaker
				cb.Name = feed.Name()
				clientCfg.CircuitBreaker = &cb
			}
		}

		client := resilience.NewClient(clientCfg)
		clients[feed.Name()] = client
		tracker.Register(feed.Name(), client)
	}
	config.Feeds = feeds

	return &Poller{
		config:   config,
		ingester: cfg.Ingester,
		logger:   cfg.Logger,
		tracer:   telemetry.Tracer(tracerName),
		tracker:  tracker,
		clients:  clients,
		metrics:  &PollMetrics{},
	}
}

// PollResult contains the result of one polling round.
type PollResult struct {
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	TotalFeeds int
	Ingested   int
	Rejected   int
	Failed     int
	FeedErrors int
	Errors     []PollError
}

// PollError describes a feed that could not be fetched.
type PollError struct {
	Feed  string
	Error string
}

// Start polls once, then every Interval until ctx is done.
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info().
		Int("feeds", len(p.config.Feeds)).
		Dur("interval", p.config.Interval).
		Msg("starting feed poller")

	p.Run(ctx)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("feed poller stopped")
			return
		case <-ticker.C:
			p.Run(ctx)
		}
	}
}

// Run polls every configured feed once.
func (p *Poller) Run(ctx context.Context) *PollResult {
	startTime := time.Now()
	result := &PollResult{
		StartTime:  startTime,
		TotalFeeds: len(p.config.Feeds),
	}

	feedsChan := make(chan Feed, len(p.config.Feeds))
	resultsChan := make(chan feedResult, len(p.config.Feeds))

	var wg sync.WaitGroup
	for i := 0; i < p.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.pollWorker(ctx, feedsChan, resultsChan)
		}()
	}

	for _, f := range p.config.Feeds {
		feedsChan <- f
	}
	close(feedsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for fr := range resultsChan {
		result.Ingested += fr.ingested
		result.Rejected += fr.rejected
		result.Failed += fr.failed
		if fr.err != nil {
			result.FeedErrors++
			result.Errors = append(result.Errors, PollError{Feed: fr.feed.Name(), Error: fr.err.Error()})
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	p.updateMetrics(result)

	p.logger.Info().
		Dur("duration", result.Duration).
		Int("feeds", result.TotalFeeds).
		Int("ingested", result.Ingested).
		Int("rejected", result.Rejected).
		Int("failed", result.Failed).
		Int("feed_errors", result.FeedErrors).
		Msg("feed poll completed")

	return result
}

type feedResult struct {
	feed     Feed
	ingested int
	rejected int
	failed   int
	err      error
}

func (p *Poller) pollWorker(ctx context.Context, feeds <-chan Feed, results chan<- feedResult) {
	for feed := range feeds {
		select {
		case <-ctx.Done():
			results <- feedResult{feed: feed, err: ctx.Err()}
		default:
			results <- p.pollFeed(ctx, feed)
		}
	}
}

func (p *Poller) pollFeed(ctx context.Context, feed Feed) feedResult {
	result := feedResult{feed: feed}

	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	ctx, span := p.tracer.Start(ctx, "worker.poll_feed",
		trace.WithAttributes(
			attribute.String("feed.name", feed.Name()),
			attribute.String("station.type", string(feed.Kind)),
		),
	)
	defer span.End()

	logger := p.logger.With().Str("feed", feed.Name()).Logger()

	var items []json.RawMessage
	err := p.clients[feed.Name()].GetJSON(ctx, feed.URL, &items)
	p.tracker.Record(feed.Name(), err)
	if err != nil {
		logger.Warn().Err(err).Msg("feed fetch failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		result.err = err
		return result
	}

	for i, item := range items {
		_, err := p.ingester.Ingest(ctx, feed.Kind, item)
		var verr *station.ValidationError
		switch {
		case err == nil:
			result.ingested++
		case errors.As(err, &verr):
			result.rejected++
			logger.Debug().
				Int("item", i).
				Interface("errors", verr.Errors).
				Msg("feed item rejected")
		default:
			result.failed++
			logger.Error().Err(err).Int("item", i).Msg("feed item not stored")
		}
	}

	span.SetAttributes(
		attribute.Int("feed.items", len(items)),
		attribute.Int("feed.ingested", result.ingested),
	)
	return result
}

func (p *Poller) updateMetrics(result *PollResult) {
	p.metrics.mu.Lock()
	defer p.metrics.mu.Unlock()

	p.metrics.TotalPolls++
	p.metrics.Ingested += int64(result.Ingested)
	p.metrics.Rejected += int64(result.Rejected)
	p.metrics.Failed += int64(result.Failed)
	p.metrics.FeedErrors += int64(result.FeedErrors)
	p.metrics.LastPollAt = result.EndTime
	p.metrics.LastPollDuration = result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (p *Poller) GetMetrics() PollMetrics {
	p.metrics.mu.RLock()
	defer p.metrics.mu.RUnlock()

	return PollMetrics{
		TotalPolls:       p.metrics.TotalPolls,
		Ingested:         p.metrics.Ingested,
		Rejected:         p.metrics.Rejected,
		Failed:           p.metrics.Failed,
		FeedErrors:       p.metrics.FeedErrors,
		LastPollAt:       p.metrics.LastPollAt,
		LastPollDuration: p.metrics.LastPollDuration,
	}
}

// FeedHealth reports the health of every feed's client.
func (p *Poller) FeedHealth() []resilience.FeedHealth {
	return p.tracker.Health()
}
