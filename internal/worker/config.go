// Package worker ingests vendor readings in the background: a Pub/Sub
// consumer and a poller for vendor feeds, both feeding the station service.
package worker

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/stationhub/weatheraggregator/internal/reading"
)

// Ingester stores one vendor payload. Satisfied by *station.Service.
type Ingester interface {
	Ingest(ctx context.Context, kind reading.Kind, payload []byte) (reading.Reading, error)
}

// Feed is a vendor endpoint returning a JSON array of payloads of one kind.
type Feed struct {
	Kind reading.Kind
	URL  string
}

// Name identifies the feed in logs and health reports, and keys its client
// and circuit breaker. It is the kind plus the URL without its scheme, so
// two feeds share a name only when they poll the same resource.
func (f Feed) Name() string {
	u, err := url.Parse(f.URL)
	if err != nil || u.Host == "" {
		return string(f.Kind) + "@" + f.URL
	}

	name := string(f.Kind) + "@" + u.Host + strings.TrimSuffix(u.EscapedPath(), "/")
	if u.RawQuery != "" {
		name += "?" + u.RawQuery
	}
	return name
}

// ParseFeeds parses a "kind=url,kind=url" list. Blank items are ignored and
// a feed listed twice is an error.
func ParseFeeds(s string) ([]Feed, error) {
	var feeds []Feed
	seen := make(map[string]bool)
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		name, rawURL, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("feed %q: expected kind=url", item)
		}

		kind, err := reading.ParseKind(strings.TrimSpace(name))
		if err != nil {
			return nil, fmt.Errorf("feed %q: %w", item, err)
		}

		rawURL = strings.TrimSpace(rawURL)
		u, err := url.Parse(rawURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("feed %q: invalid url", item)
		}

		feed := Feed{Kind: kind, URL: rawURL}
		if seen[feed.Name()] {
			return nil, fmt.Errorf("feed %q: listed more than once", item)
		}
		seen[feed.Name()] = true

		feeds = append(feeds, feed)
	}
	return feeds, nil
}

// PollConfig holds configuration for the feed poller.
type PollConfig struct {
	// Feeds are the vendor endpoints to poll.
	Feeds []Feed

	// Interval is the time between polling rounds.
	// Default: 5 minutes
	Interval time.Duration

	// Concurrency is the number of feeds polled at once.
	// Default: 3
	Concurrency int

	// Timeout bounds one feed: the fetch and the ingestion of its items.
	// Default: 30 seconds
	Timeout time.Duration
}

// DefaultPollConfig returns the default poller configuration without feeds.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		Interval:    5 * time.Minute,
		Concurrency: 3,
		Timeout:     30 * time.Second,
	}
}

func (c PollConfig) withDefaults() PollConfig {
	def := DefaultPollConfig()
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	return c
}
