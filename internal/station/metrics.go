package station

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/stationhub/weatheraggregator/internal/reading"
)

const meterName = "github.com/stationhub/weatheraggregator/internal/station"

// Metrics holds the ingestion and aggregation instruments. A nil *Metrics
// records nothing.
type Metrics struct {
	ingestTotal       metric.Int64Counter
	rejectTotal       metric.Int64Counter
	skipTotal         metric.Int64Counter
	aggregateDuration metric.Float64Histogram
}

// NewMetrics creates the station metrics instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	ingestTotal, err := meter.Int64Counter(
		"station.ingest.total",
		metric.WithDescription("Number of ingestion attempts"),
		metric.WithUnit("{reading}"),
	)
	if err != nil {
		return nil, err
	}

	rejectTotal, err := meter.Int64Counter(
		"station.ingest.rejected",
		metric.WithDescription("Number of payloads rejected by validation"),
		metric.WithUnit("{reading}"),
	)
	if err != nil {
		return nil, err
	}

	skipTotal, err := meter.Int64Counter(
		"station.aggregate.skipped",
		metric.WithDescription("Number of registry entries skipped during aggregation"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	aggregateDuration, err := meter.Float64Histogram(
		"station.aggregate.duration",
		metric.WithDescription("Duration of city aggregation queries in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		ingestTotal:       ingestTotal,
		rejectTotal:       rejectTotal,
		skipTotal:         skipTotal,
		aggregateDuration: aggregateDuration,
	}, nil
}

// RecordIngest records the outcome of one ingestion.
func (m *Metrics) RecordIngest(kind reading.Kind, err error) {
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("station.kind", string(kind)),
	}
	if err != nil {
		attrs = append(attrs, attribute.Bool("error", true))
	}

	// Background context so a cancelled request still counts.
	ctx := context.TODO()
	m.ingestTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordReject records a payload that failed validation.
func (m *Metrics) RecordReject(kind reading.Kind) {
	if m == nil {
		return
	}
	m.rejectTotal.Add(context.TODO(), 1, metric.WithAttributes(
		attribute.String("station.kind", string(kind)),
	))
}

// RecordSkip records a registry entry left out of an aggregate.
func (m *Metrics) RecordSkip(kind reading.Kind, reason string) {
	if m == nil {
		return
	}
	m.skipTotal.Add(context.TODO(), 1, metric.WithAttributes(
		attribute.String("station.kind", string(kind)),
		attribute.String("reason", reason),
	))
}

// RecordAggregate records the duration of an aggregation query.
func (m *Metrics) RecordAggregate(duration time.Duration, raw bool, err error) {
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.Bool("raw", raw),
	}
	if err != nil {
		attrs = append(attrs, attribute.Bool("error", true))
	}
	m.aggregateDuration.Record(context.TODO(), duration.Seconds(), metric.WithAttributes(attrs...))
}
