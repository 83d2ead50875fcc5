package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/stationhub/weatheraggregator/internal/reading"
	"github.com/stationhub/weatheraggregator/internal/station"
)

// Disposition tells the subscriber what to do with a message.
type Disposition int

const (
	// Ack removes the message from the subscription.
	Ack Disposition = iota
	// Nack asks for redelivery.
	Nack
)

func (d Disposition) String() string {
	if d == Nack {
		return "nack"
	}
	return "ack"
}

// Message is the Pub/Sub envelope carrying one vendor payload.
type Message struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// MessageProcessor ingests decoded Pub/Sub messages. Messages that can never
// succeed are acked; storage failures are nacked for redelivery.
type MessageProcessor struct {
	ingester Ingester
	logger   zerolog.Logger
}

// NewMessageProcessor creates a MessageProcessor.
func NewMessageProcessor(ingester Ingester, logger zerolog.Logger) *MessageProcessor {
	return &MessageProcessor{ingester: ingester, logger: logger}
}

// Process ingests the payload carried by data.
func (p *MessageProcessor) Process(ctx context.Context, data []byte) Disposition {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		p.logger.Error().Err(err).Msg("discarding malformed message")
		return Ack
	}

	kind, err := reading.ParseKind(msg.Kind)
	if err != nil {
		p.logger.Warn().Err(err).Msg("discarding message for unknown station type")
		return Ack
	}

	logger := p.logger.With().Str("station_type", string(kind)).Logger()

	if len(msg.Payload) == 0 {
		logger.Warn().Msg("discarding message without payload")
		return Ack
	}

	rd, err := p.ingester.Ingest(ctx, kind, msg.Payload)
	if err != nil {
		var verr *station.ValidationError
		switch {
		case errors.As(err, &verr):
			logger.Warn().Interface("errors", verr.Errors).Msg("discarding invalid payload")
			return Ack
		case errors.Is(err, reading.ErrNoAdapter), errors.Is(err, station.ErrNoStore):
			logger.Error().Err(err).Msg("discarding payload for unconfigured station type")
			return Ack
		default:
			logger.Error().Err(err).Msg("ingestion failed")
			return Nack
		}
	}

	logger.Debug().Int64("reading_id", rd.ReadingID()).Msg("ingested message")
	return Ack
}

// PubSubHandler receives vendor payloads from a Pub/Sub subscription.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	processor        *MessageProcessor
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Ingester         Ingester
	Logger           zerolog.Logger

	// MaxOutstandingMessages bounds concurrent deliveries.
	// Default: 10
	MaxOutstandingMessages int
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	maxOutstanding := cfg.MaxOutstandingMessages
	if maxOutstanding <= 0 {
		maxOutstanding = 10
	}
	subscriber.ReceiveSettings.MaxOutstandingMessages = maxOutstanding
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		processor:        NewMessageProcessor(cfg.Ingester, cfg.Logger),
		logger:           cfg.Logger,
	}, nil
}

// Start receives messages until ctx is done.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		startTime := time.Now()

		d := h.processor.Process(ctx, msg.Data)
		if d == Nack {
			msg.Nack()
		} else {
			msg.Ack()
		}

		h.logger.Debug().
			Str("message_id", msg.ID).
			Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
			Stringer("disposition", d).
			Dur("duration", time.Since(startTime)).
			Msg("handled pubsub message")
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}
