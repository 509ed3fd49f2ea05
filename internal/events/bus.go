package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/noah-isme/toko-promo/internal/discount"
	"github.com/noah-isme/toko-promo/internal/obs"
)

// Producer is the subset of *kgo.Client the bus needs.
type Producer interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
}

// Envelope wraps every payload written to the broker.
type Envelope struct {
	SchemaVersion int             `json:"schemaVersion"`
	ID            string          `json:"id"`
	Topic         string          `json:"topic"`
	OccurredAt    time.Time       `json:"occurredAt"`
	Payload       json.RawMessage `json:"payload"`
}

// Bus publishes resolution events to Kafka. Produce is asynchronous: a
// broker outage is logged and counted but never fails the resolution.
type Bus struct {
	Producer Producer
	Topic    string
	Logger   zerolog.Logger
}

// DiscountResolved implements discount.EventSink.
func (b *Bus) DiscountResolved(ctx context.Context, ev discount.ResolvedEvent) {
	if b == nil || b.Producer == nil {
		return
	}
	topic := strings.TrimSpace(b.Topic)
	if topic == "" {
		topic = TopicDiscountResolved
	}
	record, err := encodeRecord(topic, ev)
	if err != nil {
		obs.CountDiscountEvent("encode_error")
		b.Logger.Error().Err(err).Str("event_id", ev.ID).Msg("encode discount event")
		return
	}
	// the request context ends with the response; keep its values only
	b.Producer.Produce(context.WithoutCancel(ctx), record, func(r *kgo.Record, err error) {
		if err != nil {
			obs.CountDiscountEvent("error")
			b.Logger.Warn().Err(err).Str("topic", r.Topic).Str("event_id", ev.ID).Msg("produce discount event")
			return
		}
		obs.CountDiscountEvent("ok")
	})
}

func encodeRecord(topic string, ev discount.ResolvedEvent) (*kgo.Record, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("events: encode payload: %w", err)
	}
	value, err := json.Marshal(Envelope{
		SchemaVersion: 1,
		ID:            ev.ID,
		Topic:         topic,
		OccurredAt:    ev.OccurredAt,
		Payload:       payload,
	})
	if err != nil {
		return nil, fmt.Errorf("events: encode envelope: %w", err)
	}
	return &kgo.Record{
		Topic:     topic,
		Key:       []byte(strconv.FormatInt(ev.UserID, 10)),
		Value:     value,
		Timestamp: ev.OccurredAt,
		Headers:   []kgo.RecordHeader{{Key: "event-id", Value: []byte(ev.ID)}},
	}, nil
}

// LogSink writes resolution events to the structured log. Used when no
// broker is configured.
type LogSink struct {
	Logger zerolog.Logger
}

// DiscountResolved implements discount.EventSink.
func (s LogSink) DiscountResolved(_ context.Context, ev discount.ResolvedEvent) {
	s.Logger.Info().
		Str("event_id", ev.ID).
		Int64("user_id", ev.UserID).
		Int64("order_total", ev.OrderTotal).
		Int("candidates", ev.Candidates).
		Int("solutions", ev.Solutions).
		Int64("best_discount", ev.BestDiscount).
		Bool("deadline_exceeded", ev.DeadlineExceeded).
		Msg("discount_resolved")
}
