// Package broker relays domain events to Kafka for downstream consumers.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/junaidrashid-git/treatnaturally-api/events"
	"github.com/segmentio/kafka-go"
)

// Envelope is the message value written for every event.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Key        string          `json:"key"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Relay struct {
	writer messageWriter
	log    *slog.Logger
	now    func() time.Time
}

// NewWriter returns an asynchronous writer keyed by aggregate, so events of one
// order or customer stay in one partition.
func NewWriter(brokers []string, topic string, log *slog.Logger) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		Async:                  true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Error("kafka delivery failed", "messages", len(messages), "error", err)
			}
		},
	}
}

func NewRelay(w messageWriter, log *slog.Logger) *Relay {
	return &Relay{writer: w, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (r *Relay) Relay(ctx context.Context, e events.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s: %w", e.Name(), err)
	}
	env := Envelope{
		ID:         uuid.NewString(),
		Type:       e.Name(),
		Key:        e.Key(),
		OccurredAt: r.now(),
		Payload:    payload,
	}
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(env.Key),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.Type)},
		},
	}
	if err := r.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("relay %s: %w", e.Name(), err)
	}
	return nil
}

// Register relays every bus event.
func (r *Relay) Register(bus *events.Bus) {
	bus.SubscribeAll(r.Relay)
}

func (r *Relay) Close() error {
	return r.writer.Close()
}
