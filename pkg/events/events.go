// Package events publishes domain events for consumers outside the service,
// such as push or e-mail delivery workers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dmehra2102/prod-golang-projects/neuroref/config"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
)

const NotificationCreated = "notification.created"

type Event struct {
	Name       string    `json:"name"`
	UserID     uint      `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events keyed by user id so one user's events stay
// ordered within a partition.
type KafkaPublisher struct {
	writer  messageWriter
	breaker *gobreaker.CircuitBreaker[struct{}]
}

func NewKafkaPublisher(cfg config.EventsConfig) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 5 * time.Second,
	}
	return newKafkaPublisher(w, cfg)
}

func newKafkaPublisher(w messageWriter, cfg config.EventsConfig) *KafkaPublisher {
	failures := uint32(cfg.BreakerFailures)
	if failures == 0 {
		failures = 5
	}
	return &KafkaPublisher{
		writer: w,
		breaker: gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name:    "kafka:" + cfg.Topic,
			Timeout: cfg.BreakerTimeout,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= failures
			},
		}),
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding event %s: %w", e.Name, err)
	}

	_, err = p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.writer.WriteMessages(ctx, kafka.Message{
			Key:   []byte(strconv.FormatUint(uint64(e.UserID), 10)),
			Value: payload,
			Headers: []kafka.Header{
				{Key: "event", Value: []byte(e.Name)},
			},
		})
	})
	if err != nil {
		return fmt.Errorf("publishing %s: %w", e.Name, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops events; used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }
