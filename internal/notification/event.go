package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ms-checkout/internal/models"

	"github.com/google/uuid"
)

// Event asks the dispatcher to tell a customer about an order.
type Event struct {
	ID             string    `json:"id"`
	OrderReference string    `json:"order_reference"`
	Trigger        string    `json:"trigger"`
	Channels       []string  `json:"channels"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// NewEvent builds an event for both channels.
func NewEvent(ref, trigger string) Event {
	return Event{
		ID:             uuid.NewString(),
		OrderReference: ref,
		Trigger:        trigger,
		Channels:       []string{models.ChannelWhatsApp, models.ChannelEmail},
		OccurredAt:     time.Now().UTC(),
	}
}

// MessagePublisher is satisfied by the kafka producer.
type MessagePublisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
}

// Publisher hands events to the notification topic.
type Publisher struct {
	producer MessagePublisher
	topic    string
}

func NewPublisher(producer MessagePublisher, topic string) *Publisher {
	return &Publisher{producer: producer, topic: topic}
}

func (p *Publisher) Notify(ctx context.Context, ev Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode notification %s: %w", ev.ID, err)
	}
	return p.producer.Publish(ctx, p.topic, ev.OrderReference, value)
}

// Decode parses a message produced by Publisher.
func Decode(value []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(value, &ev); err != nil {
		return ev, fmt.Errorf("decode notification: %w", err)
	}
	if ev.OrderReference == "" || ev.Trigger == "" {
		return ev, fmt.Errorf("notification %s missing order reference or trigger", ev.ID)
	}
	return ev, nil
}
