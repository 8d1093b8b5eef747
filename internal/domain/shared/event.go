package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DomainEvent is a fact raised by an aggregate
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
}

// EventHeader is embedded by concrete events and satisfies DomainEvent
type EventHeader struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	AggID     uuid.UUID `json:"aggregate_id"`
	AggType   string    `json:"aggregate_type"`
}

// NewEventHeader stamps a new event of eventType raised by the given aggregate
func NewEventHeader(eventType, aggType string, aggID uuid.UUID) EventHeader {
	return EventHeader{ID: uuid.New(), Type: eventType, Timestamp: time.Now(), AggID: aggID, AggType: aggType}
}

func (h EventHeader) EventID() uuid.UUID     { return h.ID }
func (h EventHeader) EventType() string      { return h.Type }
func (h EventHeader) OccurredAt() time.Time  { return h.Timestamp }
func (h EventHeader) AggregateID() uuid.UUID { return h.AggID }
func (h EventHeader) AggregateType() string  { return h.AggType }

// EventHandler consumes events. An empty EventTypes subscribes to everything.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	EventTypes() []string
}

// EventPublisher is what the application layer depends on
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventBus delivers published events to subscribed handlers between Start and Stop
type EventBus interface {
	EventPublisher
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
