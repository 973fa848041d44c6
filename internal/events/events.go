// Package events publishes order lifecycle events through a transactional
// outbox: state changes append an event in the same atomic step as the change
// itself, and a background poller drains unpublished events to Kafka.
package events

import (
	"context"
	"time"
)

const (
	TypeOrderCreated       = "order.created"
	TypeOrderStatusChanged = "order.status_changed"
)

// Event is one outbox row, written atomically with the order change that
// produced it.
type Event struct {
	ID          int64
	AggregateID string // order id, used as the Kafka message key for ordering
	EventType   string
	Payload     []byte // already JSON
	CreatedAt   time.Time
}

// Source is the outbox side of the storage layer.
type Source interface {
	UnpublishedEvents(ctx context.Context, limit int) ([]*Event, error)
	MarkEventPublished(ctx context.Context, id int64) error
}
