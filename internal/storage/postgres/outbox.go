package postgres

import (
	"context"
	"fmt"

	"github.com/Dhanush032/Smart-Shopping/internal/events"
)

func (s *Store) UnpublishedEvents(ctx context.Context, limit int) ([]*events.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, aggregate_id, event_type, payload, created_at
		 FROM order_outbox
		 WHERE published_at IS NULL
		 ORDER BY id
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var evs []*events.Event
	for rows.Next() {
		var ev events.Event
		if err := rows.Scan(&ev.ID, &ev.AggregateID, &ev.EventType, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		evs = append(evs, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return evs, nil
}

func (s *Store) MarkEventPublished(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE order_outbox SET published_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark outbox event published: %w", err)
	}
	return nil
}
