package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Dhanush032/Smart-Shopping/internal/domain"
	"github.com/Dhanush032/Smart-Shopping/internal/events"
)

// CreateOrder writes the order row, its outbox event and the cart drain for
// the order's user in one transaction. Either everything lands or nothing
// does.
func (s *Store) CreateOrder(ctx context.Context, o *domain.Order, eventPayload []byte) error {
	linesJSON, err := json.Marshal(o.Lines)
	if err != nil {
		return fmt.Errorf("failed to marshal order lines: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create-order tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, user_id, total, status, lines, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		o.ID, o.UserID, o.Total, o.Status, linesJSON, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM cart_items
		 WHERE cart_id = (SELECT id FROM carts WHERE user_id = $1)`,
		o.UserID)
	if err != nil {
		return fmt.Errorf("drain cart: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO order_outbox (aggregate_id, event_type, payload, created_at)
		 VALUES ($1, $2, $3, NOW())`,
		o.ID.String(), events.TypeOrderCreated, eventPayload)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create-order tx: %w", err)
	}
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, total, status, lines, created_at, updated_at
		 FROM orders WHERE id = $1`, id)

	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}
	return o, nil
}

// UpdateStatus is a compare-and-set: the conditional UPDATE only fires while
// the order is still in the status the caller validated against, so two
// racing transitions cannot both commit.
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, eventPayload []byte) (*domain.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update-status tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`UPDATE orders SET status = $3, updated_at = NOW()
		 WHERE id = $1 AND status = $2
		 RETURNING id, user_id, total, status, lines, created_at, updated_at`,
		id, from, to)

	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		// Either the order does not exist or a concurrent transition won.
		var current domain.OrderStatus
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM orders WHERE id = $1`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("query status after failed update: %w", err)
		}
		return nil, fmt.Errorf("%w: order already moved to %s", domain.ErrInvalidTransition, current)
	}
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO order_outbox (aggregate_id, event_type, payload, created_at)
		 VALUES ($1, $2, $3, NOW())`,
		id.String(), events.TypeOrderStatusChanged, eventPayload)
	if err != nil {
		return nil, fmt.Errorf("insert outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update-status tx: %w", err)
	}
	return o, nil
}

func (s *Store) ListOrders(ctx context.Context, userID string, all bool, offset, limit int) ([]*domain.Order, error) {
	query := `SELECT id, user_id, total, status, lines, created_at, updated_at
	          FROM orders`
	args := []interface{}{}
	if !all {
		query += ` WHERE user_id = $1`
		args = append(args, userID)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC OFFSET $%d LIMIT $%d`, len(args)+1, len(args)+2)
	args = append(args, offset, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return orders, nil
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o         domain.Order
		linesJSON []byte
	)
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.Total,
		&o.Status,
		&linesJSON,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(linesJSON, &o.Lines); err != nil {
		return nil, fmt.Errorf("unmarshal order lines: %w", err)
	}
	return &o, nil
}
