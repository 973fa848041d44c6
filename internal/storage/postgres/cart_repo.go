package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Dhanush032/Smart-Shopping/internal/domain"
)

// GetOrCreateCart loads the user's cart, inserting an empty one on first
// access. The insert races safely: ON CONFLICT leaves a concurrently created
// row in place and the follow-up select picks it up.
func (s *Store) GetOrCreateCart(ctx context.Context, userID string) (*domain.Cart, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO carts (id, user_id, created_at, updated_at)
		 VALUES ($1, $2, NOW(), NOW())
		 ON CONFLICT (user_id) DO NOTHING`,
		uuid.New().String(), userID)
	if err != nil {
		return nil, fmt.Errorf("upsert cart: %w", err)
	}

	var cart domain.Cart
	err = s.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1`,
		userID).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, product_id, quantity, added_at
		 FROM cart_items WHERE cart_id = $1 ORDER BY added_at`,
		cart.ID)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.Quantity, &item.AddedAt); err != nil {
			return nil, fmt.Errorf("scan cart item row: %w", err)
		}
		cart.Items = append(cart.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return &cart, nil
}

func (s *Store) AddItem(ctx context.Context, userID string, item domain.CartItem) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO cart_items (id, cart_id, product_id, quantity, added_at)
		 SELECT $1, c.id, $2, $3, $4 FROM carts c WHERE c.user_id = $5`,
		item.ID, item.ProductID, item.Quantity, item.AddedAt, userID)
	if err != nil {
		return fmt.Errorf("insert cart item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert cart item rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return s.touchCart(ctx, userID)
}

func (s *Store) UpdateItemQuantity(ctx context.Context, userID, itemID string, quantity int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE cart_items SET quantity = $3
		 WHERE id = $2 AND cart_id = (SELECT id FROM carts WHERE user_id = $1)`,
		userID, itemID, quantity)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update cart item rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return s.touchCart(ctx, userID)
}

func (s *Store) RemoveItem(ctx context.Context, userID, itemID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM cart_items
		 WHERE id = $2 AND cart_id = (SELECT id FROM carts WHERE user_id = $1)`,
		userID, itemID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete cart item rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return s.touchCart(ctx, userID)
}

func (s *Store) ClearCart(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM cart_items
		 WHERE cart_id = (SELECT id FROM carts WHERE user_id = $1)`,
		userID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return s.touchCart(ctx, userID)
}

func (s *Store) touchCart(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE carts SET updated_at = $2 WHERE user_id = $1`,
		userID, time.Now())
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("touch cart: %w", err)
	}
	return nil
}
