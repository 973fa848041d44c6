package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Dhanush032/Smart-Shopping/internal/domain"
)

// GetOrCreateCart returns a copy of the user's cart, creating an empty one on
// first access.
func (s *Store) GetOrCreateCart(_ context.Context, userID string) (*domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.getOrCreateCartLocked(userID)
	return copyCart(cart), nil
}

func (s *Store) getOrCreateCartLocked(userID string) *domain.Cart {
	cart, ok := s.carts[userID]
	if !ok {
		now := time.Now()
		cart = &domain.Cart{
			ID:        uuid.New().String(),
			UserID:    userID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.carts[userID] = cart
	}
	return cart
}

func (s *Store) AddItem(_ context.Context, userID string, item domain.CartItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.getOrCreateCartLocked(userID)
	cart.Items = append(cart.Items, item)
	cart.UpdatedAt = time.Now()
	return nil
}

func (s *Store) UpdateItemQuantity(_ context.Context, userID, itemID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[userID]
	if !ok {
		return domain.ErrNotFound
	}
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			cart.Items[i].Quantity = quantity
			cart.UpdatedAt = time.Now()
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *Store) RemoveItem(_ context.Context, userID, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[userID]
	if !ok {
		return domain.ErrNotFound
	}
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			cart.UpdatedAt = time.Now()
			return nil
		}
	}
	return domain.ErrNotFound
}

// ClearCart removes every line. The cart row itself survives; carts are only
// emptied, never deleted.
func (s *Store) ClearCart(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[userID]
	if !ok {
		return nil
	}
	cart.Items = nil
	cart.UpdatedAt = time.Now()
	return nil
}

func copyCart(cart *domain.Cart) *domain.Cart {
	cp := *cart
	cp.Items = make([]domain.CartItem, len(cart.Items))
	copy(cp.Items, cart.Items)
	return &cp
}
