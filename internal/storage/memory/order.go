package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Dhanush032/Smart-Shopping/internal/domain"
	"github.com/Dhanush032/Smart-Shopping/internal/events"
)

// CreateOrder persists the order, drains the user's cart and appends the
// order.created outbox event in one atomic step under the store mutex,
// mirroring the single transaction of the postgres backend.
func (s *Store) CreateOrder(_ context.Context, o *domain.Order, eventPayload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := copyOrder(o)
	s.orders[o.ID] = cp

	if cart, ok := s.carts[o.UserID]; ok {
		cart.Items = nil
		cart.UpdatedAt = time.Now()
	}

	s.appendEvent(o.ID.String(), events.TypeOrderCreated, eventPayload)
	return nil
}

func (s *Store) GetOrder(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyOrder(o), nil
}

// UpdateStatus is a compare-and-set: the write only lands while the order is
// still in the status the caller validated against, so two racing transitions
// cannot both commit.
func (s *Store) UpdateStatus(_ context.Context, id uuid.UUID, from, to domain.OrderStatus, eventPayload []byte) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if o.Status != from {
		return nil, fmt.Errorf("%w: order already moved to %s", domain.ErrInvalidTransition, o.Status)
	}
	o.Status = to
	o.UpdatedAt = time.Now()

	s.appendEvent(id.String(), events.TypeOrderStatusChanged, eventPayload)
	return copyOrder(o), nil
}

func (s *Store) ListOrders(_ context.Context, userID string, all bool, offset, limit int) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Order
	for _, o := range s.orders {
		if all || o.UserID == userID {
			result = append(result, copyOrder(o))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })

	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func copyOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Lines = make([]domain.OrderLine, len(o.Lines))
	copy(cp.Lines, o.Lines)
	return &cp
}
