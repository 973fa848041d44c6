// Package order converts carts into immutable orders and governs the order
// status lifecycle afterwards.
package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Dhanush032/Smart-Shopping/internal/cache"
	"github.com/Dhanush032/Smart-Shopping/internal/domain"
	"github.com/Dhanush032/Smart-Shopping/internal/inventory"
	"github.com/Dhanush032/Smart-Shopping/internal/keymutex"
)

// Repository is the storage contract for orders. CreateOrder persists the
// order, its outbox event and the cart drain for the order's user in one
// atomic step. UpdateStatus persists the status change together with its
// outbox event as a compare-and-set on the from status: when a concurrent
// transition already moved the order, it returns ErrInvalidTransition and
// writes nothing.
type Repository interface {
	CreateOrder(ctx context.Context, o *domain.Order, eventPayload []byte) error
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, eventPayload []byte) (*domain.Order, error)
	ListOrders(ctx context.Context, userID string, all bool, offset, limit int) ([]*domain.Order, error)
}

// CartSource reads the cart that is about to be drained.
type CartSource interface {
	GetOrCreateCart(ctx context.Context, userID string) (*domain.Cart, error)
}

// ProductSource resolves the price/name snapshot for each cart line.
type ProductSource interface {
	GetProduct(ctx context.Context, productID int64) (*domain.Product, error)
}

type Service struct {
	repo     Repository
	carts    CartSource
	products ProductSource
	ledger   inventory.Ledger
	cache    cache.CartCache
	locks    *keymutex.KeyedMutex
	logger   *zap.Logger

	// releaseOnCancel opts into returning reserved stock when an order is
	// cancelled. The original system never released on cancellation, so the
	// default is off; see DESIGN.md.
	releaseOnCancel bool
}

func NewService(
	repo Repository,
	carts CartSource,
	products ProductSource,
	ledger inventory.Ledger,
	cartCache cache.CartCache,
	locks *keymutex.KeyedMutex,
	logger *zap.Logger,
	releaseOnCancel bool,
) *Service {
	return &Service{
		repo:            repo,
		carts:           carts,
		products:        products,
		ledger:          ledger,
		cache:           cartCache,
		locks:           locks,
		logger:          logger,
		releaseOnCancel: releaseOnCancel,
	}
}

// CreateOrder drains the user's cart into a new immutable order, reserving
// stock for every line. All-or-nothing: on any shortfall every reservation
// taken by this attempt is released, no order is created, and the cart is
// left untouched so the user can adjust quantities and retry.
func (s *Service) CreateOrder(ctx context.Context, userID string) (*domain.Order, error) {
	// Same exclusion scope as cart mutations: a checkout and a cart edit for
	// one user never interleave.
	unlock := s.locks.Lock(userID)
	defer unlock()

	cart, err := s.carts.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, domain.ErrEmptyCart
	}

	// Reserve in ascending product id order so two concurrent checkouts over
	// overlapping product sets cannot deadlock.
	items := make([]domain.CartItem, len(cart.Items))
	copy(items, cart.Items)
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })

	lines := make([]domain.OrderLine, 0, len(items))
	reserved := make([]domain.CartItem, 0, len(items))

	for i, item := range items {
		product, err := s.products.GetProduct(ctx, item.ProductID)
		if err != nil {
			s.releaseAll(ctx, reserved)
			return nil, fmt.Errorf("resolve product %d: %w", item.ProductID, err)
		}

		if err := s.ledger.Reserve(ctx, item.ProductID, item.Quantity); err != nil {
			s.releaseAll(ctx, reserved)

			var short *domain.InsufficientStockError
			if errors.As(err, &short) {
				// Probe the remaining lines so the caller learns about every
				// short product in one round trip.
				return nil, s.collectShortfalls(ctx, short, items[i+1:])
			}
			return nil, err
		}
		reserved = append(reserved, item)

		lines = append(lines, domain.OrderLine{
			ProductID:   product.ID,
			ProductName: product.Name,
			UnitPrice:   product.Price,
			Quantity:    item.Quantity,
		})
	}

	now := time.Now()
	o := &domain.Order{
		ID:        uuid.New(),
		UserID:    userID,
		Lines:     lines,
		Total:     orderTotal(lines),
		Status:    domain.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	payload, err := json.Marshal(orderEventPayload(o))
	if err != nil {
		s.releaseAll(ctx, reserved)
		return nil, fmt.Errorf("marshal order event: %w", err)
	}

	if err := s.repo.CreateOrder(ctx, o, payload); err != nil {
		s.releaseAll(ctx, reserved)
		return nil, err
	}

	s.invalidateCartCache(userID)

	s.logger.Info("order created",
		zap.String("order_id", o.ID.String()),
		zap.String("user_id", userID),
		zap.Int("lines", len(o.Lines)),
		zap.String("total", o.Total.String()))

	return o, nil
}

// collectShortfalls extends the first failure with advisory probes of the
// lines that were never attempted. Available counts come from the ledger,
// never from cached catalog reads.
func (s *Service) collectShortfalls(ctx context.Context, first *domain.InsufficientStockError, rest []domain.CartItem) error {
	all := &domain.InsufficientStockError{Lines: first.Lines}
	for _, item := range rest {
		available, err := s.ledger.Available(ctx, item.ProductID)
		if err != nil || available >= item.Quantity {
			continue
		}
		all.Lines = append(all.Lines, domain.StockShortfall{
			ProductID: item.ProductID,
			Requested: item.Quantity,
			Available: available,
		})
	}
	return all
}

// releaseAll is the compensating rollback for a partially reserved attempt.
func (s *Service) releaseAll(ctx context.Context, reserved []domain.CartItem) {
	for _, item := range reserved {
		if err := s.ledger.Release(ctx, item.ProductID, item.Quantity); err != nil {
			s.logger.Error("failed to release reservation",
				zap.Int64("product_id", item.ProductID),
				zap.Int("quantity", item.Quantity),
				zap.Error(err))
		}
	}
}

// GetOrder returns the order if the actor owns it or is an administrator.
// Orders the actor may not see are reported as not found, like the original
// user-scoped query.
func (s *Service) GetOrder(ctx context.Context, id uuid.UUID, actor domain.Actor) (*domain.Order, error) {
	o, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessOrder(o) {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

// UpdateOrderStatus moves an order along the lifecycle state machine. Only
// administrators may request transitions.
func (s *Service) UpdateOrderStatus(ctx context.Context, id uuid.UUID, next domain.OrderStatus, actor domain.Actor) (*domain.Order, error) {
	if !actor.IsAdmin {
		return nil, domain.ErrForbidden
	}

	o, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if o.Status.IsTerminal() || !domain.CanTransitionTo(o.Status, next) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, o.Status, next)
	}

	payload, err := json.Marshal(statusEventPayload(o, next))
	if err != nil {
		return nil, fmt.Errorf("marshal status event: %w", err)
	}

	// The compare-and-set on o.Status closes the window between the read
	// above and the write: a racing transition makes this fail instead of
	// overwriting, so a terminal order stays terminal and the cancellation
	// release below can run at most once per order.
	updated, err := s.repo.UpdateStatus(ctx, id, o.Status, next, payload)
	if err != nil {
		return nil, err
	}

	if next == domain.OrderStatusCancelled && s.releaseOnCancel {
		for _, line := range updated.Lines {
			if err := s.ledger.Release(ctx, line.ProductID, line.Quantity); err != nil {
				s.logger.Error("failed to release stock on cancellation",
					zap.String("order_id", id.String()),
					zap.Int64("product_id", line.ProductID),
					zap.Error(err))
			}
		}
	}

	s.logger.Info("order status updated",
		zap.String("order_id", id.String()),
		zap.String("from", o.Status.String()),
		zap.String("to", next.String()),
		zap.String("actor", actor.UserID))

	return updated, nil
}

// listPageSize bounds one repository read while iterating orders.
const listPageSize = 100

// ListOrders yields the actor's orders, newest first; administrators see all
// orders. The sequence is lazy and restartable: each range starts a fresh
// paged walk over the repository.
func (s *Service) ListOrders(ctx context.Context, actor domain.Actor) iter.Seq2[*domain.Order, error] {
	return func(yield func(*domain.Order, error) bool) {
		offset := 0
		for {
			page, err := s.repo.ListOrders(ctx, actor.UserID, actor.IsAdmin, offset, listPageSize)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, o := range page {
				if !yield(o, nil) {
					return
				}
			}
			if len(page) < listPageSize {
				return
			}
			offset += len(page)
		}
	}
}

func (s *Service) invalidateCartCache(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.Warn("cart cache invalidate failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func orderTotal(lines []domain.OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

func orderEventPayload(o *domain.Order) map[string]interface{} {
	return map[string]interface{}{
		"order_id":   o.ID,
		"user_id":    o.UserID,
		"lines":      o.Lines,
		"total":      o.Total,
		"status":     o.Status,
		"created_at": o.CreatedAt,
	}
}

func statusEventPayload(o *domain.Order, next domain.OrderStatus) map[string]interface{} {
	return map[string]interface{}{
		"order_id":   o.ID,
		"user_id":    o.UserID,
		"old_status": o.Status,
		"new_status": next,
		"changed_at": time.Now(),
	}
}
