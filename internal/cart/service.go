// Package cart implements the per-user shopping cart: one active cart per
// user, created lazily, with every mutation pre-validated against the
// inventory ledger's advisory check.
package cart

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Dhanush032/Smart-Shopping/internal/cache"
	"github.com/Dhanush032/Smart-Shopping/internal/domain"
	"github.com/Dhanush032/Smart-Shopping/internal/inventory"
	"github.com/Dhanush032/Smart-Shopping/internal/keymutex"
)

// Repository is the storage contract for carts. GetOrCreateCart never fails
// with not-found: a missing cart is created empty on first access, and a cart
// is only ever emptied, never deleted.
type Repository interface {
	GetOrCreateCart(ctx context.Context, userID string) (*domain.Cart, error)
	AddItem(ctx context.Context, userID string, item domain.CartItem) error
	UpdateItemQuantity(ctx context.Context, userID, itemID string, quantity int) error
	RemoveItem(ctx context.Context, userID, itemID string) error
	ClearCart(ctx context.Context, userID string) error
}

// ProductSource resolves product references while editing a cart. Reads may
// be served from the catalog cache; they are advisory at this stage.
type ProductSource interface {
	ResolveProduct(ctx context.Context, productID int64) (*domain.Product, error)
}

type Service struct {
	repo     Repository
	products ProductSource
	ledger   inventory.Ledger
	cache    cache.CartCache
	locks    *keymutex.KeyedMutex
	logger   *zap.Logger
	sfg      singleflight.Group // prevents cache stampede on cart reads
}

func NewService(
	repo Repository,
	products ProductSource,
	ledger inventory.Ledger,
	cartCache cache.CartCache,
	locks *keymutex.KeyedMutex,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:     repo,
		products: products,
		ledger:   ledger,
		cache:    cartCache,
		locks:    locks,
		logger:   logger,
	}
}

// GetOrCreateCart returns the caller's cart, creating it on first access.
// Reads go through the cache; concurrent misses for the same user collapse
// into a single repository load.
func (s *Service) GetOrCreateCart(ctx context.Context, userID string) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		cached, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("cart cache get failed", zap.String("user_id", userID), zap.Error(err))
		}

		cart, err := s.repo.GetOrCreateCart(ctx, userID)
		if err != nil {
			return nil, err
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := s.cache.Set(ctx, userID, cart); err != nil {
				s.logger.Warn("cart cache set failed", zap.String("user_id", userID), zap.Error(err))
			}
		}()

		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Cart), nil
}

// AddItem puts quantity units of a product into the caller's cart. If the
// product is already in the cart the quantities are merged, and the merged
// amount must pass the advisory stock check; on failure the existing line is
// left unchanged.
func (s *Service) AddItem(ctx context.Context, userID string, productID int64, quantity int) (*domain.CartItem, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	product, err := s.products.ResolveProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, domain.ErrNotFound
	}

	cart, err := s.repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	newQuantity := quantity
	existing := cart.Item(productID)
	if existing != nil {
		newQuantity += existing.Quantity
	}

	ok, err := s.ledger.Check(ctx, productID, newQuantity)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NewInsufficientStock(productID, newQuantity, s.available(ctx, productID, product))
	}

	if existing != nil {
		if err := s.repo.UpdateItemQuantity(ctx, userID, existing.ID, newQuantity); err != nil {
			return nil, err
		}
		s.invalidateCache(userID)
		updated := *existing
		updated.Quantity = newQuantity
		return &updated, nil
	}

	item := domain.CartItem{
		ID:        newItemID(),
		ProductID: productID,
		Quantity:  quantity,
		AddedAt:   time.Now(),
	}
	if err := s.repo.AddItem(ctx, userID, item); err != nil {
		return nil, err
	}
	s.invalidateCache(userID)
	return &item, nil
}

// UpdateItem replaces the stored quantity of a line in the caller's cart.
func (s *Service) UpdateItem(ctx context.Context, userID, itemID string, quantity int) (*domain.CartItem, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	cart, err := s.repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	item := cart.ItemByID(itemID)
	if item == nil {
		return nil, domain.ErrNotFound
	}

	ok, err := s.ledger.Check(ctx, item.ProductID, quantity)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NewInsufficientStock(item.ProductID, quantity, s.available(ctx, item.ProductID, nil))
	}

	if err := s.repo.UpdateItemQuantity(ctx, userID, itemID, quantity); err != nil {
		return nil, err
	}
	s.invalidateCache(userID)

	updated := *item
	updated.Quantity = quantity
	return &updated, nil
}

// RemoveItem deletes a line from the caller's cart.
func (s *Service) RemoveItem(ctx context.Context, userID, itemID string) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	cart, err := s.repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return err
	}
	if cart.ItemByID(itemID) == nil {
		return domain.ErrNotFound
	}

	if err := s.repo.RemoveItem(ctx, userID, itemID); err != nil {
		return err
	}
	s.invalidateCache(userID)
	return nil
}

// ClearCart deletes every line in the caller's cart. Clearing an empty cart
// is a no-op.
func (s *Service) ClearCart(ctx context.Context, userID string) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	if err := s.repo.ClearCart(ctx, userID); err != nil {
		return err
	}
	s.invalidateCache(userID)
	return nil
}

// available reads the live count for a shortfall report. The rejection came
// from the ledger, so the figure in the error must too; the possibly cached
// product is only a fallback when the ledger read fails.
func (s *Service) available(ctx context.Context, productID int64, product *domain.Product) int {
	if n, err := s.ledger.Available(ctx, productID); err == nil {
		return n
	}
	if product != nil {
		return product.StockQuantity
	}
	return 0
}

func (s *Service) invalidateCache(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.Warn("cart cache invalidate failed", zap.String("user_id", userID), zap.Error(err))
	}
}
