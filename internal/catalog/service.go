// Package catalog exposes product and category browsing plus the admin-gated
// catalog management operations.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Dhanush032/Smart-Shopping/internal/cache"
	"github.com/Dhanush032/Smart-Shopping/internal/domain"
)

// ProductFilter narrows a product listing. Nil pointer fields are "don't
// care". IncludeInactive is only honored for administrators.
type ProductFilter struct {
	CategoryID      *int64
	MinPrice        *decimal.Decimal
	MaxPrice        *decimal.Decimal
	InStock         *bool
	Featured        *bool
	StockAtMost     *int
	Search          string
	IncludeInactive bool
}

type ProductRepository interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	ListProducts(ctx context.Context, f ProductFilter) ([]*domain.Product, error)
	CreateProduct(ctx context.Context, p *domain.Product) error
	UpdateProduct(ctx context.Context, p *domain.Product) error
}

type CategoryRepository interface {
	ListCategories(ctx context.Context) ([]*domain.Category, error)
	CreateCategory(ctx context.Context, c *domain.Category) error
}

type Service struct {
	products   ProductRepository
	categories CategoryRepository
	cache      cache.ProductCache
	logger     *zap.Logger
	sfg        singleflight.Group
}

func NewService(products ProductRepository, categories CategoryRepository, productCache cache.ProductCache, logger *zap.Logger) *Service {
	return &Service{
		products:   products,
		categories: categories,
		cache:      productCache,
		logger:     logger,
	}
}

// GetProduct returns a single product. Inactive products are visible to
// administrators only.
func (s *Service) GetProduct(ctx context.Context, id int64, actor domain.Actor) (*domain.Product, error) {
	p, err := s.ResolveProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive && !actor.IsAdmin {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

// ResolveProduct is the cached, unrestricted read used inside the core, e.g.
// by cart validation. Concurrent misses for one product collapse into a
// single repository load.
func (s *Service) ResolveProduct(ctx context.Context, id int64) (*domain.Product, error) {
	v, err, _ := s.sfg.Do(fmt.Sprintf("product:%d", id), func() (interface{}, error) {
		cached, err := s.cache.Get(ctx, id)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("product cache get failed", zap.Int64("product_id", id), zap.Error(err))
		}

		p, err := s.products.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := s.cache.Set(ctx, p); err != nil {
				s.logger.Warn("product cache set failed", zap.Int64("product_id", id), zap.Error(err))
			}
		}()

		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Product), nil
}

// ListProducts lists products with filtering and search. Non-admin callers
// never see inactive products regardless of the filter.
func (s *Service) ListProducts(ctx context.Context, f ProductFilter, actor domain.Actor) ([]*domain.Product, error) {
	if !actor.IsAdmin {
		f.IncludeInactive = false
	}
	return s.products.ListProducts(ctx, f)
}

// FeaturedProducts returns active featured products.
func (s *Service) FeaturedProducts(ctx context.Context) ([]*domain.Product, error) {
	featured := true
	return s.products.ListProducts(ctx, ProductFilter{Featured: &featured})
}

// LowStock reports active products at or below the threshold. Admin only.
func (s *Service) LowStock(ctx context.Context, threshold int, actor domain.Actor) ([]*domain.Product, error) {
	if !actor.IsAdmin {
		return nil, domain.ErrForbidden
	}
	return s.products.ListProducts(ctx, ProductFilter{StockAtMost: &threshold})
}

// CreateProduct adds a product to the catalog. Admin only.
func (s *Service) CreateProduct(ctx context.Context, p *domain.Product, actor domain.Actor) (*domain.Product, error) {
	if !actor.IsAdmin {
		return nil, domain.ErrForbidden
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	if err := s.products.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProduct replaces catalog fields of a product. Admin only. Stock is
// not touched here; only the inventory ledger moves stock counters.
func (s *Service) UpdateProduct(ctx context.Context, p *domain.Product, actor domain.Actor) (*domain.Product, error) {
	if !actor.IsAdmin {
		return nil, domain.ErrForbidden
	}
	p.UpdatedAt = time.Now()
	if err := s.products.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}
	s.invalidateCache(p.ID)
	return p, nil
}

// ListCategories lists all active categories.
func (s *Service) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.categories.ListCategories(ctx)
}

// CreateCategory adds a category. Admin only.
func (s *Service) CreateCategory(ctx context.Context, c *domain.Category, actor domain.Actor) (*domain.Category, error) {
	if !actor.IsAdmin {
		return nil, domain.ErrForbidden
	}
	c.CreatedAt = time.Now()
	c.IsActive = true
	if err := s.categories.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) invalidateCache(productID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, productID); err != nil {
		s.logger.Warn("product cache invalidate failed", zap.Int64("product_id", productID), zap.Error(err))
	}
}
