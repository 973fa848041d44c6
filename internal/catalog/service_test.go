package catalog

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Dhanush032/Smart-Shopping/internal/cache"
	"github.com/Dhanush032/Smart-Shopping/internal/domain"
)

var (
	user  = domain.Actor{UserID: "u1"}
	admin = domain.Actor{UserID: "admin", IsAdmin: true}
)

// fakeRepo is an in-memory ProductRepository/CategoryRepository recording
// how often products are loaded.
type fakeRepo struct {
	products   map[int64]*domain.Product
	categories []*domain.Category
	loads      atomic.Int64
	lastFilter ProductFilter
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{products: make(map[int64]*domain.Product)}
}

func (r *fakeRepo) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	r.loads.Add(1)
	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeRepo) ListProducts(_ context.Context, f ProductFilter) ([]*domain.Product, error) {
	r.lastFilter = f
	var result []*domain.Product
	for _, p := range r.products {
		if !p.IsActive && !f.IncludeInactive {
			continue
		}
		cp := *p
		result = append(result, &cp)
	}
	return result, nil
}

func (r *fakeRepo) CreateProduct(_ context.Context, p *domain.Product) error {
	p.ID = int64(len(r.products) + 1)
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *fakeRepo) UpdateProduct(_ context.Context, p *domain.Product) error {
	if _, ok := r.products[p.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *fakeRepo) ListCategories(_ context.Context) ([]*domain.Category, error) {
	return r.categories, nil
}

func (r *fakeRepo) CreateCategory(_ context.Context, c *domain.Category) error {
	c.ID = int64(len(r.categories) + 1)
	cp := *c
	r.categories = append(r.categories, &cp)
	return nil
}

type noopProductCache struct{}

func (noopProductCache) Get(context.Context, int64) (*domain.Product, error) {
	return nil, cache.ErrCacheMiss
}
func (noopProductCache) Set(context.Context, *domain.Product) error { return nil }
func (noopProductCache) Delete(context.Context, int64) error        { return nil }

// stubProductCache always hits.
type stubProductCache struct {
	noopProductCache
	product *domain.Product
}

func (c stubProductCache) Get(context.Context, int64) (*domain.Product, error) {
	return c.product, nil
}

func newTestService(repo *fakeRepo) *Service {
	return NewService(repo, repo, noopProductCache{}, zap.NewNop())
}

func seed(repo *fakeRepo, name string, active bool) *domain.Product {
	p := &domain.Product{
		Name:          name,
		Price:         decimal.RequireFromString("9.99"),
		StockQuantity: 10,
		IsActive:      active,
	}
	_ = repo.CreateProduct(context.Background(), p)
	return p
}

func TestGetProductHidesInactiveFromUsers(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	active := seed(repo, "Active", true)
	inactive := seed(repo, "Retired", false)

	got, err := svc.GetProduct(ctx, active.ID, user)
	require.NoError(t, err)
	assert.Equal(t, "Active", got.Name)

	_, err = svc.GetProduct(ctx, inactive.ID, user)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err = svc.GetProduct(ctx, inactive.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, "Retired", got.Name)

	_, err = svc.GetProduct(ctx, 99, user)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolveProductPrefersCache(t *testing.T) {
	repo := newFakeRepo()
	cached := &domain.Product{ID: 1, Name: "From Cache", IsActive: true}
	svc := NewService(repo, repo, stubProductCache{product: cached}, zap.NewNop())

	got, err := svc.ResolveProduct(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "From Cache", got.Name)
	assert.Equal(t, int64(0), repo.loads.Load())
}

func TestListProductsStripsInactiveFlagForUsers(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	seed(repo, "Active", true)
	seed(repo, "Retired", false)

	got, err := svc.ListProducts(ctx, ProductFilter{IncludeInactive: true}, user)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.False(t, repo.lastFilter.IncludeInactive)

	got, err = svc.ListProducts(ctx, ProductFilter{IncludeInactive: true}, admin)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestFeaturedProductsFilter(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	_, err := svc.FeaturedProducts(context.Background())
	require.NoError(t, err)
	require.NotNil(t, repo.lastFilter.Featured)
	assert.True(t, *repo.lastFilter.Featured)
}

func TestLowStockIsAdminOnly(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.LowStock(ctx, 10, user)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.LowStock(ctx, 10, admin)
	require.NoError(t, err)
	require.NotNil(t, repo.lastFilter.StockAtMost)
	assert.Equal(t, 10, *repo.lastFilter.StockAtMost)
}

func TestCatalogWritesAreAdminGated(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	p := &domain.Product{Name: "New", Price: decimal.RequireFromString("1.00"), IsActive: true}
	_, err := svc.CreateProduct(ctx, p, user)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	created, err := svc.CreateProduct(ctx, p, admin)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	created.Name = "Renamed"
	_, err = svc.UpdateProduct(ctx, created, user)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	updated, err := svc.UpdateProduct(ctx, created, admin)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)

	_, err = svc.CreateCategory(ctx, &domain.Category{Name: "Books"}, user)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	cat, err := svc.CreateCategory(ctx, &domain.Category{Name: "Books"}, admin)
	require.NoError(t, err)
	assert.True(t, cat.IsActive)

	cats, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 1)
}
