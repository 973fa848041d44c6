package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dhanush032/Smart-Shopping/internal/catalog"
	"github.com/Dhanush032/Smart-Shopping/internal/domain"
	"github.com/Dhanush032/Smart-Shopping/internal/events"
)

func seedProduct(t *testing.T, s *Store, stock int) *domain.Product {
	t.Helper()
	p := &domain.Product{
		SKU:           "SKU-1",
		Name:          "Widget",
		Price:         decimal.RequireFromString("9.99"),
		StockQuantity: stock,
		IsActive:      true,
	}
	require.NoError(t, s.CreateProduct(context.Background(), p))
	return p
}

func TestReserveDecrementsStock(t *testing.T) {
	s := NewStore()
	p := seedProduct(t, s, 5)
	ctx := context.Background()

	require.NoError(t, s.Reserve(ctx, p.ID, 3))

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.StockQuantity)
}

func TestReserveInsufficientStockLeavesStockUnchanged(t *testing.T) {
	s := NewStore()
	p := seedProduct(t, s, 2)
	ctx := context.Background()

	err := s.Reserve(ctx, p.ID, 3)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	var ise *domain.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	require.Len(t, ise.Lines, 1)
	assert.Equal(t, p.ID, ise.Lines[0].ProductID)
	assert.Equal(t, 3, ise.Lines[0].Requested)
	assert.Equal(t, 2, ise.Lines[0].Available)

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.StockQuantity)
}

func TestReserveUnknownProduct(t *testing.T) {
	s := NewStore()
	assert.ErrorIs(t, s.Reserve(context.Background(), 99, 1), domain.ErrNotFound)
}

func TestReleaseRestoresStock(t *testing.T) {
	s := NewStore()
	p := seedProduct(t, s, 5)
	ctx := context.Background()

	require.NoError(t, s.Reserve(ctx, p.ID, 4))
	require.NoError(t, s.Release(ctx, p.ID, 4))

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.StockQuantity)
}

func TestCheck(t *testing.T) {
	s := NewStore()
	p := seedProduct(t, s, 3)
	ctx := context.Background()

	ok, err := s.Check(ctx, p.ID, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Check(ctx, p.ID, 4)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Check(ctx, 99, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAvailable(t *testing.T) {
	s := NewStore()
	p := seedProduct(t, s, 3)
	ctx := context.Background()

	n, err := s.Available(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, s.Reserve(ctx, p.ID, 2))
	n, err = s.Available(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.Available(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// Concurrent reservations must never oversell: with 50 units and 100
// single-unit reservations, exactly 50 succeed and stock ends at zero.
func TestReserveConcurrent(t *testing.T) {
	s := NewStore()
	p := seedProduct(t, s, 50)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Reserve(ctx, p.ID, 1); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, succeeded)
	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.StockQuantity)
}

func TestUpdateProductKeepsStock(t *testing.T) {
	s := NewStore()
	p := seedProduct(t, s, 7)
	ctx := context.Background()

	update := *p
	update.Name = "Renamed"
	update.StockQuantity = 999
	require.NoError(t, s.UpdateProduct(ctx, &update))

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, 7, got.StockQuantity)
}

func TestListProductsFilters(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	active := &domain.Product{SKU: "A", Name: "Active Widget", Price: decimal.RequireFromString("10.00"), StockQuantity: 5, IsActive: true, Featured: true}
	inactive := &domain.Product{SKU: "B", Name: "Retired Widget", Price: decimal.RequireFromString("20.00"), StockQuantity: 5}
	soldOut := &domain.Product{SKU: "C", Name: "Gone Widget", Price: decimal.RequireFromString("30.00"), IsActive: true}
	require.NoError(t, s.CreateProduct(ctx, active))
	require.NoError(t, s.CreateProduct(ctx, inactive))
	require.NoError(t, s.CreateProduct(ctx, soldOut))

	got, err := s.ListProducts(ctx, catalog.ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 2) // inactive hidden by default

	got, err = s.ListProducts(ctx, catalog.ProductFilter{IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, got, 3)

	inStock := true
	got, err = s.ListProducts(ctx, catalog.ProductFilter{InStock: &inStock})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, active.ID, got[0].ID)

	featured := true
	got, err = s.ListProducts(ctx, catalog.ProductFilter{Featured: &featured})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, active.ID, got[0].ID)

	maxPrice := decimal.RequireFromString("15.00")
	got, err = s.ListProducts(ctx, catalog.ProductFilter{MaxPrice: &maxPrice})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, active.ID, got[0].ID)

	got, err = s.ListProducts(ctx, catalog.ProductFilter{Search: "gone"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, soldOut.ID, got[0].ID)
}

func TestCartLifecycle(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	cart, err := s.GetOrCreateCart(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
	assert.NotEmpty(t, cart.ID)

	again, err := s.GetOrCreateCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, cart.ID, again.ID)

	item := domain.CartItem{ID: uuid.New().String(), ProductID: 1, Quantity: 2, AddedAt: time.Now()}
	require.NoError(t, s.AddItem(ctx, "u1", item))

	require.NoError(t, s.UpdateItemQuantity(ctx, "u1", item.ID, 5))
	cart, err = s.GetOrCreateCart(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)

	assert.ErrorIs(t, s.UpdateItemQuantity(ctx, "u1", "missing", 1), domain.ErrNotFound)
	assert.ErrorIs(t, s.RemoveItem(ctx, "u1", "missing"), domain.ErrNotFound)

	require.NoError(t, s.RemoveItem(ctx, "u1", item.ID))
	cart, err = s.GetOrCreateCart(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())

	// clearing an absent cart is a no-op
	assert.NoError(t, s.ClearCart(ctx, "nobody"))
}

func TestCreateOrderDrainsCartAndEmitsEvent(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.AddItem(ctx, "u1", domain.CartItem{ID: uuid.New().String(), ProductID: 1, Quantity: 2}))

	o := &domain.Order{
		ID:     uuid.New(),
		UserID: "u1",
		Lines:  []domain.OrderLine{{ProductID: 1, ProductName: "Widget", UnitPrice: decimal.RequireFromString("9.99"), Quantity: 2}},
		Total:  decimal.RequireFromString("19.98"),
		Status: domain.OrderStatusPending,
	}
	require.NoError(t, s.CreateOrder(ctx, o, []byte(`{"order_id":"x"}`)))

	cart, err := s.GetOrCreateCart(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())

	got, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
	assert.True(t, got.Total.Equal(o.Total))

	pending, err := s.UnpublishedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, events.TypeOrderCreated, pending[0].EventType)
	assert.Equal(t, o.ID.String(), pending[0].AggregateID)
}

func TestMarkEventPublished(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	o := &domain.Order{ID: uuid.New(), UserID: "u1", Status: domain.OrderStatusPending}
	require.NoError(t, s.CreateOrder(ctx, o, nil))

	pending, err := s.UnpublishedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, s.MarkEventPublished(ctx, pending[0].ID))

	pending, err = s.UnpublishedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	assert.ErrorIs(t, s.MarkEventPublished(ctx, 999), domain.ErrNotFound)
}

func TestUpdateStatusComparesCurrentStatus(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	o := &domain.Order{ID: uuid.New(), UserID: "u1", Status: domain.OrderStatusPending}
	require.NoError(t, s.CreateOrder(ctx, o, nil))

	updated, err := s.UpdateStatus(ctx, o.ID, domain.OrderStatusPending, domain.OrderStatusProcessing, []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessing, updated.Status)

	// a writer holding the old status loses and changes nothing
	_, err = s.UpdateStatus(ctx, o.ID, domain.OrderStatusPending, domain.OrderStatusCancelled, []byte(`{}`))
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	got, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessing, got.Status)

	_, err = s.UpdateStatus(ctx, uuid.New(), domain.OrderStatusPending, domain.OrderStatusProcessing, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListOrdersScopingAndPaging(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		o := &domain.Order{ID: uuid.New(), UserID: "u1", Status: domain.OrderStatusPending, CreatedAt: time.Now().Add(time.Duration(i) * time.Second)}
		require.NoError(t, s.CreateOrder(ctx, o, nil))
	}
	other := &domain.Order{ID: uuid.New(), UserID: "u2", Status: domain.OrderStatusPending, CreatedAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.CreateOrder(ctx, other, nil))

	mine, err := s.ListOrders(ctx, "u1", false, 0, 10)
	require.NoError(t, err)
	assert.Len(t, mine, 3)
	for _, o := range mine {
		assert.Equal(t, "u1", o.UserID)
	}
	// newest first
	assert.True(t, !mine[0].CreatedAt.Before(mine[1].CreatedAt))

	all, err := s.ListOrders(ctx, "", true, 0, 10)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, other.ID, all[0].ID)

	page, err := s.ListOrders(ctx, "u1", false, 2, 10)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	empty, err := s.ListOrders(ctx, "u1", false, 10, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
