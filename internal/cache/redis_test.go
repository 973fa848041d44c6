package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dhanush032/Smart-Shopping/internal/domain"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestCartCache_GetSuccess(t *testing.T) {
	client, mr := setupTestRedis(t)
	c := NewRedisCartCache(client)

	cart := &domain.Cart{
		UserID: "user123",
		Items: []domain.CartItem{
			{ID: "i1", ProductID: 1, Quantity: 2},
			{ID: "i2", ProductID: 2, Quantity: 3},
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	cartJSON, _ := json.Marshal(cart)
	mr.Set(cartKey("user123"), string(cartJSON))

	result, err := c.Get(context.Background(), "user123")
	require.NoError(t, err)
	assert.Equal(t, "user123", result.UserID)
	assert.Len(t, result.Items, 2)
	assert.Equal(t, int64(1), result.Items[0].ProductID)
}

func TestCartCache_GetMiss(t *testing.T) {
	client, _ := setupTestRedis(t)
	c := NewRedisCartCache(client)

	result, err := c.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, result)
}

func TestCartCache_GetInvalidJSON(t *testing.T) {
	client, mr := setupTestRedis(t)
	c := NewRedisCartCache(client)

	mr.Set(cartKey("user123"), "{not json")

	result, err := c.Get(context.Background(), "user123")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, result)
}

func TestCartCache_SetThenGet(t *testing.T) {
	client, mr := setupTestRedis(t)
	c := NewRedisCartCache(client)
	ctx := context.Background()

	cart := &domain.Cart{
		UserID: "u1",
		Items:  []domain.CartItem{{ID: "i1", ProductID: 7, Quantity: 4}},
	}

	require.NoError(t, c.Set(ctx, "u1", cart))
	assert.True(t, mr.Exists(cartKey("u1")))

	got, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, cart.Items, got.Items)
}

func TestCartCache_Delete(t *testing.T) {
	client, mr := setupTestRedis(t)
	c := NewRedisCartCache(client)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "u1", &domain.Cart{UserID: "u1"}))
	require.NoError(t, c.Delete(ctx, "u1"))
	assert.False(t, mr.Exists(cartKey("u1")))

	// deleting a missing key is not an error
	require.NoError(t, c.Delete(ctx, "u1"))
}

func TestProductCache_RoundTrip(t *testing.T) {
	client, _ := setupTestRedis(t)
	c := NewRedisProductCache(client)
	ctx := context.Background()

	p := &domain.Product{
		ID:            42,
		Name:          "Mechanical Keyboard",
		Price:         decimal.RequireFromString("129.99"),
		StockQuantity: 10,
		IsActive:      true,
	}

	require.NoError(t, c.Set(ctx, p))

	got, err := c.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.True(t, p.Price.Equal(got.Price))

	require.NoError(t, c.Delete(ctx, 42))
	_, err = c.Get(ctx, 42)
	assert.ErrorIs(t, err, ErrCacheMiss)
}
