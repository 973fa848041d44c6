package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Dhanush032/Smart-Shopping/internal/domain"
)

func NewRedisCartCache(client *redis.Client) *RedisCartCache {
	return &RedisCartCache{
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

type RedisCartCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r *RedisCartCache) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, cartKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return &cart, nil
}

func (r *RedisCartCache) Set(ctx context.Context, userID string, cart *domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	// Jitter spreads expirations so a burst of carts cached together does not
	// expire together.
	ttl := r.baseTTL + time.Duration(rand.Intn(5))*time.Minute
	if err := r.client.Set(ctx, cartKey(userID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCartCache) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cartKey(userID string) string {
	return fmt.Sprintf("cart:%s", userID)
}

func NewRedisProductCache(client *redis.Client) *RedisProductCache {
	return &RedisProductCache{
		client:  client,
		baseTTL: 5 * time.Minute,
	}
}

// RedisProductCache caches catalog reads. The TTL is short because stock
// counters on cached products go stale as other users buy.
type RedisProductCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r *RedisProductCache) Get(ctx context.Context, productID int64) (*domain.Product, error) {
	data, err := r.client.Get(ctx, productKey(productID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var p domain.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal product failed: %w", err)
	}
	return &p, nil
}

func (r *RedisProductCache) Set(ctx context.Context, product *domain.Product) error {
	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("marshal product failed: %w", err)
	}

	ttl := r.baseTTL + time.Duration(rand.Intn(60))*time.Second
	if err := r.client.Set(ctx, productKey(product.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisProductCache) Delete(ctx context.Context, productID int64) error {
	if err := r.client.Del(ctx, productKey(productID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func productKey(productID int64) string {
	return fmt.Sprintf("product:%d", productID)
}
