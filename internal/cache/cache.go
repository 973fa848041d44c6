package cache

import (
	"context"
	"errors"

	"github.com/Dhanush032/Smart-Shopping/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

type CartCache interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Set(ctx context.Context, userID string, cart *domain.Cart) error
	Delete(ctx context.Context, userID string) error
}

type ProductCache interface {
	Get(ctx context.Context, productID int64) (*domain.Product, error)
	Set(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, productID int64) error
}
