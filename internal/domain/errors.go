package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidQuantity   = errors.New("quantity must be greater than 0")
	ErrNotFound          = errors.New("not found")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrForbidden         = errors.New("admin access required")
	ErrInvalidTransition = errors.New("illegal order status transition")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// StockShortfall describes one product that could not be reserved.
type StockShortfall struct {
	ProductID int64 `json:"product_id"`
	Requested int   `json:"requested"`
	Available int   `json:"available"`
}

// InsufficientStockError carries every short line of a failed reservation so
// the caller knows exactly what to adjust before retrying.
type InsufficientStockError struct {
	Lines []StockShortfall
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, len(e.Lines))
	for i, l := range e.Lines {
		parts[i] = fmt.Sprintf("product %d: requested %d, available %d", l.ProductID, l.Requested, l.Available)
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrInsufficientStock) match.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// NewInsufficientStock builds the error for a single short product.
func NewInsufficientStock(productID int64, requested, available int) *InsufficientStockError {
	return &InsufficientStockError{
		Lines: []StockShortfall{{ProductID: productID, Requested: requested, Available: available}},
	}
}
