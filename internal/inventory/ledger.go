// Package inventory defines the stock ledger: the only component allowed to
// mutate product stock counters.
package inventory

import "context"

// Ledger tracks per-product available stock.
//
// Check is advisory and used while a cart is being edited, so that a shopping
// session never holds stock. Reserve is the hard, atomic decrement taken at
// order-creation time; Release undoes a prior Reserve when a multi-line
// reservation partially fails.
type Ledger interface {
	// Reserve atomically checks available stock and decrements it by qty.
	// On shortfall it returns *domain.InsufficientStockError and leaves the
	// counter untouched.
	Reserve(ctx context.Context, productID int64, qty int) error

	// Release atomically returns qty units to the available pool. It is a
	// compensating action only, never exposed to end users.
	Release(ctx context.Context, productID int64, qty int) error

	// Check reports whether qty units are currently available, without
	// reserving anything.
	Check(ctx context.Context, productID int64, qty int) (bool, error)

	// Available returns the current reservable quantity. Shortfall reports
	// read this instead of cached catalog data, which may lag behind the
	// counter.
	Available(ctx context.Context, productID int64) (int, error)
}
