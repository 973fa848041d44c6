package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type Product struct {
	ID            int64           `json:"id"`
	CategoryID    int64           `json:"category_id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	Featured      bool            `json:"featured"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// InStock reports whether qty more units could currently be taken. Advisory
// only; the inventory ledger is the authority at order-creation time.
func (p *Product) InStock(qty int) bool {
	return qty <= p.StockQuantity
}
