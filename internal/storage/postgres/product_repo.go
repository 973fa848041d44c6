package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Dhanush032/Smart-Shopping/internal/catalog"
	"github.com/Dhanush032/Smart-Shopping/internal/domain"
)

const productColumns = `id, category_id, sku, name, description, price, stock_quantity, featured, is_active, created_at, updated_at`

// Reserve is the atomic check-and-decrement: the conditional UPDATE either
// takes the stock in one statement or touches nothing.
func (s *Store) Reserve(ctx context.Context, productID int64, qty int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity - $2, updated_at = NOW()
		 WHERE id = $1 AND stock_quantity >= $2`,
		productID, qty)
	if err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserve stock rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}

	// Either the product does not exist or there was not enough stock.
	var available int
	err = s.db.QueryRowContext(ctx,
		`SELECT stock_quantity FROM products WHERE id = $1`, productID).Scan(&available)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("query stock after failed reserve: %w", err)
	}
	return domain.NewInsufficientStock(productID, qty, available)
}

func (s *Store) Release(ctx context.Context, productID int64, qty int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity + $2, updated_at = NOW()
		 WHERE id = $1`,
		productID, qty)
	if err != nil {
		return fmt.Errorf("release stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("release stock rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) Check(ctx context.Context, productID int64, qty int) (bool, error) {
	var available int
	err := s.db.QueryRowContext(ctx,
		`SELECT stock_quantity FROM products WHERE id = $1`, productID).Scan(&available)
	if errors.Is(err, sql.ErrNoRows) {
		return false, domain.ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("check stock: %w", err)
	}
	return available >= qty, nil
}

func (s *Store) Available(ctx context.Context, productID int64) (int, error) {
	var available int
	err := s.db.QueryRowContext(ctx,
		`SELECT stock_quantity FROM products WHERE id = $1`, productID).Scan(&available)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("query available stock: %w", err)
	}
	return available, nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id)

	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product by id: %w", err)
	}
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context, f catalog.ProductFilter) ([]*domain.Product, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !f.IncludeInactive {
		conds = append(conds, "is_active = TRUE")
	}
	if f.CategoryID != nil {
		conds = append(conds, "category_id = "+arg(*f.CategoryID))
	}
	if f.MinPrice != nil {
		conds = append(conds, "price >= "+arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		conds = append(conds, "price <= "+arg(*f.MaxPrice))
	}
	if f.InStock != nil {
		if *f.InStock {
			conds = append(conds, "stock_quantity > 0")
		} else {
			conds = append(conds, "stock_quantity = 0")
		}
	}
	if f.Featured != nil {
		conds = append(conds, "featured = "+arg(*f.Featured))
	}
	if f.StockAtMost != nil {
		conds = append(conds, "stock_quantity <= "+arg(*f.StockAtMost))
	}
	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		conds = append(conds, fmt.Sprintf("(name ILIKE %s OR description ILIKE %s OR sku ILIKE %s)", p, p, p))
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return products, nil
}

func (s *Store) CreateProduct(ctx context.Context, p *domain.Product) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO products (category_id, sku, name, description, price, stock_quantity, featured, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		nullCategory(p.CategoryID), p.SKU, p.Name, p.Description, p.Price, p.StockQuantity,
		p.Featured, p.IsActive, p.CreatedAt, p.UpdatedAt).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// UpdateProduct replaces catalog fields. Stock is excluded on purpose: only
// the ledger's Reserve/Release move the counter.
func (s *Store) UpdateProduct(ctx context.Context, p *domain.Product) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products
		 SET category_id = $2, sku = $3, name = $4, description = $5, price = $6,
		     featured = $7, is_active = $8, updated_at = $9
		 WHERE id = $1`,
		p.ID, nullCategory(p.CategoryID), p.SKU, p.Name, p.Description, p.Price,
		p.Featured, p.IsActive, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update product rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, slug, is_active, created_at
		 FROM categories WHERE is_active = TRUE ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var categories []*domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		categories = append(categories, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return categories, nil
}

func (s *Store) CreateCategory(ctx context.Context, c *domain.Category) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO categories (name, slug, is_active, created_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		c.Name, c.Slug, c.IsActive, c.CreatedAt).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// nullCategory maps the zero id (no category) to SQL NULL.
func nullCategory(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		p        domain.Product
		category sql.NullInt64
	)
	err := row.Scan(
		&p.ID,
		&category,
		&p.SKU,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.StockQuantity,
		&p.Featured,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.CategoryID = category.Int64
	return &p, nil
}
