// Package memory is the in-memory storage backend. It backs the unit tests
// and the single-process dev mode, and implements the same contracts as the
// postgres backend: cart and order repositories, the catalog repositories,
// the inventory ledger and the outbox source.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Dhanush032/Smart-Shopping/internal/catalog"
	"github.com/Dhanush032/Smart-Shopping/internal/domain"
	"github.com/Dhanush032/Smart-Shopping/internal/events"
)

type outboxRow struct {
	event     *events.Event
	published bool
}

type Store struct {
	mu sync.RWMutex

	products   map[int64]*domain.Product
	categories map[int64]*domain.Category
	carts      map[string]*domain.Cart // keyed by user id
	orders     map[uuid.UUID]*domain.Order

	outbox      []*outboxRow
	nextEventID int64

	nextProductID  int64
	nextCategoryID int64
}

func NewStore() *Store {
	return &Store{
		products:   make(map[int64]*domain.Product),
		categories: make(map[int64]*domain.Category),
		carts:      make(map[string]*domain.Cart),
		orders:     make(map[uuid.UUID]*domain.Order),
	}
}

// --- inventory.Ledger ---

func (s *Store) Reserve(_ context.Context, productID int64, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok {
		return domain.ErrNotFound
	}
	if p.StockQuantity < qty {
		return domain.NewInsufficientStock(productID, qty, p.StockQuantity)
	}
	p.StockQuantity -= qty
	p.UpdatedAt = time.Now()
	return nil
}

func (s *Store) Release(_ context.Context, productID int64, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok {
		return domain.ErrNotFound
	}
	p.StockQuantity += qty
	p.UpdatedAt = time.Now()
	return nil
}

func (s *Store) Check(_ context.Context, productID int64, qty int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[productID]
	if !ok {
		return false, domain.ErrNotFound
	}
	return p.InStock(qty), nil
}

func (s *Store) Available(_ context.Context, productID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[productID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return p.StockQuantity, nil
}

// --- catalog.ProductRepository ---

func (s *Store) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) ListProducts(_ context.Context, f catalog.ProductFilter) ([]*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Product
	for _, p := range s.products {
		if matches(p, f) {
			cp := *p
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func matches(p *domain.Product, f catalog.ProductFilter) bool {
	if !p.IsActive && !f.IncludeInactive {
		return false
	}
	if f.CategoryID != nil && p.CategoryID != *f.CategoryID {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	if f.InStock != nil && *f.InStock != (p.StockQuantity > 0) {
		return false
	}
	if f.Featured != nil && p.Featured != *f.Featured {
		return false
	}
	if f.StockAtMost != nil && p.StockQuantity > *f.StockAtMost {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Name), needle) &&
			!strings.Contains(strings.ToLower(p.Description), needle) &&
			!strings.Contains(strings.ToLower(p.SKU), needle) {
			return false
		}
	}
	return true
}

func (s *Store) CreateProduct(_ context.Context, p *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == 0 {
		s.nextProductID++
		p.ID = s.nextProductID
	} else if p.ID > s.nextProductID {
		s.nextProductID = p.ID
	}
	cp := *p
	s.products[p.ID] = &cp
	return nil
}

// UpdateProduct replaces catalog fields, deliberately keeping the stored
// stock counter: only the ledger moves stock.
func (s *Store) UpdateProduct(_ context.Context, p *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[p.ID]
	if !ok {
		return domain.ErrNotFound
	}
	cp := *p
	cp.StockQuantity = existing.StockQuantity
	cp.CreatedAt = existing.CreatedAt
	s.products[p.ID] = &cp
	return nil
}

// --- catalog.CategoryRepository ---

func (s *Store) ListCategories(_ context.Context) ([]*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Category
	for _, c := range s.categories {
		if c.IsActive {
			cp := *c
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Store) CreateCategory(_ context.Context, c *domain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == 0 {
		s.nextCategoryID++
		c.ID = s.nextCategoryID
	} else if c.ID > s.nextCategoryID {
		s.nextCategoryID = c.ID
	}
	cp := *c
	s.categories[c.ID] = &cp
	return nil
}

// --- events.Source ---

func (s *Store) UnpublishedEvents(_ context.Context, limit int) ([]*events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*events.Event
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		cp := *row.event
		result = append(result, &cp)
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (s *Store) MarkEventPublished(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.outbox {
		if row.event.ID == id {
			row.published = true
			return nil
		}
	}
	return domain.ErrNotFound
}

// appendEvent must be called with s.mu held.
func (s *Store) appendEvent(aggregateID, eventType string, payload []byte) {
	s.nextEventID++
	s.outbox = append(s.outbox, &outboxRow{
		event: &events.Event{
			ID:          s.nextEventID,
			AggregateID: aggregateID,
			EventType:   eventType,
			Payload:     payload,
			CreatedAt:   time.Now(),
		},
	})
}
