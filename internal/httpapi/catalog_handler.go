package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Dhanush032/Smart-Shopping/internal/catalog"
	"github.com/Dhanush032/Smart-Shopping/internal/domain"
)

// CatalogService is the catalog surface the handlers call.
type CatalogService interface {
	GetProduct(ctx context.Context, id int64, actor domain.Actor) (*domain.Product, error)
	ListProducts(ctx context.Context, f catalog.ProductFilter, actor domain.Actor) ([]*domain.Product, error)
	FeaturedProducts(ctx context.Context) ([]*domain.Product, error)
	LowStock(ctx context.Context, threshold int, actor domain.Actor) ([]*domain.Product, error)
	CreateProduct(ctx context.Context, p *domain.Product, actor domain.Actor) (*domain.Product, error)
	UpdateProduct(ctx context.Context, p *domain.Product, actor domain.Actor) (*domain.Product, error)
	ListCategories(ctx context.Context) ([]*domain.Category, error)
	CreateCategory(ctx context.Context, c *domain.Category, actor domain.Actor) (*domain.Category, error)
}

type CatalogHandler struct {
	cat CatalogService
}

func NewCatalogHandler(cat CatalogService) *CatalogHandler {
	return &CatalogHandler{cat: cat}
}

func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())

	f, err := filterFromQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_filter", err.Error())
		return
	}

	products, err := h.cat.ListProducts(r.Context(), f, actor)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func filterFromQuery(r *http.Request) (catalog.ProductFilter, error) {
	var f catalog.ProductFilter
	q := r.URL.Query()

	if raw := q.Get("category"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return f, errInvalidParam("category")
		}
		f.CategoryID = &id
	}
	if raw := q.Get("min_price"); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return f, errInvalidParam("min_price")
		}
		f.MinPrice = &d
	}
	if raw := q.Get("max_price"); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return f, errInvalidParam("max_price")
		}
		f.MaxPrice = &d
	}
	if raw := q.Get("in_stock"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return f, errInvalidParam("in_stock")
		}
		f.InStock = &b
	}
	if raw := q.Get("featured"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return f, errInvalidParam("featured")
		}
		f.Featured = &b
	}
	if raw := q.Get("include_inactive"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return f, errInvalidParam("include_inactive")
		}
		f.IncludeInactive = b
	}
	f.Search = q.Get("search")
	return f, nil
}

type paramError string

func errInvalidParam(name string) paramError { return paramError(name) }

func (e paramError) Error() string { return "invalid query parameter: " + string(e) }

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	p, err := h.cat.GetProduct(r.Context(), id, actor)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) Featured(w http.ResponseWriter, r *http.Request) {
	products, err := h.cat.FeaturedProducts(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *CatalogHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())

	threshold := 10
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid_threshold", "threshold must be a non-negative integer")
			return
		}
		threshold = n
	}

	products, err := h.cat.LowStock(r.Context(), threshold, actor)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())

	var p domain.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	created, err := h.cat.CreateProduct(r.Context(), &p, actor)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	var p domain.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	p.ID = id

	updated, err := h.cat.UpdateProduct(r.Context(), &p, actor)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.cat.ListCategories(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())

	var c domain.Category
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	created, err := h.cat.CreateCategory(r.Context(), &c, actor)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}
