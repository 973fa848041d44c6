package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Dhanush032/Smart-Shopping/internal/domain"
)

// CartService is the cart surface the handlers call.
type CartService interface {
	GetOrCreateCart(ctx context.Context, userID string) (*domain.Cart, error)
	AddItem(ctx context.Context, userID string, productID int64, quantity int) (*domain.CartItem, error)
	UpdateItem(ctx context.Context, userID, itemID string, quantity int) (*domain.CartItem, error)
	RemoveItem(ctx context.Context, userID, itemID string) error
	ClearCart(ctx context.Context, userID string) error
}

type CartHandler struct {
	carts CartService
}

func NewCartHandler(carts CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

type addItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())

	cart, err := h.carts.GetOrCreateCart(r.Context(), actor.UserID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}

	item, err := h.carts.AddItem(r.Context(), actor.UserID, req.ProductID, req.Quantity)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	itemID := chi.URLParam(r, "item_id")

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	item, err := h.carts.UpdateItem(r.Context(), actor.UserID, itemID, req.Quantity)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	itemID := chi.URLParam(r, "item_id")

	if err := h.carts.RemoveItem(r.Context(), actor.UserID, itemID); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "item removed from cart"})
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())

	if err := h.carts.ClearCart(r.Context(), actor.UserID); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "cart cleared"})
}
