package httpapi

import (
	"context"
	"encoding/json"
	"iter"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Dhanush032/Smart-Shopping/internal/domain"
)

// OrderService is the order surface the handlers call.
type OrderService interface {
	CreateOrder(ctx context.Context, userID string) (*domain.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID, actor domain.Actor) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, next domain.OrderStatus, actor domain.Actor) (*domain.Order, error)
	ListOrders(ctx context.Context, actor domain.Actor) iter.Seq2[*domain.Order, error]
}

type OrderHandler struct {
	orders OrderService
}

func NewOrderHandler(orders OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())

	order, err := h.orders.CreateOrder(r.Context(), actor.UserID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, order)
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a UUID")
		return
	}

	order, err := h.orders.GetOrder(r.Context(), id, actor)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// ListOrders collects the service's lazy order sequence into the response.
// The limit query parameter bounds the page the presentation layer asked for.
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}

	orders := make([]*domain.Order, 0, limit)
	for order, err := range h.orders.ListOrders(r.Context(), actor) {
		if err != nil {
			respondDomainError(w, err)
			return
		}
		orders = append(orders, order)
		if len(orders) == limit {
			break
		}
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a UUID")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	order, err := h.orders.UpdateOrderStatus(r.Context(), id, domain.OrderStatus(req.Status), actor)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}
