package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sit722-devops/week07/internal/httpx"
	"github.com/sit722-devops/week07/internal/order/domain"
	"github.com/sit722-devops/week07/internal/order/repository"
	"github.com/sit722-devops/week07/internal/order/service"
)

type OrderService interface {
	CreateOrder(ctx context.Context, input service.CreateOrderInput) (*domain.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrders(ctx context.Context, customerID string) ([]*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error
	DeleteOrder(ctx context.Context, id uuid.UUID) error
}

type OrderHandler struct {
	svc     OrderService
	timeout time.Duration
}

func NewOrderHandler(svc OrderService, timeout time.Duration) *OrderHandler {
	return &OrderHandler{
		svc:     svc,
		timeout: timeout,
	}
}

type CreateOrderItemDTO struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type CreateOrderRequestDTO struct {
	CustomerID string               `json:"customer_id"`
	Items      []CreateOrderItemDTO `json:"items"`
}

type UpdateStatusRequestDTO struct {
	Status string `json:"status"`
}

type OrdersResponse struct {
	Orders []*domain.Order `json:"orders"`
}

// POST /orders
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var dto CreateOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
		return
	}

	input := service.CreateOrderInput{CustomerID: dto.CustomerID}
	for _, item := range dto.Items {
		input.Items = append(input.Items, service.CreateOrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	order, err := h.svc.CreateOrder(ctx, input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	httpx.RespondJSON(w, http.StatusCreated, order)
}

// GET /orders
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := h.svc.ListOrders(ctx, r.URL.Query().Get("customer_id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}

	httpx.RespondJSON(w, http.StatusOK, &OrdersResponse{Orders: orders})
}

// GET /orders/{order_id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := orderID(w, r)
	if !ok {
		return
	}

	order, err := h.svc.GetOrder(ctx, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	httpx.RespondJSON(w, http.StatusOK, order)
}

// PATCH /orders/{order_id}/status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := orderID(w, r)
	if !ok {
		return
	}

	var dto UpdateStatusRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
		return
	}

	if err := h.svc.UpdateOrderStatus(ctx, id, domain.OrderStatus(dto.Status)); err != nil {
		handleServiceError(w, err)
		return
	}

	order, err := h.svc.GetOrder(ctx, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	httpx.RespondJSON(w, http.StatusOK, order)
}

// DELETE /orders/{order_id}
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := orderID(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteOrder(ctx, id); err != nil {
		handleServiceError(w, err)
		return
	}

	httpx.RespondJSON(w, http.StatusNoContent, nil)
}

func orderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrOrderNotFound):
		httpx.RespondError(w, http.StatusNotFound, "order_not_found", "order does not exist")
	case errors.Is(err, service.ErrInvalidOrder):
		httpx.RespondError(w, http.StatusUnprocessableEntity, "invalid_order", err.Error())
	case errors.Is(err, service.ErrUnknownProduct):
		httpx.RespondError(w, http.StatusUnprocessableEntity, "unknown_product", err.Error())
	case errors.Is(err, service.ErrInsufficientStock):
		httpx.RespondError(w, http.StatusConflict, "insufficient_stock", err.Error())
	case errors.Is(err, service.ErrInvalidTransition):
		httpx.RespondError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		httpx.RespondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		httpx.RespondError(w, http.StatusInternalServerError, "internal_error", "unexpected error")
	}
}
