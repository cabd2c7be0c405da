package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sit722-devops/week07/internal/order/domain"
	"github.com/sit722-devops/week07/internal/order/repository"
	"github.com/sit722-devops/week07/internal/order/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockService implements OrderService for testing
type MockService struct {
	Orders    map[uuid.UUID]*domain.Order
	CreateErr error
}

func NewMockService() *MockService {
	return &MockService{Orders: make(map[uuid.UUID]*domain.Order)}
}

func (m *MockService) CreateOrder(_ context.Context, input service.CreateOrderInput) (*domain.Order, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	order := &domain.Order{
		ID:         uuid.New(),
		CustomerID: input.CustomerID,
		Status:     domain.OrderStatusPending,
	}
	m.Orders[order.ID] = order
	return order, nil
}

func (m *MockService) GetOrder(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	order, ok := m.Orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

func (m *MockService) ListOrders(_ context.Context, customerID string) ([]*domain.Order, error) {
	var out []*domain.Order
	for _, o := range m.Orders {
		if customerID == "" || o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *MockService) UpdateOrderStatus(_ context.Context, id uuid.UUID, status domain.OrderStatus) error {
	order, ok := m.Orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if !domain.ValidStatus(status) {
		return service.ErrInvalidOrder
	}
	order.Status = status
	return nil
}

func (m *MockService) DeleteOrder(_ context.Context, id uuid.UUID) error {
	if _, ok := m.Orders[id]; !ok {
		return repository.ErrOrderNotFound
	}
	delete(m.Orders, id)
	return nil
}

func newTestRouter(svc *MockService) *chi.Mux {
	h := NewOrderHandler(svc, 5*time.Second)
	r := chi.NewRouter()
	r.Post("/orders", h.Create)
	r.Get("/orders", h.List)
	r.Get("/orders/{order_id}", h.Get)
	r.Patch("/orders/{order_id}/status", h.UpdateStatus)
	r.Delete("/orders/{order_id}", h.Delete)
	return r
}

func TestCreate_Returns201(t *testing.T) {
	svc := NewMockService()
	router := newTestRouter(svc)

	body := strings.NewReader(`{"customer_id":"cust-1","items":[{"product_id":1,"quantity":2}]}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders", body))

	require.Equal(t, http.StatusCreated, rec.Code)
	var order domain.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	assert.Equal(t, "cust-1", order.CustomerID)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
}

func TestCreate_UnknownProductMapsTo422(t *testing.T) {
	svc := NewMockService()
	svc.CreateErr = service.ErrUnknownProduct
	router := newTestRouter(svc)

	body := strings.NewReader(`{"customer_id":"c","items":[{"product_id":404,"quantity":1}]}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders", body))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCreate_InsufficientStockMapsTo409(t *testing.T) {
	svc := NewMockService()
	svc.CreateErr = service.ErrInsufficientStock
	router := newTestRouter(svc)

	body := strings.NewReader(`{"customer_id":"c","items":[{"product_id":1,"quantity":99}]}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders", body))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGet_NotFound(t *testing.T) {
	router := newTestRouter(NewMockService())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/"+uuid.NewString(), nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGet_InvalidUUID(t *testing.T) {
	router := newTestRouter(NewMockService())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/not-a-uuid", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestList_FiltersByCustomer(t *testing.T) {
	svc := NewMockService()
	a := uuid.New()
	b := uuid.New()
	svc.Orders[a] = &domain.Order{ID: a, CustomerID: "alice"}
	svc.Orders[b] = &domain.Order{ID: b, CustomerID: "bob"}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders?customer_id=alice", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp OrdersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Orders, 1)
	assert.Equal(t, "alice", resp.Orders[0].CustomerID)
}

func TestUpdateStatus_ReturnsUpdatedOrder(t *testing.T) {
	svc := NewMockService()
	id := uuid.New()
	svc.Orders[id] = &domain.Order{ID: id, CustomerID: "c", Status: domain.OrderStatusPending}
	router := newTestRouter(svc)

	body := strings.NewReader(`{"status":"SHIPPED"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/orders/"+id.String()+"/status", body))

	require.Equal(t, http.StatusOK, rec.Code)
	var order domain.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	assert.Equal(t, domain.OrderStatusShipped, order.Status)
}

func TestUpdateStatus_UnknownStatus(t *testing.T) {
	svc := NewMockService()
	id := uuid.New()
	svc.Orders[id] = &domain.Order{ID: id, CustomerID: "c", Status: domain.OrderStatusPending}
	router := newTestRouter(svc)

	body := strings.NewReader(`{"status":"TELEPORTED"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/orders/"+id.String()+"/status", body))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDelete_Returns204(t *testing.T) {
	svc := NewMockService()
	id := uuid.New()
	svc.Orders[id] = &domain.Order{ID: id, CustomerID: "c"}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/orders/"+id.String(), nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, svc.Orders)
}
