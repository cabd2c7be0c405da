package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/sit722-devops/week07/internal/logging"
	"github.com/sit722-devops/week07/internal/order/domain"
	"github.com/sit722-devops/week07/internal/order/productclient"
	"github.com/sit722-devops/week07/internal/order/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(repo *MockRepository, products *MockProductClient) *OrderService {
	return NewOrderService(repo, products, logging.New(logging.Options{Service: "test"}))
}

func catalog() *MockProductClient {
	return &MockProductClient{Products: map[int64]*productclient.Product{
		1: {ID: 1, Name: "Laptop", Price: 1000.00, StockQuantity: 5},
		2: {ID: 2, Name: "Mouse", Price: 25.50, StockQuantity: 100},
	}}
}

func TestCreateOrder_PricesFromProductService(t *testing.T) {
	repo := NewMockRepository()
	svc := newTestService(repo, catalog())

	order, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID: "cust-1",
		Items: []CreateOrderItem{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 4},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, 2*1000.00+4*25.50, order.TotalAmount)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "Laptop", order.Items[0].ProductName)
	assert.Equal(t, 1000.00, order.Items[0].UnitPrice)
	assert.Same(t, order, repo.CreatedOrder)
}

func TestCreateOrder_OutboxPayloadMatchesOrder(t *testing.T) {
	repo := NewMockRepository()
	svc := newTestService(repo, catalog())

	order, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID: "cust-2",
		Items:      []CreateOrderItem{{ProductID: 2, Quantity: 1}},
	})
	require.NoError(t, err)

	assert.Equal(t, EventOrderCreated, repo.CreatedType)

	var event struct {
		OrderID     uuid.UUID          `json:"order_id"`
		CustomerID  string             `json:"customer_id"`
		Items       []domain.OrderItem `json:"items"`
		TotalAmount float64            `json:"total_amount"`
	}
	require.NoError(t, json.Unmarshal(repo.CreatedEvent, &event))
	assert.Equal(t, order.ID, event.OrderID)
	assert.Equal(t, "cust-2", event.CustomerID)
	assert.Equal(t, order.TotalAmount, event.TotalAmount)
	require.Len(t, event.Items, 1)
	assert.Equal(t, int64(2), event.Items[0].ProductID)
}

func TestCreateOrder_Validation(t *testing.T) {
	svc := newTestService(NewMockRepository(), catalog())
	ctx := context.Background()

	_, err := svc.CreateOrder(ctx, CreateOrderInput{Items: []CreateOrderItem{{ProductID: 1, Quantity: 1}}})
	assert.ErrorIs(t, err, ErrInvalidOrder)

	_, err = svc.CreateOrder(ctx, CreateOrderInput{CustomerID: "c"})
	assert.ErrorIs(t, err, ErrInvalidOrder)

	_, err = svc.CreateOrder(ctx, CreateOrderInput{
		CustomerID: "c",
		Items:      []CreateOrderItem{{ProductID: 1, Quantity: 0}},
	})
	assert.ErrorIs(t, err, ErrInvalidOrder)
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	svc := newTestService(NewMockRepository(), catalog())

	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID: "c",
		Items:      []CreateOrderItem{{ProductID: 404, Quantity: 1}},
	})
	assert.ErrorIs(t, err, ErrUnknownProduct)
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	svc := newTestService(NewMockRepository(), catalog())

	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID: "c",
		Items:      []CreateOrderItem{{ProductID: 1, Quantity: 6}},
	})
	assert.ErrorIs(t, err, ErrInsufficientStock)
}

func TestCreateOrder_ProductServiceDown(t *testing.T) {
	products := &MockProductClient{Err: errors.New("connection refused")}
	svc := newTestService(NewMockRepository(), products)

	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID: "c",
		Items:      []CreateOrderItem{{ProductID: 1, Quantity: 1}},
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownProduct)
}

func TestUpdateOrderStatus_RejectsUnknownStatus(t *testing.T) {
	svc := newTestService(NewMockRepository(), catalog())

	err := svc.UpdateOrderStatus(context.Background(), uuid.New(), "TELEPORTED")
	assert.ErrorIs(t, err, ErrInvalidOrder)
}

func TestUpdateOrderStatus_DeliveredIsTerminal(t *testing.T) {
	repo := NewMockRepository()
	id := uuid.New()
	repo.Orders[id] = &domain.Order{ID: id, CustomerID: "c", Status: domain.OrderStatusDelivered}
	svc := newTestService(repo, catalog())

	err := svc.UpdateOrderStatus(context.Background(), id, domain.OrderStatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdateOrderStatus_Success(t *testing.T) {
	repo := NewMockRepository()
	id := uuid.New()
	repo.Orders[id] = &domain.Order{ID: id, CustomerID: "c", Status: domain.OrderStatusPending}
	svc := newTestService(repo, catalog())

	require.NoError(t, svc.UpdateOrderStatus(context.Background(), id, domain.OrderStatusShipped))
	assert.Equal(t, domain.OrderStatusShipped, repo.UpdatedStatus)
}

func TestUpdateOrderStatus_NotFound(t *testing.T) {
	svc := newTestService(NewMockRepository(), catalog())

	err := svc.UpdateOrderStatus(context.Background(), uuid.New(), domain.OrderStatusShipped)
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
}
