package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/sit722-devops/week07/internal/order/domain"
	"github.com/sit722-devops/week07/internal/order/productclient"
	"github.com/sit722-devops/week07/internal/order/repository"
)

// MockRepository implements repository.OrderRepository for testing
type MockRepository struct {
	Orders        map[uuid.UUID]*domain.Order
	CreatedOrder  *domain.Order // Captures the order passed to CreateOrder
	CreatedEvent  []byte        // Captures the outbox payload
	CreatedType   string
	CreateErr     error
	UpdatedStatus domain.OrderStatus
	Events        []*repository.OutboxEvent
	ProcessedIDs  []int
}

func NewMockRepository() *MockRepository {
	return &MockRepository{Orders: make(map[uuid.UUID]*domain.Order)}
}

func (m *MockRepository) CreateOrder(_ context.Context, order *domain.Order, eventType string, payload []byte) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.CreatedOrder = order
	m.CreatedType = eventType
	m.CreatedEvent = payload
	m.Orders[order.ID] = order
	return nil
}

func (m *MockRepository) GetOrderByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	order, ok := m.Orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

func (m *MockRepository) ListOrders(_ context.Context, customerID string) ([]*domain.Order, error) {
	var out []*domain.Order
	for _, o := range m.Orders {
		if customerID == "" || o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *MockRepository) UpdateOrderStatus(_ context.Context, id uuid.UUID, status domain.OrderStatus) error {
	order, ok := m.Orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if order.Status == domain.OrderStatusDelivered && status != domain.OrderStatusDelivered {
		return repository.ErrOrderDelivered
	}
	order.Status = status
	m.UpdatedStatus = status
	return nil
}

func (m *MockRepository) DeleteOrder(_ context.Context, id uuid.UUID) error {
	if _, ok := m.Orders[id]; !ok {
		return repository.ErrOrderNotFound
	}
	delete(m.Orders, id)
	return nil
}

func (m *MockRepository) GetUnprocessedEvents(_ context.Context, _ int) ([]*repository.OutboxEvent, error) {
	return m.Events, nil
}

func (m *MockRepository) MarkEventAsProcessed(_ context.Context, id int) error {
	m.ProcessedIDs = append(m.ProcessedIDs, id)
	return nil
}

func (m *MockRepository) Close() error { return nil }

// MockProductClient implements productclient.Client for testing
type MockProductClient struct {
	Products map[int64]*productclient.Product // Map of product ID to product
	Err      error
}

func (m *MockProductClient) GetProduct(_ context.Context, id int64) (*productclient.Product, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	p, ok := m.Products[id]
	if !ok {
		return nil, productclient.ErrProductNotFound
	}
	return p, nil
}
