package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sit722-devops/week07/internal/order/domain"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrOrderDelivered = errors.New("order already delivered")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// OutboxEvent is an order event waiting to be published to the broker.
type OutboxEvent struct {
	ID        int
	OrderID   uuid.UUID
	EventType string
	Payload   []byte
	CreatedAt time.Time
}

type OrderRepository interface {
	// CreateOrder persists the order and its outbox event in one transaction.
	CreateOrder(ctx context.Context, order *domain.Order, eventType string, eventPayload []byte) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrders(ctx context.Context, customerID string) ([]*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error
	DeleteOrder(ctx context.Context, id uuid.UUID) error
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int) error
	Close() error
}
