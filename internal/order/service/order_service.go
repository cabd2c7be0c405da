package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/sit722-devops/week07/internal/order/domain"
	"github.com/sit722-devops/week07/internal/order/productclient"
	"github.com/sit722-devops/week07/internal/order/repository"
)

const EventOrderCreated = "order.created"

var (
	ErrInvalidOrder      = errors.New("invalid order")
	ErrUnknownProduct    = errors.New("unknown product")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidTransition = errors.New("invalid status transition")
)

type CreateOrderItem struct {
	ProductID int64
	Quantity  int
}

type CreateOrderInput struct {
	CustomerID string
	Items      []CreateOrderItem
}

// orderCreatedEvent is the outbox payload shape published to the broker.
type orderCreatedEvent struct {
	OrderID     uuid.UUID          `json:"order_id"`
	CustomerID  string             `json:"customer_id"`
	Items       []domain.OrderItem `json:"items"`
	TotalAmount float64            `json:"total_amount"`
}

type OrderService struct {
	repo     repository.OrderRepository
	products productclient.Client
	logger   *slog.Logger
}

func NewOrderService(repo repository.OrderRepository, products productclient.Client, logger *slog.Logger) *OrderService {
	return &OrderService{
		repo:     repo,
		products: products,
		logger:   logger,
	}
}

// CreateOrder resolves every item against the product service, prices the
// order from the responses, and persists order plus outbox event in one
// transaction.
func (s *OrderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error) {
	if input.CustomerID == "" {
		return nil, fmt.Errorf("%w: customer_id is required", ErrInvalidOrder)
	}
	if len(input.Items) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", ErrInvalidOrder)
	}

	items := make([]domain.OrderItem, 0, len(input.Items))
	var total float64
	for _, in := range input.Items {
		if in.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity must be at least 1 for product %d", ErrInvalidOrder, in.ProductID)
		}

		p, err := s.products.GetProduct(ctx, in.ProductID)
		if errors.Is(err, productclient.ErrProductNotFound) {
			return nil, fmt.Errorf("%w: product %d", ErrUnknownProduct, in.ProductID)
		}
		if err != nil {
			return nil, fmt.Errorf("resolve product %d: %w", in.ProductID, err)
		}
		if p.StockQuantity < in.Quantity {
			return nil, fmt.Errorf("%w: product %d has %d in stock", ErrInsufficientStock, in.ProductID, p.StockQuantity)
		}

		items = append(items, domain.OrderItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    in.Quantity,
			UnitPrice:   p.Price,
		})
		total += p.Price * float64(in.Quantity)
	}

	order := &domain.Order{
		ID:          uuid.New(),
		CustomerID:  input.CustomerID,
		Status:      domain.OrderStatusPending,
		TotalAmount: total,
		Items:       items,
	}

	payload, err := json.Marshal(orderCreatedEvent{
		OrderID:     order.ID,
		CustomerID:  order.CustomerID,
		Items:       order.Items,
		TotalAmount: order.TotalAmount,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal order event: %w", err)
	}

	if err := s.repo.CreateOrder(ctx, order, EventOrderCreated, payload); err != nil {
		return nil, err
	}

	s.logger.Info("order created", "order_id", order.ID, "customer_id", order.CustomerID, "total", order.TotalAmount)
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.repo.GetOrderByID(ctx, id)
}

func (s *OrderService) ListOrders(ctx context.Context, customerID string) ([]*domain.Order, error) {
	return s.repo.ListOrders(ctx, customerID)
}

func (s *OrderService) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	if !domain.ValidStatus(status) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidOrder, status)
	}

	// The repository enforces delivered-is-terminal atomically.
	err := s.repo.UpdateOrderStatus(ctx, id, status)
	if errors.Is(err, repository.ErrOrderDelivered) {
		return fmt.Errorf("%w: order is already delivered", ErrInvalidTransition)
	}
	return err
}

func (s *OrderService) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteOrder(ctx, id)
}
