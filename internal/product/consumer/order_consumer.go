// Package consumer applies order-created events to product stock.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/segmentio/kafka-go"
	"github.com/sit722-devops/week07/internal/product/repository"
)

const Topic = "order-events"

type eventItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type OrderCreatedEvent struct {
	OrderID    string      `json:"order_id"`
	CustomerID string      `json:"customer_id"`
	Items      []eventItem `json:"items"`
}

// StockDeductor is the slice of the product service the consumer needs.
type StockDeductor interface {
	ApplyOrderDeductions(ctx context.Context, orderID string, deductions []repository.StockDeduction) ([]repository.DeductionResult, error)
}

type Consumer struct {
	svc    StockDeductor
	reader *kafka.Reader
	logger *slog.Logger
}

func NewConsumer(svc StockDeductor, logger *slog.Logger, brokers string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  parseBrokers(brokers),
		Topic:    Topic,
		GroupID:  "product-service",
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{svc: svc, reader: reader, logger: logger}
}

// parseBrokers splits a comma-separated KAFKA_BROKERS value.
func parseBrokers(s string) []string {
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Error("error closing kafka reader", "error", err)
	}
}

func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		c.logger.Error("error reading message", "error", err)
		return
	}

	c.applyEvent(ctx, m.Value)
}

// applyEvent deducts stock for every item in the event. All items apply
// atomically with an applied-order record keyed by order id, so a redelivered
// event is skipped instead of deducting twice. Malformed events and per-item
// failures are logged and skipped so one bad order never wedges the consumer
// group.
func (c *Consumer) applyEvent(ctx context.Context, value []byte) {
	var event OrderCreatedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		c.logger.Error("error parsing order event", "error", err)
		return
	}

	deductions := make([]repository.StockDeduction, 0, len(event.Items))
	for _, item := range event.Items {
		if item.Quantity < 1 {
			c.logger.Warn("skipping item with invalid quantity",
				"order_id", event.OrderID, "product_id", item.ProductID, "quantity", item.Quantity)
			continue
		}
		deductions = append(deductions, repository.StockDeduction{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	if len(deductions) == 0 {
		return
	}

	results, err := c.svc.ApplyOrderDeductions(ctx, event.OrderID, deductions)
	if errors.Is(err, repository.ErrDuplicateOrderEvent) {
		c.logger.Info("order event already applied, skipping", "order_id", event.OrderID)
		return
	}
	if err != nil {
		c.logger.Error("failed to apply order event", "order_id", event.OrderID, "error", err)
		return
	}

	for _, res := range results {
		switch {
		case errors.Is(res.Err, repository.ErrProductNotFound):
			c.logger.Warn("order references unknown product",
				"order_id", event.OrderID, "product_id", res.ProductID)
		case errors.Is(res.Err, repository.ErrInsufficientStock):
			c.logger.Warn("stock floor reached, skipping deduction",
				"order_id", event.OrderID, "product_id", res.ProductID, "quantity", res.Quantity)
		case res.Err != nil:
			c.logger.Error("failed to deduct stock",
				"order_id", event.OrderID, "product_id", res.ProductID, "error", res.Err)
		default:
			c.logger.Info("stock deducted",
				"order_id", event.OrderID, "product_id", res.ProductID, "quantity", res.Quantity)
		}
	}
}
