package consumer

import (
	"context"
	"errors"
	"testing"

	"github.com/sit722-devops/week07/internal/logging"
	"github.com/sit722-devops/week07/internal/product/repository"
	"github.com/stretchr/testify/assert"
)

// MockDeductor implements StockDeductor for testing
type MockDeductor struct {
	Applied map[string][]repository.StockDeduction
	Err     error
}

func (m *MockDeductor) ApplyOrderDeductions(_ context.Context, orderID string, deductions []repository.StockDeduction) ([]repository.DeductionResult, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Applied == nil {
		m.Applied = make(map[string][]repository.StockDeduction)
	}
	if _, ok := m.Applied[orderID]; ok {
		return nil, repository.ErrDuplicateOrderEvent
	}
	m.Applied[orderID] = deductions

	results := make([]repository.DeductionResult, len(deductions))
	for i, d := range deductions {
		results[i] = repository.DeductionResult{ProductID: d.ProductID, Quantity: d.Quantity}
	}
	return results, nil
}

func newTestConsumer(svc StockDeductor) *Consumer {
	return &Consumer{svc: svc, logger: logging.New(logging.Options{Service: "test"})}
}

func TestApplyEvent_DeductsEveryItem(t *testing.T) {
	mock := &MockDeductor{}
	c := newTestConsumer(mock)

	c.applyEvent(context.Background(), []byte(`{
		"order_id": "ord-1",
		"customer_id": "cust-1",
		"items": [
			{"product_id": 1, "quantity": 2},
			{"product_id": 7, "quantity": 1}
		]
	}`))

	assert.Equal(t, []repository.StockDeduction{{ProductID: 1, Quantity: 2}, {ProductID: 7, Quantity: 1}}, mock.Applied["ord-1"])
}

func TestApplyEvent_MalformedPayloadSkipped(t *testing.T) {
	mock := &MockDeductor{}
	c := newTestConsumer(mock)

	c.applyEvent(context.Background(), []byte(`{not json`))

	assert.Empty(t, mock.Applied)
}

func TestApplyEvent_InvalidQuantitySkipped(t *testing.T) {
	mock := &MockDeductor{}
	c := newTestConsumer(mock)

	c.applyEvent(context.Background(), []byte(`{
		"order_id": "ord-2",
		"items": [
			{"product_id": 1, "quantity": 0},
			{"product_id": 2, "quantity": 3}
		]
	}`))

	assert.Equal(t, []repository.StockDeduction{{ProductID: 2, Quantity: 3}}, mock.Applied["ord-2"])
}

func TestApplyEvent_RedeliveredEventDeductsOnce(t *testing.T) {
	mock := &MockDeductor{}
	c := newTestConsumer(mock)

	payload := []byte(`{
		"order_id": "ord-3",
		"items": [{"product_id": 3, "quantity": 2}]
	}`)

	c.applyEvent(context.Background(), payload)
	c.applyEvent(context.Background(), payload)

	assert.Len(t, mock.Applied, 1)
	assert.Equal(t, []repository.StockDeduction{{ProductID: 3, Quantity: 2}}, mock.Applied["ord-3"])
}

func TestApplyEvent_ApplyErrorDoesNotStopConsumer(t *testing.T) {
	mock := &MockDeductor{Err: errors.New("database down")}
	c := newTestConsumer(mock)

	// Must not panic or return an error path; the event is logged and dropped.
	c.applyEvent(context.Background(), []byte(`{
		"order_id": "ord-4",
		"items": [{"product_id": 5, "quantity": 9}]
	}`))

	assert.Empty(t, mock.Applied)
}

func TestParseBrokers(t *testing.T) {
	assert.Equal(t, []string{"kafka:9092"}, parseBrokers("kafka:9092"))
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, parseBrokers("kafka-1:9092, kafka-2:9092"))
	assert.Empty(t, parseBrokers(""))
}
