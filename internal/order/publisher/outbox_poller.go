// Package publisher drains the order outbox into the broker.
package publisher

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sit722-devops/week07/internal/order/repository"
)

const Topic = "order-events"

// messageWriter is satisfied by *kafka.Writer; tests substitute their own.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type OutboxPoller struct {
	tick      time.Duration
	batchSize int
	repo      repository.OrderRepository
	writer    messageWriter
	logger    *slog.Logger
}

func NewOutboxPoller(repo repository.OrderRepository, logger *slog.Logger, brokers string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(parseBrokers(brokers)...),
		Topic:                  Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &OutboxPoller{
		tick:      time.Second,
		batchSize: 100,
		repo:      repo,
		writer:    w,
		logger:    logger,
	}
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

func (p *OutboxPoller) Close() {
	if err := p.writer.Close(); err != nil {
		p.logger.Error("error closing kafka writer", "error", err)
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// processUnpublishedEvents marks a row processed only after the broker write
// succeeds, so delivery is at least once and consumers must tolerate replays.
func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, p.batchSize)
	if err != nil {
		p.logger.Error("failed to fetch outbox events", "error", err)
		return
	}

	for _, event := range events {
		if errPublish := p.publish(ctx, event); errPublish != nil {
			p.logger.Error("failed to publish event", "event_id", event.ID, "error", errPublish)
			continue
		}

		if errMark := p.repo.MarkEventAsProcessed(ctx, event.ID); errMark != nil {
			p.logger.Error("failed to mark event as processed", "event_id", event.ID, "error", errMark)
			continue
		}
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event *repository.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.OrderID.String()), // order id for partition ordering
		Value: event.Payload,                  // Already JSON from the database
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}

	return p.writer.WriteMessages(ctx, msg)
}
