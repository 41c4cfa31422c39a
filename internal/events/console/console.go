// Package console is the broker used when no message bus is configured: published events
// are written to the log and nothing is ever consumed.
package console

import (
	"context"
	"log/slog"

	"github.com/alenjb/deli/internal/events"
)

type Publisher struct {
	log *slog.Logger
}

func NewPublisher(log *slog.Logger) *Publisher {
	return &Publisher{log: log}
}

func (p *Publisher) Publish(ctx context.Context, topic, key string, payload any) error {
	body, err := events.Encode(payload)
	if err != nil {
		return err
	}
	p.log.Info("event published", slog.String("topic", topic), slog.String("key", key), slog.String("payload", string(body)))
	return nil
}

func (p *Publisher) Close() error { return nil }

type Consumer struct {
	log *slog.Logger
}

func NewConsumer(log *slog.Logger) *Consumer {
	return &Consumer{log: log}
}

// Consume waits for ctx to end.
func (c *Consumer) Consume(ctx context.Context, topics []string, handler events.Handler) error {
	c.log.Info("console broker has no inbound messages", slog.Any("topics", topics))
	<-ctx.Done()
	return nil
}

func (c *Consumer) Close() error { return nil }
