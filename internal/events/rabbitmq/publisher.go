package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alenjb/deli/internal/events"
	"github.com/alenjb/deli/internal/models"
)

// Publisher routes each topic as a routing key on the configured topic exchange.
type Publisher struct {
	client   *Client
	exchange string
	log      *slog.Logger
}

func NewPublisher(cfg models.RabbitMQConfig, log *slog.Logger) (*Publisher, error) {
	client, err := Dial(cfg)
	if err != nil {
		return nil, err
	}
	log.Info("rabbitmq publisher connected", slog.String("exchange", cfg.Exchange))
	return &Publisher{client: client, exchange: cfg.Exchange, log: log}, nil
}

func (p *Publisher) Publish(ctx context.Context, topic, key string, payload any) error {
	body, err := events.Encode(payload)
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, p.exchange, topic, body); err != nil {
		p.log.Error("failed to publish message", slog.String("topic", topic), slog.String("error", err.Error()))
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	p.log.Debug("message published", slog.String("topic", topic), slog.String("key", key))
	return nil
}

func (p *Publisher) Close() error {
	return p.client.Close()
}
