package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alenjb/deli/internal/events"
	"github.com/alenjb/deli/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer reads one durable queue per topic, named after the topic and bound to the
// exchange with the topic as routing key. Messages are acked manually.
type Consumer struct {
	client   *Client
	exchange string
	prefetch int
	log      *slog.Logger
}

func NewConsumer(cfg models.RabbitMQConfig, log *slog.Logger) (*Consumer, error) {
	client, err := Dial(cfg)
	if err != nil {
		return nil, err
	}
	log.Info("rabbitmq consumer connected", slog.String("exchange", cfg.Exchange))
	return &Consumer{client: client, exchange: cfg.Exchange, prefetch: cfg.Prefetch, log: log}, nil
}

func (c *Consumer) Consume(ctx context.Context, topics []string, handler events.Handler) error {
	ch := c.client.ch
	if c.prefetch > 0 {
		if err := ch.Qos(c.prefetch, 0, false); err != nil {
			return err
		}
	}

	streams := make([]<-chan amqp.Delivery, 0, len(topics))
	for _, topic := range topics {
		q, err := ch.QueueDeclare(
			topic,
			true,  // durable
			false, // auto-delete
			false, // exclusive
			false, // no-wait
			nil,
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", topic, err)
		}
		if err := ch.QueueBind(q.Name, topic, c.exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s: %w", topic, err)
		}
		msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("failed to consume queue %s: %w", topic, err)
		}
		streams = append(streams, msgs)
	}

	errs := make(chan error, len(streams))
	var wg sync.WaitGroup
	for i, msgs := range streams {
		wg.Add(1)
		go func(topic string, msgs <-chan amqp.Delivery) {
			defer wg.Done()
			errs <- c.drain(ctx, topic, msgs, handler)
		}(topics[i], msgs)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Consumer) drain(ctx context.Context, topic string, msgs <-chan amqp.Delivery, handler events.Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("delivery channel for %s closed", topic)
			}
			msg := events.Message{
				Topic:     topic,
				Key:       d.RoutingKey,
				Value:     d.Body,
				Timestamp: d.Timestamp,
			}
			if err := handler(ctx, msg); err != nil {
				c.log.Warn("message dropped", slog.String("topic", topic), slog.String("error", err.Error()))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) Close() error {
	return c.client.Close()
}
