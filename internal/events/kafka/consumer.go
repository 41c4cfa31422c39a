package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
	"github.com/alenjb/deli/internal/events"
	"github.com/alenjb/deli/internal/models"
)

type Consumer struct {
	group sarama.ConsumerGroup
	log   *slog.Logger
}

func NewConsumer(cfg models.KafkaConfig, log *slog.Logger) (*Consumer, error) {
	group, err := sarama.NewConsumerGroup(cfg.Brokers(), cfg.GroupID, newConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group %s: %w", cfg.GroupID, err)
	}

	log.Info("kafka consumer group created", slog.String("group_id", cfg.GroupID), slog.Any("brokers", cfg.Brokers()))
	return &Consumer{group: group, log: log}, nil
}

func (c *Consumer) Consume(ctx context.Context, topics []string, handler events.Handler) error {
	go func() {
		for err := range c.group.Errors() {
			c.log.Error("consumer group error", slog.String("error", err.Error()))
		}
	}()

	h := &groupHandler{handler: handler, log: c.log}
	for {
		// Consume returns on every rebalance and must be called again
		if err := c.group.Consume(ctx, topics, h); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return fmt.Errorf("consume %v: %w", topics, err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

type groupHandler struct {
	handler events.Handler
	log     *slog.Logger
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			m := events.Message{
				Topic:     msg.Topic,
				Key:       string(msg.Key),
				Value:     msg.Value,
				Timestamp: msg.Timestamp,
			}
			if err := h.handler(session.Context(), m); err != nil {
				h.log.Warn("message dropped",
					slog.String("topic", msg.Topic),
					slog.Int64("offset", msg.Offset),
					slog.String("error", err.Error()),
				)
			}
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}
