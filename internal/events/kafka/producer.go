package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/alenjb/deli/internal/events"
	"github.com/alenjb/deli/internal/models"
)

type Producer struct {
	producer sarama.SyncProducer
	log      *slog.Logger
}

func newConfig(cfg models.KafkaConfig) *sarama.Config {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 5
	saramaConfig.Producer.Retry.Backoff = 100 * time.Millisecond
	saramaConfig.Producer.Return.Successes = true // Must be true for SyncProducer
	saramaConfig.Net.DialTimeout = 30 * time.Second
	saramaConfig.Net.ReadTimeout = 30 * time.Second
	saramaConfig.Net.WriteTimeout = 30 * time.Second

	if cfg.SessionTimeoutMs > 0 {
		saramaConfig.Consumer.Group.Session.Timeout = time.Duration(cfg.SessionTimeoutMs) * time.Millisecond
	} else {
		saramaConfig.Consumer.Group.Session.Timeout = 45 * time.Second
	}
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Consumer.Return.Errors = true
	return saramaConfig
}

func NewProducer(cfg models.KafkaConfig, log *slog.Logger) (*Producer, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers(), newConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create Sarama producer: %w", err)
	}

	log.Info("kafka producer created", slog.Any("brokers", cfg.Brokers()))
	return NewProducerWith(producer, log), nil
}

// NewProducerWith wraps an existing sync producer, e.g. one from sarama/mocks.
func NewProducerWith(producer sarama.SyncProducer, log *slog.Logger) *Producer {
	return &Producer{producer: producer, log: log}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, payload any) error {
	if p.producer == nil {
		return fmt.Errorf("kafka producer is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	value, err := events.Encode(payload)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(value),
	}
	if key != "" {
		msg.Key = sarama.StringEncoder(key)
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.log.Error("failed to send message", slog.String("topic", topic), slog.String("error", err.Error()))
		return fmt.Errorf("failed to send message to topic %s: %w", topic, err)
	}

	p.log.Debug("message sent",
		slog.String("topic", topic),
		slog.String("key", key),
		slog.Int("partition", int(partition)),
		slog.Int64("offset", offset),
	)
	return nil
}

func (p *Producer) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
