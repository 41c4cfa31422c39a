// Package events defines the broker-neutral publish/consume contract. Implementations
// live in the kafka, rabbitmq and console subpackages.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type Message struct {
	Topic     string
	Key       string
	Value     []byte
	Timestamp time.Time
}

// Handler processes one message. Consumers acknowledge the message whatever the result;
// a returned error is only logged.
type Handler func(ctx context.Context, msg Message) error

type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload any) error
	Close() error
}

type Consumer interface {
	// Consume blocks, dispatching messages from topics to handler until ctx is done.
	Consume(ctx context.Context, topics []string, handler Handler) error
	Close() error
}

// Encode marshals payload to JSON. Byte slices pass through untouched.
func Encode(payload any) ([]byte, error) {
	if b, ok := payload.([]byte); ok {
		return b, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event: %w", err)
	}
	return b, nil
}
