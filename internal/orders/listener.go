package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alenjb/deli/internal/events"
	"github.com/alenjb/deli/internal/models"
)

// CompletionListener applies delivery-completion events from the delivery-status topic.
type CompletionListener struct {
	service *Service
	log     *slog.Logger
}

func NewCompletionListener(service *Service, log *slog.Logger) *CompletionListener {
	return &CompletionListener{service: service, log: log}
}

// Run consumes until ctx is done.
func (l *CompletionListener) Run(ctx context.Context, consumer events.Consumer) error {
	l.log.Info("listening for delivery completions", slog.String("topic", models.TopicDeliveryStatus))
	return consumer.Consume(ctx, []string{models.TopicDeliveryStatus}, l.Handle)
}

// Handle processes one completion event. Events for unknown orders and repeated
// completions are logged and dropped.
func (l *CompletionListener) Handle(ctx context.Context, msg events.Message) error {
	start := time.Now()

	var evt models.DeliveryCompletedEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		return fmt.Errorf("invalid completion event: %w", err)
	}
	if evt.OrderID == "" {
		return fmt.Errorf("invalid completion event: missing order_id")
	}

	log := l.log.With(slog.String("event_id", evt.EventID), slog.String("order_id", evt.OrderID))

	_, summary, err := l.service.CompleteDelivery(ctx, evt.OrderID, evt.DeliveredAt)
	switch {
	case errors.Is(err, models.ErrAlreadyDelivered):
		log.Info("duplicate completion dropped")
		return nil
	case errors.Is(err, models.ErrOrderNotFound), errors.Is(err, models.ErrStoreNotFound):
		log.Warn("completion dropped", slog.String("error", err.Error()))
		return nil
	case err != nil:
		return err
	}

	log.Info("delivery completion processed",
		slog.String("store_id", summary.StoreID),
		slog.Int("total_orders", summary.TotalOrders),
		slog.Int("delayed_orders", summary.DelayedOrders),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return nil
}
