// Package orders owns the order lifecycle: creation with an ETA, ETA adjustments and
// delivery completion.
package orders

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alenjb/deli/internal/eta"
	"github.com/alenjb/deli/internal/events"
	"github.com/alenjb/deli/internal/models"
	"github.com/alenjb/deli/internal/repositories"
	"github.com/alenjb/deli/internal/stats"
	"github.com/google/uuid"
	"github.com/lucsky/cuid"
)

type Service struct {
	db               repositories.DB
	aggregator       *stats.Aggregator
	publisher        events.Publisher
	loc              *time.Location
	cookingCompleted time.Duration
	now              func() time.Time
	log              *slog.Logger
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(
	db repositories.DB,
	aggregator *stats.Aggregator,
	publisher events.Publisher,
	loc *time.Location,
	cookingCompletedMinutes int,
	log *slog.Logger,
	opts ...Option,
) *Service {
	if loc == nil {
		loc = time.Local
	}
	s := &Service{
		db:               db,
		aggregator:       aggregator,
		publisher:        publisher,
		loc:              loc,
		cookingCompleted: time.Duration(cookingCompletedMinutes) * time.Minute,
		now:              time.Now,
		log:              log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) clock() time.Time {
	return s.now().In(s.loc)
}

func (s *Service) MakeOrder(ctx context.Context, req models.OrderRequest) (*models.Order, error) {
	if strings.TrimSpace(req.StoreID) == "" || strings.TrimSpace(req.UserID) == "" {
		return nil, fmt.Errorf("%w: user_id and store_id are required", models.ErrInvalidRequest)
	}
	if req.EstimatedDeliveryTimeMinutes < 0 || req.DistanceKm < 0 {
		return nil, fmt.Errorf("%w: distance and transit time must not be negative", models.ErrInvalidRequest)
	}

	store, err := s.db.Stores().Get(ctx, req.StoreID)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	order := &models.Order{
		ID:         cuid.New(),
		UserID:     req.UserID,
		StoreID:    store.ID,
		DistanceKm: req.DistanceKm,
		Status:     models.DeliveryStatusAssigned,
		CreatedAt:  now,
		Eta:        eta.Calculate(store.AvgPrepMinutes, req.EstimatedDeliveryTimeMinutes, now),
	}
	if err := s.db.Orders().Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to save order: %w", err)
	}

	s.log.Info("order created",
		slog.String("action", "make_order"),
		slog.String("order_id", order.ID),
		slog.String("store_id", order.StoreID),
		slog.Bool("peak_time", eta.IsPeakTime(now)),
		slog.Time("eta", order.Eta),
	)
	return order, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	return s.db.Orders().Get(ctx, orderID)
}

// CompleteDelivery marks the order delivered and folds it into the store's delay summary
// in one transaction. A zero deliveredAt means now. Completing an order twice returns
// models.ErrAlreadyDelivered.
func (s *Service) CompleteDelivery(ctx context.Context, orderID string, deliveredAt time.Time) (*models.Order, *models.StoreDelaySummary, error) {
	if deliveredAt.IsZero() {
		deliveredAt = s.clock()
	}

	var (
		order   *models.Order
		summary *models.StoreDelaySummary
	)
	err := s.db.WithTx(ctx, func(tx repositories.Repositories) error {
		var err error
		order, err = tx.Orders().MarkDelivered(ctx, orderID, deliveredAt)
		if err != nil {
			return err
		}
		summary, err = s.aggregator.ApplyCompletedOrder(ctx, tx, order)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.log.Info("delivery completed",
		slog.String("action", "complete_delivery"),
		slog.String("order_id", order.ID),
		slog.String("store_id", order.StoreID),
		slog.Bool("delayed", order.IsDelayed()),
		slog.Int64("delay_minutes", order.DelayMinutes()),
	)
	return order, summary, nil
}

// ConfirmDelivery announces a completion on the delivery-status topic. The order is
// marked delivered when the event is consumed.
func (s *Service) ConfirmDelivery(ctx context.Context, orderID string, deliveredAt time.Time) (*models.DeliveryCompletedEvent, error) {
	order, err := s.db.Orders().Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.IsDelivered() {
		return nil, models.ErrAlreadyDelivered
	}
	if deliveredAt.IsZero() {
		deliveredAt = s.clock()
	}

	evt := &models.DeliveryCompletedEvent{
		EventID:     uuid.NewString(),
		OrderID:     order.ID,
		DeliveredAt: deliveredAt,
	}
	if err := s.publisher.Publish(ctx, models.TopicDeliveryStatus, order.ID, evt); err != nil {
		return nil, err
	}

	s.log.Info("delivery completion published",
		slog.String("action", "confirm_delivery"),
		slog.String("event_id", evt.EventID),
		slog.String("order_id", order.ID),
	)
	return evt, nil
}

// AdjustEtaByStore pushes the ETA back by the minutes the store asked for.
func (s *Service) AdjustEtaByStore(ctx context.Context, orderID string, additionalMinutes int, reason string) (*models.Order, error) {
	if additionalMinutes <= 0 {
		return nil, fmt.Errorf("%w: additional_minutes must be positive", models.ErrInvalidRequest)
	}
	if strings.TrimSpace(reason) == "" {
		reason = models.EtaReasonStoreRequest
	}
	return s.adjustEta(ctx, orderID, reason, func(o *models.Order) time.Time {
		return o.Eta.Add(time.Duration(additionalMinutes) * time.Minute)
	})
}

// AdjustEtaOnCookingCompleted resets the ETA to now plus the configured delivery leg.
func (s *Service) AdjustEtaOnCookingCompleted(ctx context.Context, orderID string) (*models.Order, error) {
	now := s.clock()
	return s.adjustEta(ctx, orderID, models.EtaReasonCookingCompleted, func(*models.Order) time.Time {
		return now.Add(s.cookingCompleted)
	})
}

func (s *Service) adjustEta(ctx context.Context, orderID, reason string, next func(*models.Order) time.Time) (*models.Order, error) {
	var order *models.Order
	err := s.db.WithTx(ctx, func(tx repositories.Repositories) error {
		var err error
		order, err = tx.Orders().Get(ctx, orderID)
		if err != nil {
			return err
		}
		if order.IsDelivered() {
			return models.ErrAlreadyDelivered
		}

		previous := order.Eta
		order.Eta = next(order)
		if err := tx.Orders().UpdateEta(ctx, order.ID, order.Eta); err != nil {
			return err
		}
		return tx.EtaHistory().Append(ctx, &models.EtaHistory{
			ID:          cuid.New(),
			OrderID:     order.ID,
			PreviousEta: previous,
			NewEta:      order.Eta,
			Reason:      reason,
			AdjustedAt:  s.clock(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("eta adjusted",
		slog.String("action", "adjust_eta"),
		slog.String("order_id", order.ID),
		slog.String("reason", reason),
		slog.Time("new_eta", order.Eta),
	)

	evt := models.EtaUpdatedEvent{OrderID: order.ID, UserID: order.UserID, NewEta: order.Eta}
	if err := s.publisher.Publish(ctx, models.TopicEtaUpdated, order.ID, evt); err != nil {
		// the adjustment is committed; subscribers catch up from the order itself
		s.log.Error("failed to publish eta update",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}
	return order, nil
}

func (s *Service) EtaHistory(ctx context.Context, orderID string) ([]*models.EtaHistory, error) {
	if _, err := s.db.Orders().Get(ctx, orderID); err != nil {
		return nil, err
	}
	return s.db.EtaHistory().GetByOrderID(ctx, orderID)
}
