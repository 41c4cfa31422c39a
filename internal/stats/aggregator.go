// Package stats maintains the per-store delay summaries.
//
// Every path that changes a summary goes through models.StoreDelaySummary.UpdateStats:
// counters are added and the watermark only moves forward, so applying N single-order
// contributions gives the same summary as applying their aggregate once.
package stats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/alenjb/deli/internal/models"
	"github.com/alenjb/deli/internal/repositories"
)

type Aggregator struct {
	db  repositories.DB
	log *slog.Logger
}

func NewAggregator(db repositories.DB, log *slog.Logger) *Aggregator {
	return &Aggregator{db: db, log: log}
}

// Contribution is what a single delivered order adds to its store's summary.
func Contribution(order *models.Order) models.DelayStats {
	if order == nil || order.DeliveredAt == nil {
		return models.DelayStats{}
	}
	stats := models.DelayStats{
		Orders:          1,
		LastDeliveredAt: *order.DeliveredAt,
	}
	if order.IsDelayed() {
		stats.Delayed = 1
		stats.DelayMinutes = order.DelayMinutes()
	}
	return stats
}

// Aggregate sums the contributions of orders. Undelivered orders are ignored.
func Aggregate(orders []*models.Order) models.DelayStats {
	var total models.DelayStats
	for _, order := range orders {
		c := Contribution(order)
		total.Orders += c.Orders
		total.Delayed += c.Delayed
		total.DelayMinutes += c.DelayMinutes
		if c.LastDeliveredAt.After(total.LastDeliveredAt) {
			total.LastDeliveredAt = c.LastDeliveredAt
		}
	}
	return total
}

func validate(stats models.DelayStats) error {
	if stats.Orders < 0 || stats.Delayed < 0 || stats.DelayMinutes < 0 {
		return fmt.Errorf("%w: negative delay stats %+v", models.ErrInvalidRequest, stats)
	}
	if stats.Delayed > stats.Orders {
		return fmt.Errorf("%w: %d delayed out of %d orders", models.ErrInvalidRequest, stats.Delayed, stats.Orders)
	}
	return nil
}

// ProcessCompletedOrder folds one delivered order into its store's summary, creating the
// summary on first use.
func (a *Aggregator) ProcessCompletedOrder(ctx context.Context, order *models.Order) (*models.StoreDelaySummary, error) {
	var summary *models.StoreDelaySummary
	err := a.db.WithTx(ctx, func(tx repositories.Repositories) error {
		var err error
		summary, err = a.ApplyCompletedOrder(ctx, tx, order)
		return err
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// ApplyCompletedOrder is ProcessCompletedOrder for callers that already hold a transaction,
// so marking the order delivered and counting it commit together.
func (a *Aggregator) ApplyCompletedOrder(ctx context.Context, tx repositories.Repositories, order *models.Order) (*models.StoreDelaySummary, error) {
	if order == nil || order.DeliveredAt == nil {
		return nil, fmt.Errorf("%w: order is not delivered", models.ErrInvalidRequest)
	}

	summary, err := getOrCreate(ctx, tx, order.StoreID)
	if err != nil {
		return nil, err
	}

	contribution := Contribution(order)
	summary.UpdateStats(contribution)
	if err := tx.Summaries().Save(ctx, summary); err != nil {
		return nil, fmt.Errorf("failed to save delay summary for store %s: %w", order.StoreID, err)
	}

	a.log.Debug("delay summary updated",
		slog.String("action", "process_completed_order"),
		slog.String("store_id", order.StoreID),
		slog.String("order_id", order.ID),
		slog.Bool("delayed", contribution.Delayed == 1),
		slog.Int64("delay_minutes", contribution.DelayMinutes),
	)
	return summary, nil
}

// UpdateDelayStats refreshes a store's summary from the orders delivered after its
// watermark. It reports whether anything was applied.
func (a *Aggregator) UpdateDelayStats(ctx context.Context, storeID string) (*models.StoreDelaySummary, bool, error) {
	var (
		summary *models.StoreDelaySummary
		applied bool
	)
	err := a.db.WithTx(ctx, func(tx repositories.Repositories) error {
		var err error
		summary, err = getOrCreate(ctx, tx, storeID)
		if err != nil {
			return err
		}

		orders, err := tx.Orders().FindByStoreDeliveredAfter(ctx, storeID, summary.LastAnalyzedAt)
		if err != nil {
			return fmt.Errorf("failed to load orders for store %s: %w", storeID, err)
		}
		if len(orders) == 0 {
			return nil
		}

		summary.UpdateStats(Aggregate(orders))
		if err := tx.Summaries().Save(ctx, summary); err != nil {
			return fmt.Errorf("failed to save delay summary for store %s: %w", storeID, err)
		}
		applied = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if applied {
		a.log.Info("delay summary refreshed",
			slog.String("action", "update_delay_stats"),
			slog.String("store_id", storeID),
			slog.Int("total_orders", summary.TotalOrders),
			slog.Int("delayed_orders", summary.DelayedOrders),
		)
	}
	return summary, applied, nil
}

// Update applies precomputed stats to an existing summary. It never creates one.
func (a *Aggregator) Update(ctx context.Context, storeID string, stats models.DelayStats) (*models.StoreDelaySummary, error) {
	if err := validate(stats); err != nil {
		return nil, err
	}

	var summary *models.StoreDelaySummary
	err := a.db.WithTx(ctx, func(tx repositories.Repositories) error {
		var err error
		summary, err = tx.Summaries().Get(ctx, storeID)
		if err != nil {
			return err
		}
		summary.UpdateStats(stats)
		if err := tx.Summaries().Save(ctx, summary); err != nil {
			return fmt.Errorf("failed to save delay summary for store %s: %w", storeID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (a *Aggregator) GetStoreSummary(ctx context.Context, storeID string) (*models.StoreDelaySummary, error) {
	return a.db.Summaries().Get(ctx, storeID)
}

// GetStoreRanking lists every summary by delay rate, highest first. Ties keep store id order.
func (a *Aggregator) GetStoreRanking(ctx context.Context) ([]*models.StoreDelaySummary, error) {
	summaries, err := a.db.Summaries().GetAll(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].DelayRate() > summaries[j].DelayRate()
	})
	return summaries, nil
}

func getOrCreate(ctx context.Context, tx repositories.Repositories, storeID string) (*models.StoreDelaySummary, error) {
	summary, err := tx.Summaries().Get(ctx, storeID)
	if err == nil {
		return summary, nil
	}
	if !errors.Is(err, models.ErrSummaryNotFound) {
		return nil, err
	}

	store, err := tx.Stores().Get(ctx, storeID)
	if err != nil {
		return nil, err
	}
	return models.NewStoreDelaySummary(store.ID, store.Name), nil
}
