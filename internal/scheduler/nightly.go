// Package scheduler runs the nightly delay aggregation over the previous day's deliveries.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/alenjb/deli/internal/models"
	"github.com/alenjb/deli/internal/report"
	"github.com/alenjb/deli/internal/repositories"
	"github.com/alenjb/deli/internal/stats"
)

// Reporter receives one row per processed store after each run.
type Reporter interface {
	Write(ctx context.Context, day time.Time, rows []report.Row) (string, error)
}

type StoreResult struct {
	StoreID string
	Stats   models.DelayStats
	Summary *models.StoreDelaySummary // nil when the update failed
	Err     error
}

type Result struct {
	Start, End time.Time
	Stores     []StoreResult
}

func (r *Result) Failed() int {
	n := 0
	for _, s := range r.Stores {
		if s.Err != nil {
			n++
		}
	}
	return n
}

type NightlyJob struct {
	db           repositories.DB
	aggregator   *stats.Aggregator
	loc          *time.Location
	skipAnalyzed bool
	reporter     Reporter
	log          *slog.Logger
}

func NewNightlyJob(db repositories.DB, aggregator *stats.Aggregator, loc *time.Location, skipAnalyzed bool, reporter Reporter, log *slog.Logger) *NightlyJob {
	if loc == nil {
		loc = time.Local
	}
	return &NightlyJob{
		db:           db,
		aggregator:   aggregator,
		loc:          loc,
		skipAnalyzed: skipAnalyzed,
		reporter:     reporter,
		log:          log,
	}
}

// Window returns [yesterday 00:00, today 00:00) in loc for the day containing now.
func Window(now time.Time, loc *time.Location) (start, end time.Time) {
	now = now.In(loc)
	end = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	start = time.Date(now.Year(), now.Month(), now.Day()-1, 0, 0, 0, 0, loc)
	return start, end
}

// Run aggregates the deliveries of the day before now, store by store. A failing store is
// logged and recorded in the result; the remaining stores are still processed.
func (j *NightlyJob) Run(ctx context.Context, now time.Time) (*Result, error) {
	start, end := Window(now, j.loc)
	log := j.log.With(slog.String("action", "nightly_aggregation"), slog.String("day", start.Format(time.DateOnly)))
	log.Info("nightly delay aggregation started")

	orders, err := j.db.Orders().FindDeliveredBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load deliveries between %s and %s: %w", start, end, err)
	}

	byStore := make(map[string][]*models.Order)
	for _, o := range orders {
		byStore[o.StoreID] = append(byStore[o.StoreID], o)
	}
	storeIDs := make([]string, 0, len(byStore))
	for id := range byStore {
		storeIDs = append(storeIDs, id)
	}
	sort.Strings(storeIDs)

	result := &Result{Start: start, End: end}
	for _, storeID := range storeIDs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		storeOrders, err := j.pending(ctx, storeID, byStore[storeID])
		if err != nil {
			log.Error("failed to read delay summary", slog.String("store_id", storeID), slog.String("error", err.Error()))
			result.Stores = append(result.Stores, StoreResult{StoreID: storeID, Err: err})
			continue
		}

		delayStats := stats.Aggregate(storeOrders)
		if delayStats.Orders == 0 {
			continue
		}

		summary, err := j.aggregator.Update(ctx, storeID, delayStats)
		result.Stores = append(result.Stores, StoreResult{StoreID: storeID, Stats: delayStats, Summary: summary, Err: err})
		if err != nil {
			log.Error("failed to update store delay stats", slog.String("store_id", storeID), slog.String("error", err.Error()))
			continue
		}

		log.Info("store delay stats updated",
			slog.String("store_id", storeID),
			slog.Int("orders", delayStats.Orders),
			slog.Int("delayed", delayStats.Delayed),
			slog.String("delay_rate", fmt.Sprintf("%.2f%%", summary.DelayRate()*100)),
		)
	}

	log.Info("nightly delay aggregation finished",
		slog.Int("stores_scanned", len(result.Stores)),
		slog.Int("stores_failed", result.Failed()),
	)

	if j.reporter != nil && len(result.Stores) > 0 {
		if _, err := j.reporter.Write(ctx, start, rows(start, result)); err != nil {
			log.Error("failed to write nightly report", slog.String("error", err.Error()))
		}
	}
	return result, nil
}

// pending drops orders the store's summary has already counted when skipAnalyzed is set.
func (j *NightlyJob) pending(ctx context.Context, storeID string, orders []*models.Order) ([]*models.Order, error) {
	if !j.skipAnalyzed {
		return orders, nil
	}
	summary, err := j.db.Summaries().Get(ctx, storeID)
	if errors.Is(err, models.ErrSummaryNotFound) {
		return orders, nil
	}
	if err != nil {
		return nil, err
	}

	var out []*models.Order
	for _, o := range orders {
		if o.DeliveredAt.After(summary.LastAnalyzedAt) {
			out = append(out, o)
		}
	}
	return out, nil
}

func rows(day time.Time, result *Result) []report.Row {
	out := make([]report.Row, 0, len(result.Stores))
	for _, s := range result.Stores {
		row := report.Row{
			Day:          day.Format(time.DateOnly),
			StoreID:      s.StoreID,
			Orders:       int32(s.Stats.Orders),
			Delayed:      int32(s.Stats.Delayed),
			DelayMinutes: s.Stats.DelayMinutes,
			Outcome:      "updated",
		}
		if s.Stats.Orders > 0 {
			row.DelayRate = float64(s.Stats.Delayed) / float64(s.Stats.Orders)
		}
		if s.Summary != nil {
			row.StoreName = s.Summary.StoreName
			row.TotalOrders = int32(s.Summary.TotalOrders)
			row.TotalDelayed = int32(s.Summary.DelayedOrders)
		}
		if s.Err != nil {
			row.Outcome = "failed"
			row.Error = s.Err.Error()
		}
		out = append(out, row)
	}
	return out
}
