package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alenjb/deli/internal/logger"
	"github.com/alenjb/deli/internal/models"
	"github.com/alenjb/deli/internal/report"
	"github.com/alenjb/deli/internal/repositories/memory"
	"github.com/alenjb/deli/internal/stats"
	"github.com/google/go-cmp/cmp"
)

var seoul = time.FixedZone("KST", 9*60*60)

func kst(day, hour, minute int) time.Time {
	return time.Date(2024, 5, day, hour, minute, 0, 0, seoul)
}

type recordingReporter struct {
	day  time.Time
	rows []report.Row
}

func (r *recordingReporter) Write(ctx context.Context, day time.Time, rows []report.Row) (string, error) {
	r.day, r.rows = day, rows
	return "memory", nil
}

type fixture struct {
	db  *memory.DB
	agg *stats.Aggregator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memory.NewDB()
	err := db.Stores().BulkCreate(context.Background(), []*models.Store{
		{ID: "s1", Name: "Kimbap Heaven", AvgPrepMinutes: 20},
		{ID: "s2", Name: "Pho Corner", AvgPrepMinutes: 15},
		{ID: "s3", Name: "Taco Stand", AvgPrepMinutes: 10},
	})
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{db: db, agg: stats.NewAggregator(db, logger.Discard())}
}

// deliver stores an order with the given eta and delivery time.
func (f *fixture) deliver(t *testing.T, id, store string, eta, deliveredAt time.Time) *models.Order {
	t.Helper()
	ctx := context.Background()
	if err := f.db.Orders().Create(ctx, &models.Order{ID: id, StoreID: store, Status: models.DeliveryStatusAssigned, Eta: eta}); err != nil {
		t.Fatalf("create %s: %v", id, err)
	}
	order, err := f.db.Orders().MarkDelivered(ctx, id, deliveredAt)
	if err != nil {
		t.Fatalf("deliver %s: %v", id, err)
	}
	return order
}

func TestWindow(t *testing.T) {
	start, end := Window(kst(2, 0, 0), seoul)
	if !start.Equal(kst(1, 0, 0)) || !end.Equal(kst(2, 0, 0)) {
		t.Errorf("window = [%v, %v)", start, end)
	}

	// 2024-05-01 20:00 UTC is already May 2nd in Seoul
	start, end = Window(time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC), seoul)
	if !start.Equal(kst(1, 0, 0)) || !end.Equal(kst(2, 0, 0)) {
		t.Errorf("window across zones = [%v, %v)", start, end)
	}
}

func TestNightlyRun(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// summaries for s1 and s2 exist from earlier activity
	earlier := time.Date(2024, 4, 30, 12, 0, 0, 0, seoul)
	for _, o := range []*models.Order{
		f.deliver(t, "old1", "s1", earlier, earlier),
		f.deliver(t, "old2", "s2", earlier, earlier),
	} {
		if _, err := f.agg.ProcessCompletedOrder(ctx, o); err != nil {
			t.Fatal(err)
		}
	}
	s2Before, _ := f.db.Summaries().Get(ctx, "s2")

	f.deliver(t, "a", "s1", kst(1, 12, 39), kst(1, 12, 45)) // delayed, 6 minutes
	f.deliver(t, "b", "s1", kst(1, 19, 0), kst(1, 19, 5))   // exactly eta+5, on time
	f.deliver(t, "c", "s3", kst(1, 13, 0), kst(1, 13, 10))  // s3 has no summary
	f.deliver(t, "d", "s2", kst(2, 0, 30), kst(2, 0, 40))   // today, outside the window

	reporter := &recordingReporter{}
	job := NewNightlyJob(f.db, f.agg, seoul, false, reporter, logger.Discard())

	result, err := job.Run(ctx, kst(2, 0, 0))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.Stores) != 2 || result.Failed() != 1 {
		t.Fatalf("results = %+v", result.Stores)
	}
	s1 := result.Stores[0]
	if s1.StoreID != "s1" || s1.Err != nil {
		t.Fatalf("first result = %+v", s1)
	}
	want := models.DelayStats{Orders: 2, Delayed: 1, DelayMinutes: 6, LastDeliveredAt: kst(1, 19, 5)}
	if diff := cmp.Diff(want, s1.Stats); diff != "" {
		t.Errorf("s1 stats mismatch (-want +got):\n%s", diff)
	}
	if s1.Summary.TotalOrders != 3 || s1.Summary.DelayedOrders != 1 {
		t.Errorf("s1 summary = %+v", s1.Summary)
	}

	s3 := result.Stores[1]
	if s3.StoreID != "s3" || !errors.Is(s3.Err, models.ErrSummaryNotFound) {
		t.Errorf("s3 result = %+v, want ErrSummaryNotFound", s3)
	}

	s2After, _ := f.db.Summaries().Get(ctx, "s2")
	if diff := cmp.Diff(s2Before, s2After); diff != "" {
		t.Errorf("store without deliveries was touched (-before +after):\n%s", diff)
	}

	if !reporter.day.Equal(kst(1, 0, 0)) || len(reporter.rows) != 2 {
		t.Fatalf("report day=%v rows=%+v", reporter.day, reporter.rows)
	}
	if reporter.rows[0].Outcome != "updated" || reporter.rows[0].DelayRate != 0.5 || reporter.rows[0].StoreName != "Kimbap Heaven" {
		t.Errorf("s1 row = %+v", reporter.rows[0])
	}
	if reporter.rows[1].Outcome != "failed" || reporter.rows[1].Error == "" {
		t.Errorf("s3 row = %+v", reporter.rows[1])
	}
}

func TestNightlyRunEmptyDay(t *testing.T) {
	f := newFixture(t)
	reporter := &recordingReporter{}
	job := NewNightlyJob(f.db, f.agg, seoul, false, reporter, logger.Discard())

	result, err := job.Run(context.Background(), kst(2, 0, 0))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Stores) != 0 {
		t.Errorf("results = %+v, want none", result.Stores)
	}
	if reporter.rows != nil {
		t.Error("report written for an empty day")
	}
}

func TestNightlyRunSkipAnalyzed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.deliver(t, "a", "s1", kst(1, 12, 0), kst(1, 12, 30))
	if _, err := f.agg.ProcessCompletedOrder(ctx, first); err != nil {
		t.Fatal(err)
	}
	f.deliver(t, "b", "s1", kst(1, 18, 0), kst(1, 18, 2))

	job := NewNightlyJob(f.db, f.agg, seoul, true, nil, logger.Discard())
	result, err := job.Run(ctx, kst(2, 0, 0))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Stores) != 1 || result.Stores[0].Stats.Orders != 1 {
		t.Fatalf("results = %+v, want only the unanalyzed order", result.Stores)
	}

	summary, _ := f.db.Summaries().Get(ctx, "s1")
	if summary.TotalOrders != 2 || summary.DelayedOrders != 1 || summary.TotalDelayMinutes != 30 {
		t.Errorf("summary = %+v", summary)
	}
}
