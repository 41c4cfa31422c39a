package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alenjb/deli/internal/models"
	"github.com/alenjb/deli/internal/repositories"
	"github.com/google/go-cmp/cmp"
)

func seed(t *testing.T) *DB {
	t.Helper()
	db := NewDB()
	ctx := context.Background()
	if err := db.Stores().Create(ctx, &models.Store{ID: "s1", Name: "Kimbap", AvgPrepMinutes: 20}); err != nil {
		t.Fatalf("create store: %v", err)
	}
	order := &models.Order{
		ID:        "o1",
		StoreID:   "s1",
		Status:    models.DeliveryStatusAssigned,
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Eta:       time.Date(2024, 5, 1, 12, 39, 0, 0, time.UTC),
	}
	if err := db.Orders().Create(ctx, order); err != nil {
		t.Fatalf("create order: %v", err)
	}
	return db
}

func TestMarkDeliveredIsSingleShot(t *testing.T) {
	db := seed(t)
	ctx := context.Background()
	first := time.Date(2024, 5, 1, 12, 45, 0, 0, time.UTC)

	order, err := db.Orders().MarkDelivered(ctx, "o1", first)
	if err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}
	if order.Status != models.DeliveryStatusDelivered || !order.DeliveredAt.Equal(first) {
		t.Fatalf("unexpected order after delivery: %+v", order)
	}

	_, err = db.Orders().MarkDelivered(ctx, "o1", first.Add(time.Hour))
	if !errors.Is(err, models.ErrAlreadyDelivered) {
		t.Fatalf("second MarkDelivered error = %v, want ErrAlreadyDelivered", err)
	}

	stored, _ := db.Orders().Get(ctx, "o1")
	if !stored.DeliveredAt.Equal(first) {
		t.Errorf("delivered at changed to %v", stored.DeliveredAt)
	}

	if _, err := db.Orders().MarkDelivered(ctx, "missing", first); !errors.Is(err, models.ErrOrderNotFound) {
		t.Errorf("missing order error = %v, want ErrOrderNotFound", err)
	}
}

func TestGetReturnsCopies(t *testing.T) {
	db := seed(t)
	ctx := context.Background()

	order, _ := db.Orders().Get(ctx, "o1")
	order.Eta = time.Time{}

	stored, _ := db.Orders().Get(ctx, "o1")
	if stored.Eta.IsZero() {
		t.Error("mutating a returned order changed the stored one")
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := seed(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.WithTx(ctx, func(tx repositories.Repositories) error {
		summary := models.NewStoreDelaySummary("s1", "Kimbap")
		summary.TotalOrders = 3
		if err := tx.Summaries().Save(ctx, summary); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx error = %v, want boom", err)
	}
	if _, err := db.Summaries().Get(ctx, "s1"); !errors.Is(err, models.ErrSummaryNotFound) {
		t.Errorf("summary survived rollback: err = %v", err)
	}

	err = db.WithTx(ctx, func(tx repositories.Repositories) error {
		return tx.Summaries().Save(ctx, models.NewStoreDelaySummary("s1", "Kimbap"))
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}
	if _, err := db.Summaries().Get(ctx, "s1"); err != nil {
		t.Errorf("committed summary missing: %v", err)
	}
}

func TestDeliveredQueries(t *testing.T) {
	db := NewDB()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	_ = db.Stores().BulkCreate(ctx, []*models.Store{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}})
	add := func(id, store string, delivered *time.Time) {
		t.Helper()
		if err := db.Orders().Create(ctx, &models.Order{ID: id, StoreID: store, Eta: base}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
		if delivered != nil {
			if _, err := db.Orders().MarkDelivered(ctx, id, *delivered); err != nil {
				t.Fatalf("deliver %s: %v", id, err)
			}
		}
	}
	at := func(h int) *time.Time {
		v := base.Add(time.Duration(h) * time.Hour)
		return &v
	}
	add("a1", "a", at(1))
	add("a2", "a", at(23))
	add("a3", "a", at(24)) // next day, excluded by the half-open window
	add("b1", "b", at(5))
	add("b2", "b", nil)

	ids := func(orders []*models.Order) []string {
		var out []string
		for _, o := range orders {
			out = append(out, o.ID)
		}
		return out
	}

	between, err := db.Orders().FindDeliveredBetween(ctx, base, base.Add(24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a1", "a2", "b1"}, ids(between)); diff != "" {
		t.Errorf("FindDeliveredBetween mismatch (-want +got):\n%s", diff)
	}

	after, err := db.Orders().FindByStoreDeliveredAfter(ctx, "a", *at(1))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a2", "a3"}, ids(after)); diff != "" {
		t.Errorf("FindByStoreDeliveredAfter mismatch (-want +got):\n%s", diff)
	}
}
