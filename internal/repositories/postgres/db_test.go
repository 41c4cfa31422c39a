package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/alenjb/deli/internal/models"
	"github.com/alenjb/deli/internal/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lucsky/cuid"
)

// openTestDB connects to the database named by DELI_TEST_DATABASE_URL and skips otherwise.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("DELI_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("DELI_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	db := NewDB(pool)
	t.Cleanup(db.Close)

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestOrderAndSummaryRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	store := &models.Store{ID: cuid.New(), Name: "Kimbap Heaven", AvgPrepMinutes: 20, Location: models.Location{Lat: 37.5, Lon: 127.0}}
	if err := db.Stores().Create(ctx, store); err != nil {
		t.Fatalf("create store: %v", err)
	}

	eta := time.Date(2024, 5, 1, 12, 39, 0, 0, time.UTC)
	order := &models.Order{ID: cuid.New(), UserID: "u1", StoreID: store.ID, Status: models.DeliveryStatusAssigned, CreatedAt: eta.Add(-39 * time.Minute), Eta: eta}
	if err := db.Orders().Create(ctx, order); err != nil {
		t.Fatalf("create order: %v", err)
	}

	delivered, err := db.Orders().MarkDelivered(ctx, order.ID, eta.Add(6*time.Minute))
	if err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}
	if !delivered.IsDelayed() || delivered.Status != models.DeliveryStatusDelivered {
		t.Errorf("unexpected delivered order %+v", delivered)
	}
	if _, err := db.Orders().MarkDelivered(ctx, order.ID, eta); !errors.Is(err, models.ErrAlreadyDelivered) {
		t.Errorf("second MarkDelivered error = %v, want ErrAlreadyDelivered", err)
	}
	if _, err := db.Orders().MarkDelivered(ctx, cuid.New(), eta); !errors.Is(err, models.ErrOrderNotFound) {
		t.Errorf("unknown order error = %v, want ErrOrderNotFound", err)
	}

	found, err := db.Orders().FindByStoreDeliveredAfter(ctx, store.ID, time.Time{})
	if err != nil || len(found) != 1 {
		t.Fatalf("FindByStoreDeliveredAfter = %d orders, %v", len(found), err)
	}

	err = db.WithTx(ctx, func(tx repositories.Repositories) error {
		if _, err := tx.Summaries().Get(ctx, store.ID); !errors.Is(err, models.ErrSummaryNotFound) {
			t.Errorf("Get before save error = %v", err)
		}
		summary := models.NewStoreDelaySummary(store.ID, store.Name)
		summary.UpdateStats(models.DelayStats{Orders: 1, Delayed: 1, DelayMinutes: 6, LastDeliveredAt: *delivered.DeliveredAt})
		return tx.Summaries().Save(ctx, summary)
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}

	summary, err := db.Summaries().Get(ctx, store.ID)
	if err != nil {
		t.Fatalf("Get summary: %v", err)
	}
	if summary.TotalOrders != 1 || summary.TotalDelayMinutes != 6 || !summary.LastAnalyzedAt.Equal(*delivered.DeliveredAt) {
		t.Errorf("unexpected summary %+v", summary)
	}
}
