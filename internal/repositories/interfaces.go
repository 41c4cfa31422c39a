package repositories

import (
	"context"
	"time"

	"github.com/alenjb/deli/internal/models"
)

type StoreRepository interface {
	// Get returns models.ErrStoreNotFound when no store has the id.
	Get(ctx context.Context, id string) (*models.Store, error)
	GetAll(ctx context.Context) ([]*models.Store, error)
	Create(ctx context.Context, store *models.Store) error
	BulkCreate(ctx context.Context, stores []*models.Store) error
	Count(ctx context.Context) (int, error)
}

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	// Get returns models.ErrOrderNotFound when no order has the id.
	Get(ctx context.Context, id string) (*models.Order, error)
	// MarkDelivered records the completion time once. A second call for the same order
	// returns models.ErrAlreadyDelivered and leaves the stored time untouched.
	MarkDelivered(ctx context.Context, id string, deliveredAt time.Time) (*models.Order, error)
	UpdateEta(ctx context.Context, id string, eta time.Time) error
	// FindByStoreDeliveredAfter returns the store's orders delivered strictly after the watermark.
	FindByStoreDeliveredAfter(ctx context.Context, storeID string, after time.Time) ([]*models.Order, error)
	// FindDeliveredBetween returns orders delivered in [start, end).
	FindDeliveredBetween(ctx context.Context, start, end time.Time) ([]*models.Order, error)
}

type SummaryRepository interface {
	// Get returns models.ErrSummaryNotFound when the store has no summary yet.
	Get(ctx context.Context, storeID string) (*models.StoreDelaySummary, error)
	GetAll(ctx context.Context) ([]*models.StoreDelaySummary, error)
	// Save inserts or replaces the summary row.
	Save(ctx context.Context, summary *models.StoreDelaySummary) error
}

type EtaHistoryRepository interface {
	Append(ctx context.Context, entry *models.EtaHistory) error
	GetByOrderID(ctx context.Context, orderID string) ([]*models.EtaHistory, error)
}

// Repositories groups the repositories bound to one connection or transaction.
type Repositories interface {
	Stores() StoreRepository
	Orders() OrderRepository
	Summaries() SummaryRepository
	EtaHistory() EtaHistoryRepository
}

// DB hands out repositories and runs read-modify-write sequences inside one transaction.
// fn's error rolls the transaction back.
type DB interface {
	Repositories
	WithTx(ctx context.Context, fn func(tx Repositories) error) error
	Close()
}
