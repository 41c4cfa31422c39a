// Package memory keeps every repository in process memory. It backs the "memory" storage
// option and the service tests.
package memory

import (
	"context"
	"sync"

	"github.com/alenjb/deli/internal/models"
	"github.com/alenjb/deli/internal/repositories"
)

type state struct {
	stores    map[string]models.Store
	orders    map[string]models.Order
	summaries map[string]models.StoreDelaySummary
	history   map[string][]models.EtaHistory
}

func newState() *state {
	return &state{
		stores:    make(map[string]models.Store),
		orders:    make(map[string]models.Order),
		summaries: make(map[string]models.StoreDelaySummary),
		history:   make(map[string][]models.EtaHistory),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.stores {
		c.stores[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = cloneOrder(v)
	}
	for k, v := range s.summaries {
		c.summaries[k] = v
	}
	for k, v := range s.history {
		c.history[k] = append([]models.EtaHistory(nil), v...)
	}
	return c
}

type DB struct {
	mu    sync.Mutex
	state *state
	repositories.Repositories
}

func NewDB() *DB {
	db := &DB{state: newState()}
	db.Repositories = &repos{db: db, lock: true}
	return db
}

// WithTx runs fn while holding the database lock. fn works on a copy of the data which
// replaces the original only when fn succeeds.
func (db *DB) WithTx(ctx context.Context, fn func(tx repositories.Repositories) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	original := db.state
	db.state = original.clone()
	if err := fn(&repos{db: db, lock: false}); err != nil {
		db.state = original
		return err
	}
	return nil
}

func (db *DB) Close() {}

// with runs fn against the current state, locking unless the caller is inside WithTx.
func (db *DB) with(lock bool, fn func(s *state) error) error {
	if lock {
		db.mu.Lock()
		defer db.mu.Unlock()
	}
	return fn(db.state)
}

type repos struct {
	db   *DB
	lock bool
}

func (r *repos) Stores() repositories.StoreRepository          { return &StoreRepository{r} }
func (r *repos) Orders() repositories.OrderRepository          { return &OrderRepository{r} }
func (r *repos) Summaries() repositories.SummaryRepository     { return &SummaryRepository{r} }
func (r *repos) EtaHistory() repositories.EtaHistoryRepository { return &EtaHistoryRepository{r} }

func (r *repos) with(fn func(s *state) error) error {
	return r.db.with(r.lock, fn)
}

func cloneOrder(o models.Order) models.Order {
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		o.DeliveredAt = &t
	}
	return o
}
