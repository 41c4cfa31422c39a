package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/alenjb/deli/internal/models"
)

type StoreRepository struct{ r *repos }

func (s *StoreRepository) Get(ctx context.Context, id string) (*models.Store, error) {
	var store models.Store
	err := s.r.with(func(st *state) error {
		v, ok := st.stores[id]
		if !ok {
			return models.ErrStoreNotFound
		}
		store = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &store, nil
}

func (s *StoreRepository) GetAll(ctx context.Context) ([]*models.Store, error) {
	var stores []*models.Store
	err := s.r.with(func(st *state) error {
		for _, v := range st.stores {
			store := v
			stores = append(stores, &store)
		}
		return nil
	})
	sort.Slice(stores, func(i, j int) bool {
		if stores[i].Name != stores[j].Name {
			return stores[i].Name < stores[j].Name
		}
		return stores[i].ID < stores[j].ID
	})
	return stores, err
}

func (s *StoreRepository) Create(ctx context.Context, store *models.Store) error {
	return s.BulkCreate(ctx, []*models.Store{store})
}

func (s *StoreRepository) BulkCreate(ctx context.Context, stores []*models.Store) error {
	return s.r.with(func(st *state) error {
		for _, store := range stores {
			if _, ok := st.stores[store.ID]; ok {
				return fmt.Errorf("store %s already exists", store.ID)
			}
		}
		for _, store := range stores {
			st.stores[store.ID] = *store
		}
		return nil
	})
}

func (s *StoreRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := s.r.with(func(st *state) error {
		count = len(st.stores)
		return nil
	})
	return count, err
}

type OrderRepository struct{ r *repos }

func (o *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	return o.r.with(func(st *state) error {
		if _, ok := st.orders[order.ID]; ok {
			return fmt.Errorf("order %s already exists", order.ID)
		}
		if _, ok := st.stores[order.StoreID]; !ok {
			return models.ErrStoreNotFound
		}
		st.orders[order.ID] = cloneOrder(*order)
		return nil
	})
}

func (o *OrderRepository) Get(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := o.r.with(func(st *state) error {
		v, ok := st.orders[id]
		if !ok {
			return models.ErrOrderNotFound
		}
		order = cloneOrder(v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (o *OrderRepository) MarkDelivered(ctx context.Context, id string, deliveredAt time.Time) (*models.Order, error) {
	var order models.Order
	err := o.r.with(func(st *state) error {
		v, ok := st.orders[id]
		if !ok {
			return models.ErrOrderNotFound
		}
		if v.DeliveredAt != nil {
			return models.ErrAlreadyDelivered
		}
		at := deliveredAt
		v.DeliveredAt = &at
		v.Status = models.DeliveryStatusDelivered
		st.orders[id] = v
		order = cloneOrder(v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (o *OrderRepository) UpdateEta(ctx context.Context, id string, eta time.Time) error {
	return o.r.with(func(st *state) error {
		v, ok := st.orders[id]
		if !ok {
			return models.ErrOrderNotFound
		}
		v.Eta = eta
		st.orders[id] = v
		return nil
	})
}

func (o *OrderRepository) FindByStoreDeliveredAfter(ctx context.Context, storeID string, after time.Time) ([]*models.Order, error) {
	return o.find(func(v models.Order) bool {
		return v.StoreID == storeID && v.DeliveredAt.After(after)
	})
}

func (o *OrderRepository) FindDeliveredBetween(ctx context.Context, start, end time.Time) ([]*models.Order, error) {
	return o.find(func(v models.Order) bool {
		return !v.DeliveredAt.Before(start) && v.DeliveredAt.Before(end)
	})
}

// find returns delivered orders matching keep, ordered like the SQL repository.
func (o *OrderRepository) find(keep func(models.Order) bool) ([]*models.Order, error) {
	var orders []*models.Order
	err := o.r.with(func(st *state) error {
		for _, v := range st.orders {
			if v.DeliveredAt == nil || !keep(v) {
				continue
			}
			order := cloneOrder(v)
			orders = append(orders, &order)
		}
		return nil
	})
	sort.Slice(orders, func(i, j int) bool {
		a, b := orders[i], orders[j]
		if a.StoreID != b.StoreID {
			return a.StoreID < b.StoreID
		}
		if !a.DeliveredAt.Equal(*b.DeliveredAt) {
			return a.DeliveredAt.Before(*b.DeliveredAt)
		}
		return a.ID < b.ID
	})
	return orders, err
}

type SummaryRepository struct{ r *repos }

func (s *SummaryRepository) Get(ctx context.Context, storeID string) (*models.StoreDelaySummary, error) {
	var summary models.StoreDelaySummary
	err := s.r.with(func(st *state) error {
		v, ok := st.summaries[storeID]
		if !ok {
			return models.ErrSummaryNotFound
		}
		summary = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *SummaryRepository) GetAll(ctx context.Context) ([]*models.StoreDelaySummary, error) {
	var summaries []*models.StoreDelaySummary
	err := s.r.with(func(st *state) error {
		for _, v := range st.summaries {
			summary := v
			summaries = append(summaries, &summary)
		}
		return nil
	})
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].StoreID < summaries[j].StoreID })
	return summaries, err
}

func (s *SummaryRepository) Save(ctx context.Context, summary *models.StoreDelaySummary) error {
	return s.r.with(func(st *state) error {
		st.summaries[summary.StoreID] = *summary
		return nil
	})
}

type EtaHistoryRepository struct{ r *repos }

func (h *EtaHistoryRepository) Append(ctx context.Context, entry *models.EtaHistory) error {
	return h.r.with(func(st *state) error {
		if _, ok := st.orders[entry.OrderID]; !ok {
			return models.ErrOrderNotFound
		}
		st.history[entry.OrderID] = append(st.history[entry.OrderID], *entry)
		return nil
	})
}

func (h *EtaHistoryRepository) GetByOrderID(ctx context.Context, orderID string) ([]*models.EtaHistory, error) {
	var entries []*models.EtaHistory
	err := h.r.with(func(st *state) error {
		for _, v := range st.history[orderID] {
			entry := v
			entries = append(entries, &entry)
		}
		return nil
	})
	return entries, err
}
