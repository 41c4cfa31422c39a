package factories

import (
	"math/rand"
	"time"

	"github.com/alenjb/deli/internal/eta"
	"github.com/alenjb/deli/internal/models"
	"github.com/lucsky/cuid"
)

type OrderFactory struct{}

// CreateOrder builds an undelivered order for store as if it had been placed at createdAt.
func (of *OrderFactory) CreateOrder(store *models.Store, createdAt time.Time) *models.Order {
	transit := fake.IntBetween(5, 40)
	return &models.Order{
		ID:         cuid.New(),
		UserID:     cuid.New(),
		StoreID:    store.ID,
		DistanceKm: fake.Float64(1, 0, 8),
		Status:     models.DeliveryStatusAssigned,
		CreatedAt:  createdAt,
		Eta:        eta.Calculate(store.AvgPrepMinutes, transit, createdAt),
	}
}

// DeliveryTime picks when order arrives. With probability lateRatio it lands past the
// delay threshold, otherwise anywhere from 10 minutes early up to the threshold.
func (of *OrderFactory) DeliveryTime(order *models.Order, lateRatio float64) time.Time {
	if rand.Float64() < lateRatio {
		return order.Eta.Add(models.DelayThreshold + time.Duration(fake.IntBetween(1, 40))*time.Minute)
	}
	return order.Eta.Add(time.Duration(fake.IntBetween(-10, 5)) * time.Minute)
}
