package models

import "time"

type Order struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	StoreID     string         `json:"store_id"`
	DistanceKm  float64        `json:"distance_km"`
	Status      DeliveryStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	Eta         time.Time      `json:"eta"`
	DeliveredAt *time.Time     `json:"delivered_at,omitempty"`
}

// IsDelivered reports whether a completion time has been recorded.
func (o Order) IsDelivered() bool {
	return o.DeliveredAt != nil
}

// IsDelayed reports whether the order arrived strictly later than ETA plus DelayThreshold.
// Orders without a completion time or without an ETA are never delayed.
func (o Order) IsDelayed() bool {
	if o.DeliveredAt == nil || o.Eta.IsZero() {
		return false
	}
	return o.DeliveredAt.After(o.Eta.Add(DelayThreshold))
}

// DelayMinutes is the whole number of minutes between ETA and delivery for a delayed
// order, and 0 otherwise.
func (o Order) DelayMinutes() int64 {
	if !o.IsDelayed() {
		return 0
	}
	return int64(o.DeliveredAt.Sub(o.Eta) / time.Minute)
}

type OrderRequest struct {
	UserID                       string  `json:"user_id"`
	StoreID                      string  `json:"store_id"`
	DistanceKm                   float64 `json:"distance_km"`
	EstimatedDeliveryTimeMinutes int     `json:"estimated_delivery_time_minutes"` // transit estimate from the maps provider
}

type OrderResponse struct {
	OrderID     string         `json:"order_id"`
	Status      DeliveryStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	DeliveredAt *time.Time     `json:"delivered_at"`
	StoreID     string         `json:"store_id"`
	Eta         time.Time      `json:"eta"`
}

func NewOrderResponse(o *Order) OrderResponse {
	return OrderResponse{
		OrderID:     o.ID,
		Status:      o.Status,
		CreatedAt:   o.CreatedAt,
		DeliveredAt: o.DeliveredAt,
		StoreID:     o.StoreID,
		Eta:         o.Eta,
	}
}
