package models

import "time"

type StoreDelaySummary struct {
	StoreID           string    `json:"store_id"`
	StoreName         string    `json:"store_name"`
	TotalOrders       int       `json:"total_orders"`
	DelayedOrders     int       `json:"delayed_orders"`
	TotalDelayMinutes int64     `json:"total_delay_minutes"`
	LastAnalyzedAt    time.Time `json:"last_analyzed_at"` // latest delivery already folded in
}

// DelayStats is a contribution to a StoreDelaySummary: a number of completed orders, how
// many of them were delayed, their summed delay minutes and the latest delivery time seen.
type DelayStats struct {
	Orders          int
	Delayed         int
	DelayMinutes    int64
	LastDeliveredAt time.Time
}

// NewStoreDelaySummary returns an empty summary whose watermark sits at the zero time, so
// any delivery advances it.
func NewStoreDelaySummary(storeID, storeName string) *StoreDelaySummary {
	return &StoreDelaySummary{
		StoreID:   storeID,
		StoreName: storeName,
	}
}

// UpdateStats adds the contribution to the counters. The watermark only moves forward.
func (s *StoreDelaySummary) UpdateStats(d DelayStats) {
	s.TotalOrders += d.Orders
	s.DelayedOrders += d.Delayed
	s.TotalDelayMinutes += d.DelayMinutes
	if d.LastDeliveredAt.After(s.LastAnalyzedAt) {
		s.LastAnalyzedAt = d.LastDeliveredAt
	}
}

func (s StoreDelaySummary) DelayRate() float64 {
	if s.TotalOrders == 0 {
		return 0
	}
	return float64(s.DelayedOrders) / float64(s.TotalOrders)
}

func (s StoreDelaySummary) AvgDelayMinutes() float64 {
	if s.DelayedOrders == 0 {
		return 0
	}
	return float64(s.TotalDelayMinutes) / float64(s.DelayedOrders)
}

type StoreDelaySummaryResponse struct {
	StoreID           string    `json:"store_id"`
	StoreName         string    `json:"store_name"`
	TotalOrders       int       `json:"total_orders"`
	DelayedOrders     int       `json:"delayed_orders"`
	TotalDelayMinutes int64     `json:"total_delay_minutes"`
	DelayRate         float64   `json:"delay_rate"`
	AvgDelayMinutes   float64   `json:"avg_delay_minutes"`
	LastAnalyzedAt    time.Time `json:"last_analyzed_at"`
}

func NewStoreDelaySummaryResponse(s StoreDelaySummary) StoreDelaySummaryResponse {
	return StoreDelaySummaryResponse{
		StoreID:           s.StoreID,
		StoreName:         s.StoreName,
		TotalOrders:       s.TotalOrders,
		DelayedOrders:     s.DelayedOrders,
		TotalDelayMinutes: s.TotalDelayMinutes,
		DelayRate:         s.DelayRate(),
		AvgDelayMinutes:   s.AvgDelayMinutes(),
		LastAnalyzedAt:    s.LastAnalyzedAt,
	}
}
