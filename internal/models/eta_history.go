package models

import "time"

// EtaHistory is an append-only record of every ETA change applied to an order.
type EtaHistory struct {
	ID          string    `json:"id"`
	OrderID     string    `json:"order_id"`
	PreviousEta time.Time `json:"previous_eta"`
	NewEta      time.Time `json:"new_eta"`
	Reason      string    `json:"reason"`
	AdjustedAt  time.Time `json:"adjusted_at"`
}
