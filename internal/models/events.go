package models

import "time"

type DeliveryCompletedEvent struct {
	EventID     string    `json:"event_id"`
	OrderID     string    `json:"order_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}

type EtaUpdatedEvent struct {
	OrderID string    `json:"order_id"`
	UserID  string    `json:"user_id"`
	NewEta  time.Time `json:"new_eta"`
}
