package models

import "time"

type DeliveryStatus string

const (
	DeliveryStatusAssigned  DeliveryStatus = "ASSIGNED"
	DeliveryStatusPickedUp  DeliveryStatus = "PICKED_UP"
	DeliveryStatusDelivered DeliveryStatus = "DELIVERED"
)

// Message returns the human readable label shown to customers.
func (s DeliveryStatus) Message() string {
	switch s {
	case DeliveryStatusAssigned:
		return "preparing for delivery"
	case DeliveryStatusPickedUp:
		return "out for delivery"
	case DeliveryStatusDelivered:
		return "delivered"
	default:
		return string(s)
	}
}

const (
	// DelayThreshold is how late past the ETA a delivery may arrive before it counts as delayed.
	DelayThreshold = 5 * time.Minute

	TopicDeliveryStatus = "delivery-status"
	TopicEtaUpdated     = "eta-updated"

	EtaReasonStoreRequest     = "store_request"
	EtaReasonCookingCompleted = "cooking_completed"
)
