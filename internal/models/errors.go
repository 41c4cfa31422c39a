package models

import "errors"

var (
	ErrStoreNotFound    = errors.New("store not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrSummaryNotFound  = errors.New("delay summary not found")
	ErrAlreadyDelivered = errors.New("order already delivered")
	ErrInvalidRequest   = errors.New("invalid request")
)
