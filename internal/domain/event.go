package domain

import "time"

// Event describes one order state transition.
type Event struct {
	OrderID string      `json:"orderId"`
	Status  OrderStatus `json:"status"`
	Receipt *Receipt    `json:"receipt,omitempty"`
	Error   string      `json:"error,omitempty"`
	At      time.Time   `json:"at"`
}
