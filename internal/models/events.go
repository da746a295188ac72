package models

import "time"

// Event types
const (
	EventTypeOrderPlaced = "ORDER_PLACED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent is published after an order document has been created.
// Amounts travel as decimal strings.
type OrderPlacedEvent struct {
	BaseEvent
	OrderID string           `json:"order_id"`
	UserID  string           `json:"user_id"`
	Amount  string           `json:"amount"`
	Items   []OrderItemEvent `json:"items"`
}

// OrderItemEvent is item data carried in order events
type OrderItemEvent struct {
	CoffeeID  string `json:"coffee_id"`
	Name      string `json:"name"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}
