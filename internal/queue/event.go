// Package queue carries fulfillment events between the mock backend and its
// background worker over RabbitMQ.
package queue

import "time"

// OrderPaidQueue is the durable queue order.paid events are published to.
const OrderPaidQueue = "order.paid"

// OrderPaidEvent is published when a payment provider confirms an order. It
// holds enough for the fulfillment worker to act without reading the order
// store first.
type OrderPaidEvent struct {
	OrderID       string    `json:"order_id"`
	UserID        string    `json:"user_id"`
	Provider      string    `json:"provider"`
	TransactionID string    `json:"transaction_id"`
	Total         string    `json:"total"`
	ItemCount     int       `json:"item_count"`
	PaidAt        time.Time `json:"paid_at"`
}
