package kafka

import "time"

// EventType определяет тип публикуемого события.
type EventType string

const (
	EventTypeOrderCreated   EventType = "order.created"
	EventTypeOrderConfirmed EventType = "order.confirmed"
	EventTypeOrderCanceled  EventType = "order.canceled"
)

// Topics для Kafka
const (
	TopicOrderEvents = "orderhub.order.events"
)

// OrderEvent представляет событие жизненного цикла заказа.
type OrderEvent struct {
	EventType   EventType `json:"event_type"`
	OrderID     string    `json:"order_id"`
	CustomerID  string    `json:"customer_id"`
	Status      string    `json:"status"`
	AmountMinor int64     `json:"amount_minor"`
	Reason      string    `json:"reason,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewOrderEvent создает новое событие заказа.
func NewOrderEvent(eventType EventType, orderID, customerID, status string, amountMinor int64) *OrderEvent {
	return &OrderEvent{
		EventType:   eventType,
		OrderID:     orderID,
		CustomerID:  customerID,
		Status:      status,
		AmountMinor: amountMinor,
		Timestamp:   time.Now().UTC(),
	}
}
