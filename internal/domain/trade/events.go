package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared/valueobject"
)

// Event type constants for order lifecycle events
const (
	EventTypeOrderPaid         = "OrderPaid"
	EventTypeShipmentDelivered = "ShipmentDelivered"
	EventTypeShipmentCancelled = "ShipmentCancelled"
	EventTypeOrderCancelled    = "OrderCancelled"
)

// AggregateTypeOrder is the aggregate type for order events
const AggregateTypeOrder = "Order"

// OrderPaidEvent is raised when a buyer's payment for an order clears
type OrderPaidEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID            `json:"order_id"`
	OrderNumber string               `json:"order_number"`
	BuyerID     uuid.UUID            `json:"buyer_id"`
	TotalAmount decimal.Decimal      `json:"total_amount"`
	Currency    valueobject.Currency `json:"currency"`
}

// EventType returns the event type name
func (e *OrderPaidEvent) EventType() string {
	return EventTypeOrderPaid
}

// NewOrderPaidEvent creates a new OrderPaidEvent
func NewOrderPaidEvent(order *Order) *OrderPaidEvent {
	return &OrderPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderPaid, AggregateTypeOrder, order.ID),
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		BuyerID:         order.BuyerID,
		TotalAmount:     order.TotalAmount,
		Currency:        order.Currency,
	}
}

// ShipmentDeliveredEvent is raised when a shipment is confirmed delivered
type ShipmentDeliveredEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID `json:"order_id"`
	ShipmentID  uuid.UUID `json:"shipment_id"`
	StoreID     uuid.UUID `json:"store_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// EventType returns the event type name
func (e *ShipmentDeliveredEvent) EventType() string {
	return EventTypeShipmentDelivered
}

// NewShipmentDeliveredEvent creates a new ShipmentDeliveredEvent
func NewShipmentDeliveredEvent(orderID, shipmentID, storeID uuid.UUID, deliveredAt time.Time) *ShipmentDeliveredEvent {
	return &ShipmentDeliveredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeShipmentDelivered, AggregateTypeOrder, orderID),
		OrderID:         orderID,
		ShipmentID:      shipmentID,
		StoreID:         storeID,
		DeliveredAt:     deliveredAt,
	}
}

// ShipmentCancelledEvent is raised when a single shipment is cancelled,
// triggering a refund of that shipment's escrowed funds
type ShipmentCancelledEvent struct {
	shared.BaseDomainEvent
	OrderID      uuid.UUID        `json:"order_id"`
	ShipmentID   uuid.UUID        `json:"shipment_id"`
	StoreID      uuid.UUID        `json:"store_id"`
	RefundAmount *decimal.Decimal `json:"refund_amount,omitempty"` // nil means full refund
	Reason       string           `json:"reason"`
}

// EventType returns the event type name
func (e *ShipmentCancelledEvent) EventType() string {
	return EventTypeShipmentCancelled
}

// NewShipmentCancelledEvent creates a new ShipmentCancelledEvent
func NewShipmentCancelledEvent(orderID, shipmentID, storeID uuid.UUID, refundAmount *decimal.Decimal, reason string) *ShipmentCancelledEvent {
	return &ShipmentCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeShipmentCancelled, AggregateTypeOrder, orderID),
		OrderID:         orderID,
		ShipmentID:      shipmentID,
		StoreID:         storeID,
		RefundAmount:    refundAmount,
		Reason:          reason,
	}
}

// OrderCancelledEvent is raised when an entire order is cancelled after payment
type OrderCancelledEvent struct {
	shared.BaseDomainEvent
	OrderID uuid.UUID `json:"order_id"`
	Reason  string    `json:"reason"`
}

// EventType returns the event type name
func (e *OrderCancelledEvent) EventType() string {
	return EventTypeOrderCancelled
}

// NewOrderCancelledEvent creates a new OrderCancelledEvent
func NewOrderCancelledEvent(orderID uuid.UUID, reason string) *OrderCancelledEvent {
	return &OrderCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCancelled, AggregateTypeOrder, orderID),
		OrderID:         orderID,
		Reason:          reason,
	}
}
