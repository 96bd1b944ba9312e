package escrow

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared/valueobject"
)

// Event type constants for the escrow aggregate
const (
	EventTypeEscrowCreated       = "EscrowCreated"
	EventTypeAllocationEligible  = "EscrowAllocationEligible"
	EventTypeAllocationRefunded  = "EscrowAllocationRefunded"
	EventTypeAllocationsReleased = "EscrowAllocationsReleased"
)

// AggregateTypeEscrowPayment is the aggregate type for escrow events
const AggregateTypeEscrowPayment = "EscrowPayment"

// EscrowCreatedEvent is raised when escrow is created for a paid order
type EscrowCreatedEvent struct {
	shared.BaseDomainEvent
	OrderID         uuid.UUID            `json:"order_id"`
	OrderNumber     string               `json:"order_number"`
	TotalAmount     decimal.Decimal      `json:"total_amount"`
	Currency        valueobject.Currency `json:"currency"`
	AllocationCount int                  `json:"allocation_count"`
}

// EventType returns the event type name
func (e *EscrowCreatedEvent) EventType() string {
	return EventTypeEscrowCreated
}

// NewEscrowCreatedEvent creates a new EscrowCreatedEvent
func NewEscrowCreatedEvent(p *EscrowPayment) *EscrowCreatedEvent {
	return &EscrowCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeEscrowCreated, AggregateTypeEscrowPayment, p.ID),
		OrderID:         p.OrderID,
		OrderNumber:     p.OrderNumber,
		TotalAmount:     p.TotalAmount,
		Currency:        p.Currency,
		AllocationCount: len(p.Allocations),
	}
}

// AllocationEligibleEvent is raised when a shipment's funds become payable
type AllocationEligibleEvent struct {
	shared.BaseDomainEvent
	OrderID      uuid.UUID       `json:"order_id"`
	AllocationID uuid.UUID       `json:"allocation_id"`
	ShipmentID   uuid.UUID       `json:"shipment_id"`
	StoreID      uuid.UUID       `json:"store_id"`
	SellerID     uuid.UUID       `json:"seller_id"`
	Remaining    decimal.Decimal `json:"remaining"`
}

// EventType returns the event type name
func (e *AllocationEligibleEvent) EventType() string {
	return EventTypeAllocationEligible
}

// NewAllocationEligibleEvent creates a new AllocationEligibleEvent
func NewAllocationEligibleEvent(p *EscrowPayment, a *EscrowAllocation) *AllocationEligibleEvent {
	return &AllocationEligibleEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAllocationEligible, AggregateTypeEscrowPayment, p.ID),
		OrderID:         p.OrderID,
		AllocationID:    a.ID,
		ShipmentID:      a.ShipmentID,
		StoreID:         a.StoreID,
		SellerID:        a.SellerID,
		Remaining:       a.RemainingPayout().Amount(),
	}
}

// AllocationRefundedEvent is raised when an allocation is partially or fully refunded
type AllocationRefundedEvent struct {
	shared.BaseDomainEvent
	OrderID            uuid.UUID       `json:"order_id"`
	AllocationID       uuid.UUID       `json:"allocation_id"`
	ShipmentID         uuid.UUID       `json:"shipment_id"`
	StoreID            uuid.UUID       `json:"store_id"`
	RefundedAmount     decimal.Decimal `json:"refunded_amount"`
	RefundedCommission decimal.Decimal `json:"refunded_commission"`
}

// EventType returns the event type name
func (e *AllocationRefundedEvent) EventType() string {
	return EventTypeAllocationRefunded
}

// NewAllocationRefundedEvent creates a new AllocationRefundedEvent
func NewAllocationRefundedEvent(p *EscrowPayment, a *EscrowAllocation) *AllocationRefundedEvent {
	return &AllocationRefundedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeAllocationRefunded, AggregateTypeEscrowPayment, p.ID),
		OrderID:            p.OrderID,
		AllocationID:       a.ID,
		ShipmentID:         a.ShipmentID,
		StoreID:            a.StoreID,
		RefundedAmount:     a.RefundedAmount,
		RefundedCommission: a.RefundedCommissionAmount,
	}
}

// AllocationsReleasedEvent is raised when allocations leave escrow in a paid payout
type AllocationsReleasedEvent struct {
	shared.BaseDomainEvent
	PayoutID        uuid.UUID   `json:"payout_id"`
	PayoutReference string      `json:"payout_reference"`
	AllocationIDs   []uuid.UUID `json:"allocation_ids"`
}

// EventType returns the event type name
func (e *AllocationsReleasedEvent) EventType() string {
	return EventTypeAllocationsReleased
}

// NewAllocationsReleasedEvent creates a new AllocationsReleasedEvent
func NewAllocationsReleasedEvent(payoutID uuid.UUID, reference string, allocationIDs []uuid.UUID) *AllocationsReleasedEvent {
	return &AllocationsReleasedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAllocationsReleased, AggregateTypeEscrowPayment, payoutID),
		PayoutID:        payoutID,
		PayoutReference: reference,
		AllocationIDs:   allocationIDs,
	}
}
