package payout

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared/valueobject"
)

// Event type constants for the payout aggregate
const (
	EventTypePayoutScheduled = "PayoutScheduled"
	EventTypePayoutPaid      = "PayoutPaid"
	EventTypePayoutFailed    = "PayoutFailed"
)

// AggregateTypeSellerPayout is the aggregate type for payout events
const AggregateTypeSellerPayout = "SellerPayout"

// PayoutScheduledEvent is raised when a payout is created or grows
type PayoutScheduledEvent struct {
	shared.BaseDomainEvent
	StoreID       uuid.UUID            `json:"store_id"`
	SellerID      uuid.UUID            `json:"seller_id"`
	TotalAmount   decimal.Decimal      `json:"total_amount"`
	Currency      valueobject.Currency `json:"currency"`
	ItemCount     int                  `json:"item_count"`
	ScheduledDate string               `json:"scheduled_date"`
}

// EventType returns the event type name
func (e *PayoutScheduledEvent) EventType() string {
	return EventTypePayoutScheduled
}

// NewPayoutScheduledEvent creates a new PayoutScheduledEvent
func NewPayoutScheduledEvent(p *SellerPayout) *PayoutScheduledEvent {
	return &PayoutScheduledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePayoutScheduled, AggregateTypeSellerPayout, p.ID),
		StoreID:         p.StoreID,
		SellerID:        p.SellerID,
		TotalAmount:     p.TotalAmount,
		Currency:        p.Currency,
		ItemCount:       len(p.Items),
		ScheduledDate:   p.ScheduledDate.Format("2006-01-02"),
	}
}

// PayoutPaidEvent is raised when a payout transfer succeeds
type PayoutPaidEvent struct {
	shared.BaseDomainEvent
	StoreID         uuid.UUID            `json:"store_id"`
	SellerID        uuid.UUID            `json:"seller_id"`
	TotalAmount     decimal.Decimal      `json:"total_amount"`
	Currency        valueobject.Currency `json:"currency"`
	PayoutReference string               `json:"payout_reference"`
}

// EventType returns the event type name
func (e *PayoutPaidEvent) EventType() string {
	return EventTypePayoutPaid
}

// NewPayoutPaidEvent creates a new PayoutPaidEvent
func NewPayoutPaidEvent(p *SellerPayout) *PayoutPaidEvent {
	return &PayoutPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePayoutPaid, AggregateTypeSellerPayout, p.ID),
		StoreID:         p.StoreID,
		SellerID:        p.SellerID,
		TotalAmount:     p.TotalAmount,
		Currency:        p.Currency,
		PayoutReference: p.PayoutReference,
	}
}

// PayoutFailedEvent is raised when a payout transfer fails
type PayoutFailedEvent struct {
	shared.BaseDomainEvent
	StoreID        uuid.UUID            `json:"store_id"`
	SellerID       uuid.UUID            `json:"seller_id"`
	TotalAmount    decimal.Decimal      `json:"total_amount"`
	Currency       valueobject.Currency `json:"currency"`
	ErrorReference string               `json:"error_reference"`
	ErrorMessage   string               `json:"error_message"`
	RetryCount     int                  `json:"retry_count"`
	Terminal       bool                 `json:"terminal"`
}

// EventType returns the event type name
func (e *PayoutFailedEvent) EventType() string {
	return EventTypePayoutFailed
}

// NewPayoutFailedEvent creates a new PayoutFailedEvent
func NewPayoutFailedEvent(p *SellerPayout, terminal bool) *PayoutFailedEvent {
	return &PayoutFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePayoutFailed, AggregateTypeSellerPayout, p.ID),
		StoreID:         p.StoreID,
		SellerID:        p.SellerID,
		TotalAmount:     p.TotalAmount,
		Currency:        p.Currency,
		ErrorReference:  p.ErrorReference,
		ErrorMessage:    p.ErrorMessage,
		RetryCount:      p.RetryCount,
		Terminal:        terminal,
	}
}
