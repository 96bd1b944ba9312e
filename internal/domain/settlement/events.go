package settlement

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared/valueobject"
)

// Event type constants for the settlement aggregate
const (
	EventTypeSettlementGenerated = "SettlementGenerated"
	EventTypeSettlementFinalized = "SettlementFinalized"
)

// AggregateTypeSettlement is the aggregate type for settlement events
const AggregateTypeSettlement = "Settlement"

// SettlementGeneratedEvent is raised when a new settlement version is built
type SettlementGeneratedEvent struct {
	shared.BaseDomainEvent
	SettlementNumber string               `json:"settlement_number"`
	StoreID          uuid.UUID            `json:"store_id"`
	Year             int                  `json:"year"`
	Month            int                  `json:"month"`
	Version          int                  `json:"version"`
	NetPayable       decimal.Decimal      `json:"net_payable"`
	Currency         valueobject.Currency `json:"currency"`
}

// EventType returns the event type name
func (e *SettlementGeneratedEvent) EventType() string {
	return EventTypeSettlementGenerated
}

// NewSettlementGeneratedEvent creates a new SettlementGeneratedEvent
func NewSettlementGeneratedEvent(s *Settlement) *SettlementGeneratedEvent {
	return &SettlementGeneratedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeSettlementGenerated, AggregateTypeSettlement, s.ID),
		SettlementNumber: s.SettlementNumber,
		StoreID:          s.StoreID,
		Year:             s.Year,
		Month:            s.Month,
		Version:          s.Version,
		NetPayable:       s.NetPayable,
		Currency:         s.Currency,
	}
}

// SettlementFinalizedEvent is raised when a draft settlement is frozen
type SettlementFinalizedEvent struct {
	shared.BaseDomainEvent
	SettlementNumber string          `json:"settlement_number"`
	StoreID          uuid.UUID       `json:"store_id"`
	NetPayable       decimal.Decimal `json:"net_payable"`
}

// EventType returns the event type name
func (e *SettlementFinalizedEvent) EventType() string {
	return EventTypeSettlementFinalized
}

// NewSettlementFinalizedEvent creates a new SettlementFinalizedEvent
func NewSettlementFinalizedEvent(s *Settlement) *SettlementFinalizedEvent {
	return &SettlementFinalizedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeSettlementFinalized, AggregateTypeSettlement, s.ID),
		SettlementNumber: s.SettlementNumber,
		StoreID:          s.StoreID,
		NetPayable:       s.NetPayable,
	}
}
