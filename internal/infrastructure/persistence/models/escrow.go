package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/escrow"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared/valueobject"
)

// EscrowPaymentModel is the persistence model for the EscrowPayment aggregate root.
type EscrowPaymentModel struct {
	AggregateModel
	OrderID     uuid.UUID               `gorm:"type:uuid;not null;uniqueIndex:idx_escrow_payments_order"`
	OrderNumber string                  `gorm:"type:varchar(50);not null;index"`
	TotalAmount decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	Currency    string                  `gorm:"type:varchar(3);not null"`
	Allocations []EscrowAllocationModel `gorm:"foreignKey:PaymentID;references:ID"`
}

// TableName returns the table name for GORM
func (EscrowPaymentModel) TableName() string {
	return "escrow_payments"
}

// ToDomain converts the persistence model to a domain EscrowPayment aggregate.
func (m *EscrowPaymentModel) ToDomain() *escrow.EscrowPayment {
	p := &escrow.EscrowPayment{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		OrderID:           m.OrderID,
		OrderNumber:       m.OrderNumber,
		TotalAmount:       m.TotalAmount,
		Currency:          valueobject.Currency(m.Currency),
		Allocations:       make([]escrow.EscrowAllocation, len(m.Allocations)),
	}
	for i := range m.Allocations {
		p.Allocations[i] = *m.Allocations[i].ToDomain()
	}
	return p
}

// FromDomain populates the persistence model from a domain EscrowPayment aggregate.
func (m *EscrowPaymentModel) FromDomain(p *escrow.EscrowPayment) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.OrderID = p.OrderID
	m.OrderNumber = p.OrderNumber
	m.TotalAmount = p.TotalAmount
	m.Currency = string(p.Currency)
	m.Allocations = make([]EscrowAllocationModel, len(p.Allocations))
	for i := range p.Allocations {
		m.Allocations[i] = *EscrowAllocationModelFromDomain(&p.Allocations[i])
	}
}

// EscrowPaymentModelFromDomain creates a new persistence model from a domain EscrowPayment.
func EscrowPaymentModelFromDomain(p *escrow.EscrowPayment) *EscrowPaymentModel {
	m := &EscrowPaymentModel{}
	m.FromDomain(p)
	return m
}

// EscrowAllocationModel is the persistence model for the EscrowAllocation entity.
type EscrowAllocationModel struct {
	BaseModel
	PaymentID  uuid.UUID `gorm:"type:uuid;not null;index"`
	ShipmentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_escrow_allocations_shipment"`
	StoreID    uuid.UUID `gorm:"type:uuid;not null;index"`
	SellerID   uuid.UUID `gorm:"type:uuid;not null;index"`

	SellerAmount             decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ShippingAmount           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CommissionAmount         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CommissionRate           decimal.Decimal `gorm:"type:decimal(7,4);not null"`
	RefundedAmount           decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	RefundedCommissionAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Currency                 string          `gorm:"type:varchar(3);not null"`

	EligibleForPayoutAt *time.Time `gorm:"index"`
	ReleasedAt          *time.Time `gorm:"index"`
	PayoutReference     string     `gorm:"type:varchar(64)"`
}

// TableName returns the table name for GORM
func (EscrowAllocationModel) TableName() string {
	return "escrow_allocations"
}

// ToDomain converts the persistence model to a domain EscrowAllocation entity.
func (m *EscrowAllocationModel) ToDomain() *escrow.EscrowAllocation {
	return &escrow.EscrowAllocation{
		BaseEntity:               m.BaseModel.ToDomain(),
		PaymentID:                m.PaymentID,
		ShipmentID:               m.ShipmentID,
		StoreID:                  m.StoreID,
		SellerID:                 m.SellerID,
		SellerAmount:             m.SellerAmount,
		ShippingAmount:           m.ShippingAmount,
		CommissionAmount:         m.CommissionAmount,
		CommissionRate:           m.CommissionRate,
		RefundedAmount:           m.RefundedAmount,
		RefundedCommissionAmount: m.RefundedCommissionAmount,
		Currency:                 valueobject.Currency(m.Currency),
		EligibleForPayoutAt:      m.EligibleForPayoutAt,
		ReleasedAt:               m.ReleasedAt,
		PayoutReference:          m.PayoutReference,
	}
}

// FromDomain populates the persistence model from a domain EscrowAllocation entity.
func (m *EscrowAllocationModel) FromDomain(a *escrow.EscrowAllocation) {
	m.FromDomainBaseEntity(a.BaseEntity)
	m.PaymentID = a.PaymentID
	m.ShipmentID = a.ShipmentID
	m.StoreID = a.StoreID
	m.SellerID = a.SellerID
	m.SellerAmount = a.SellerAmount
	m.ShippingAmount = a.ShippingAmount
	m.CommissionAmount = a.CommissionAmount
	m.CommissionRate = a.CommissionRate
	m.RefundedAmount = a.RefundedAmount
	m.RefundedCommissionAmount = a.RefundedCommissionAmount
	m.Currency = string(a.Currency)
	m.EligibleForPayoutAt = a.EligibleForPayoutAt
	m.ReleasedAt = a.ReleasedAt
	m.PayoutReference = a.PayoutReference
}

// EscrowAllocationModelFromDomain creates a new persistence model from a domain EscrowAllocation.
func EscrowAllocationModelFromDomain(a *escrow.EscrowAllocation) *EscrowAllocationModel {
	m := &EscrowAllocationModel{}
	m.FromDomain(a)
	return m
}
