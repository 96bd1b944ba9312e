package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/settlement"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared/valueobject"
)

// SettlementModel is the persistence model for the Settlement aggregate root.
// RecordVersion is the optimistic-locking counter; SettlementVersion is the
// domain's regeneration version within a (store, year, month) period.
type SettlementModel struct {
	BaseModel
	RecordVersion int `gorm:"column:record_version;not null;default:1"`

	StoreID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_settlements_period,priority:1"`
	SellerID uuid.UUID `gorm:"type:uuid;not null;index"`

	Year              int `gorm:"not null;uniqueIndex:idx_settlements_period,priority:2"`
	Month             int `gorm:"not null;uniqueIndex:idx_settlements_period,priority:3"`
	SettlementVersion int `gorm:"column:settlement_version;not null;uniqueIndex:idx_settlements_period,priority:4"`

	SettlementNumber string `gorm:"type:varchar(40);not null;uniqueIndex"`
	Currency         string `gorm:"type:varchar(3);not null"`

	GrossSales       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalShipping    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalCommission  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalRefunds     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalAdjustments decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	NetPayable       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	OrderCount       int             `gorm:"not null;default:0"`

	Status      string    `gorm:"type:varchar(20);not null;index"`
	PeriodStart time.Time `gorm:"not null"`
	PeriodEnd   time.Time `gorm:"not null"`

	Items       []SettlementItemModel       `gorm:"foreignKey:SettlementID;references:ID"`
	Adjustments []SettlementAdjustmentModel `gorm:"foreignKey:SettlementID;references:ID"`

	Notes       string     `gorm:"type:text"`
	ApprovedBy  *uuid.UUID `gorm:"type:uuid"`
	FinalizedAt *time.Time
	ApprovedAt  *time.Time
	ExportedAt  *time.Time
}

// TableName returns the table name for GORM
func (SettlementModel) TableName() string {
	return "settlements"
}

// ToDomain converts the persistence model to a domain Settlement aggregate.
func (m *SettlementModel) ToDomain() *settlement.Settlement {
	s := &settlement.Settlement{
		StoreID:          m.StoreID,
		SellerID:         m.SellerID,
		Year:             m.Year,
		Month:            m.Month,
		Version:          m.SettlementVersion,
		SettlementNumber: m.SettlementNumber,
		Currency:         valueobject.Currency(m.Currency),
		GrossSales:       m.GrossSales,
		TotalShipping:    m.TotalShipping,
		TotalCommission:  m.TotalCommission,
		TotalRefunds:     m.TotalRefunds,
		TotalAdjustments: m.TotalAdjustments,
		NetPayable:       m.NetPayable,
		OrderCount:       m.OrderCount,
		Status:           settlement.Status(m.Status),
		PeriodStart:      m.PeriodStart,
		PeriodEnd:        m.PeriodEnd,
		Notes:            m.Notes,
		ApprovedBy:       m.ApprovedBy,
		FinalizedAt:      m.FinalizedAt,
		ApprovedAt:       m.ApprovedAt,
		ExportedAt:       m.ExportedAt,
		Items:            make([]settlement.Item, len(m.Items)),
		Adjustments:      make([]settlement.Adjustment, len(m.Adjustments)),
	}
	s.BaseAggregateRoot = shared.BaseAggregateRoot{
		BaseEntity: m.BaseModel.ToDomain(),
		Version:    m.RecordVersion,
	}
	for i := range m.Items {
		s.Items[i] = *m.Items[i].ToDomain()
	}
	for i := range m.Adjustments {
		s.Adjustments[i] = *m.Adjustments[i].ToDomain()
	}
	return s
}

// FromDomain populates the persistence model from a domain Settlement aggregate.
func (m *SettlementModel) FromDomain(s *settlement.Settlement) {
	m.FromDomainBaseEntity(s.BaseEntity)
	m.RecordVersion = s.GetVersion()
	m.StoreID = s.StoreID
	m.SellerID = s.SellerID
	m.Year = s.Year
	m.Month = s.Month
	m.SettlementVersion = s.Version
	m.SettlementNumber = s.SettlementNumber
	m.Currency = string(s.Currency)
	m.GrossSales = s.GrossSales
	m.TotalShipping = s.TotalShipping
	m.TotalCommission = s.TotalCommission
	m.TotalRefunds = s.TotalRefunds
	m.TotalAdjustments = s.TotalAdjustments
	m.NetPayable = s.NetPayable
	m.OrderCount = s.OrderCount
	m.Status = string(s.Status)
	m.PeriodStart = s.PeriodStart
	m.PeriodEnd = s.PeriodEnd
	m.Notes = s.Notes
	m.ApprovedBy = s.ApprovedBy
	m.FinalizedAt = s.FinalizedAt
	m.ApprovedAt = s.ApprovedAt
	m.ExportedAt = s.ExportedAt
	m.Items = make([]SettlementItemModel, len(s.Items))
	for i := range s.Items {
		m.Items[i] = *SettlementItemModelFromDomain(&s.Items[i])
	}
	m.Adjustments = make([]SettlementAdjustmentModel, len(s.Adjustments))
	for i := range s.Adjustments {
		m.Adjustments[i] = *SettlementAdjustmentModelFromDomain(&s.Adjustments[i])
	}
}

// SettlementModelFromDomain creates a new persistence model from a domain Settlement.
func SettlementModelFromDomain(s *settlement.Settlement) *SettlementModel {
	m := &SettlementModel{}
	m.FromDomain(s)
	return m
}

// SettlementItemModel is the persistence model for the settlement Item entity.
type SettlementItemModel struct {
	BaseModel
	SettlementID uuid.UUID `gorm:"type:uuid;not null;index"`
	AllocationID uuid.UUID `gorm:"type:uuid;not null;index"`
	OrderID      uuid.UUID `gorm:"type:uuid;not null"`
	OrderNumber  string    `gorm:"type:varchar(50);not null"`
	ShipmentID   uuid.UUID `gorm:"type:uuid;not null"`

	SellerAmount             decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ShippingAmount           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CommissionAmount         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	RefundedAmount           decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	RefundedCommissionAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	NetAmount                decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (SettlementItemModel) TableName() string {
	return "settlement_items"
}

// ToDomain converts the persistence model to a domain settlement Item entity.
func (m *SettlementItemModel) ToDomain() *settlement.Item {
	return &settlement.Item{
		BaseEntity:               m.BaseModel.ToDomain(),
		SettlementID:             m.SettlementID,
		AllocationID:             m.AllocationID,
		OrderID:                  m.OrderID,
		OrderNumber:              m.OrderNumber,
		ShipmentID:               m.ShipmentID,
		SellerAmount:             m.SellerAmount,
		ShippingAmount:           m.ShippingAmount,
		CommissionAmount:         m.CommissionAmount,
		RefundedAmount:           m.RefundedAmount,
		RefundedCommissionAmount: m.RefundedCommissionAmount,
		NetAmount:                m.NetAmount,
	}
}

// SettlementItemModelFromDomain creates a new persistence model from a domain settlement Item.
func SettlementItemModelFromDomain(i *settlement.Item) *SettlementItemModel {
	m := &SettlementItemModel{}
	m.FromDomainBaseEntity(i.BaseEntity)
	m.SettlementID = i.SettlementID
	m.AllocationID = i.AllocationID
	m.OrderID = i.OrderID
	m.OrderNumber = i.OrderNumber
	m.ShipmentID = i.ShipmentID
	m.SellerAmount = i.SellerAmount
	m.ShippingAmount = i.ShippingAmount
	m.CommissionAmount = i.CommissionAmount
	m.RefundedAmount = i.RefundedAmount
	m.RefundedCommissionAmount = i.RefundedCommissionAmount
	m.NetAmount = i.NetAmount
	return m
}

// SettlementAdjustmentModel is the persistence model for the settlement Adjustment entity.
type SettlementAdjustmentModel struct {
	BaseModel
	SettlementID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	OriginalYear       int             `gorm:"not null"`
	OriginalMonth      int             `gorm:"not null"`
	Amount             decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Reason             string          `gorm:"type:varchar(500);not null"`
	RelatedOrderID     *uuid.UUID      `gorm:"type:uuid"`
	RelatedOrderNumber string          `gorm:"type:varchar(50)"`
}

// TableName returns the table name for GORM
func (SettlementAdjustmentModel) TableName() string {
	return "settlement_adjustments"
}

// ToDomain converts the persistence model to a domain settlement Adjustment entity.
func (m *SettlementAdjustmentModel) ToDomain() *settlement.Adjustment {
	return &settlement.Adjustment{
		BaseEntity:         m.BaseModel.ToDomain(),
		SettlementID:       m.SettlementID,
		OriginalYear:       m.OriginalYear,
		OriginalMonth:      m.OriginalMonth,
		Amount:             m.Amount,
		Reason:             m.Reason,
		RelatedOrderID:     m.RelatedOrderID,
		RelatedOrderNumber: m.RelatedOrderNumber,
	}
}

// SettlementAdjustmentModelFromDomain creates a new persistence model from a domain Adjustment.
func SettlementAdjustmentModelFromDomain(a *settlement.Adjustment) *SettlementAdjustmentModel {
	m := &SettlementAdjustmentModel{}
	m.FromDomainBaseEntity(a.BaseEntity)
	m.SettlementID = a.SettlementID
	m.OriginalYear = a.OriginalYear
	m.OriginalMonth = a.OriginalMonth
	m.Amount = a.Amount
	m.Reason = a.Reason
	m.RelatedOrderID = a.RelatedOrderID
	m.RelatedOrderNumber = a.RelatedOrderNumber
	return m
}
