package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/payout"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared/valueobject"
)

// SellerPayoutModel is the persistence model for the SellerPayout aggregate root.
type SellerPayoutModel struct {
	AggregateModel
	StoreID  uuid.UUID `gorm:"type:uuid;not null;index"`
	SellerID uuid.UUID `gorm:"type:uuid;not null;index"`
	Currency string    `gorm:"type:varchar(3);not null"`

	TotalAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Status      string          `gorm:"type:varchar(20);not null;index"`

	ScheduledDate   time.Time `gorm:"not null;index"`
	PayoutMethod    string    `gorm:"type:varchar(20);not null"`
	PayoutReference string    `gorm:"type:varchar(64)"`

	ErrorReference string     `gorm:"type:varchar(64)"`
	ErrorMessage   string     `gorm:"type:varchar(500)"`
	RetryCount     int        `gorm:"not null;default:0"`
	MaxRetries     int        `gorm:"not null;default:0"`
	NextRetryAt    *time.Time `gorm:"index"`

	Items []PayoutItemModel `gorm:"foreignKey:PayoutID;references:ID"`
}

// TableName returns the table name for GORM
func (SellerPayoutModel) TableName() string {
	return "seller_payouts"
}

// ToDomain converts the persistence model to a domain SellerPayout aggregate.
func (m *SellerPayoutModel) ToDomain() *payout.SellerPayout {
	p := &payout.SellerPayout{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		StoreID:           m.StoreID,
		SellerID:          m.SellerID,
		Currency:          valueobject.Currency(m.Currency),
		TotalAmount:       m.TotalAmount,
		Status:            payout.Status(m.Status),
		ScheduledDate:     m.ScheduledDate,
		PayoutMethod:      payout.Method(m.PayoutMethod),
		PayoutReference:   m.PayoutReference,
		ErrorReference:    m.ErrorReference,
		ErrorMessage:      m.ErrorMessage,
		RetryCount:        m.RetryCount,
		MaxRetries:        m.MaxRetries,
		NextRetryAt:       m.NextRetryAt,
		Items:             make([]payout.Item, len(m.Items)),
	}
	for i := range m.Items {
		p.Items[i] = *m.Items[i].ToDomain()
	}
	return p
}

// FromDomain populates the persistence model from a domain SellerPayout aggregate.
func (m *SellerPayoutModel) FromDomain(p *payout.SellerPayout) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.StoreID = p.StoreID
	m.SellerID = p.SellerID
	m.Currency = string(p.Currency)
	m.TotalAmount = p.TotalAmount
	m.Status = string(p.Status)
	m.ScheduledDate = p.ScheduledDate
	m.PayoutMethod = string(p.PayoutMethod)
	m.PayoutReference = p.PayoutReference
	m.ErrorReference = p.ErrorReference
	m.ErrorMessage = p.ErrorMessage
	m.RetryCount = p.RetryCount
	m.MaxRetries = p.MaxRetries
	m.NextRetryAt = p.NextRetryAt
	m.Items = make([]PayoutItemModel, len(p.Items))
	claimed := !(p.Status == payout.StatusFailed && !p.CanRetry())
	for i := range p.Items {
		m.Items[i] = *PayoutItemModelFromDomain(&p.Items[i], claimed)
	}
}

// SellerPayoutModelFromDomain creates a new persistence model from a domain SellerPayout.
func SellerPayoutModelFromDomain(p *payout.SellerPayout) *SellerPayoutModel {
	m := &SellerPayoutModel{}
	m.FromDomain(p)
	return m
}

// PayoutItemModel is the persistence model for the payout Item entity.
// Claimed mirrors the owning payout's status: it is cleared when the payout
// fails terminally, which releases the allocation for rescheduling under the
// partial unique index on (allocation_id) WHERE claimed. A retryable Failed
// payout keeps its claims so its allocations cannot join a second live
// payout. The pointer type makes gorm write an explicit false instead of
// dropping the zero value and leaving the column at its default.
type PayoutItemModel struct {
	BaseModel
	PayoutID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	AllocationID uuid.UUID       `gorm:"type:uuid;not null;index:idx_payout_items_allocation"`
	Amount       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Claimed      *bool           `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (PayoutItemModel) TableName() string {
	return "payout_items"
}

// ToDomain converts the persistence model to a domain payout Item entity.
func (m *PayoutItemModel) ToDomain() *payout.Item {
	return &payout.Item{
		BaseEntity:   m.BaseModel.ToDomain(),
		PayoutID:     m.PayoutID,
		AllocationID: m.AllocationID,
		Amount:       m.Amount,
	}
}

// PayoutItemModelFromDomain creates a new persistence model from a domain payout Item.
func PayoutItemModelFromDomain(i *payout.Item, claimed bool) *PayoutItemModel {
	m := &PayoutItemModel{}
	m.FromDomainBaseEntity(i.BaseEntity)
	m.PayoutID = i.PayoutID
	m.AllocationID = i.AllocationID
	m.Amount = i.Amount
	m.Claimed = &claimed
	return m
}

// PayoutSettingsModel is the read model row for a store's payout settings.
// The seller-onboarding system owns and writes this table; scheduling only
// reads it.
type PayoutSettingsModel struct {
	StoreID       uuid.UUID  `gorm:"type:uuid;primary_key"`
	Method        string     `gorm:"type:varchar(20);not null"`
	AccountHolder string     `gorm:"type:varchar(200);not null"`
	IBAN          string     `gorm:"type:varchar(34);not null"`
	BIC           string     `gorm:"type:varchar(11)"`
	Verified      bool       `gorm:"not null;default:false"`
	VerifiedAt    *time.Time
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PayoutSettingsModel) TableName() string {
	return "payout_settings"
}

// ToDomain converts the persistence model to the domain Settings read model.
func (m *PayoutSettingsModel) ToDomain() *payout.Settings {
	return &payout.Settings{
		StoreID:       m.StoreID,
		Method:        payout.Method(m.Method),
		AccountHolder: m.AccountHolder,
		IBAN:          m.IBAN,
		BIC:           m.BIC,
		Verified:      m.Verified,
		VerifiedAt:    m.VerifiedAt,
	}
}
