package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/commission"
)

// CommissionRuleModel is the persistence model for the CommissionRule aggregate root.
type CommissionRuleModel struct {
	AggregateModel
	Scope      string     `gorm:"type:varchar(20);not null;index"`
	StoreID    *uuid.UUID `gorm:"type:uuid;index"`
	CategoryID *uuid.UUID `gorm:"type:uuid;index"`

	Rate decimal.Decimal `gorm:"type:decimal(7,4);not null"`

	EffectiveFrom  time.Time  `gorm:"not null;index"`
	EffectiveUntil *time.Time `gorm:"index"`
	Active         bool       `gorm:"not null;default:true;index"`
	Description    string     `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (CommissionRuleModel) TableName() string {
	return "commission_rules"
}

// ToDomain converts the persistence model to a domain CommissionRule aggregate.
func (m *CommissionRuleModel) ToDomain() *commission.CommissionRule {
	return &commission.CommissionRule{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Scope:             commission.RuleScope(m.Scope),
		StoreID:           m.StoreID,
		CategoryID:        m.CategoryID,
		Rate:              m.Rate,
		EffectiveFrom:     m.EffectiveFrom,
		EffectiveUntil:    m.EffectiveUntil,
		Active:            m.Active,
		Description:       m.Description,
	}
}

// FromDomain populates the persistence model from a domain CommissionRule aggregate.
func (m *CommissionRuleModel) FromDomain(r *commission.CommissionRule) {
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	m.Scope = string(r.Scope)
	m.StoreID = r.StoreID
	m.CategoryID = r.CategoryID
	m.Rate = r.Rate
	m.EffectiveFrom = r.EffectiveFrom
	m.EffectiveUntil = r.EffectiveUntil
	m.Active = r.Active
	m.Description = r.Description
}

// CommissionRuleModelFromDomain creates a new persistence model from a domain CommissionRule.
func CommissionRuleModelFromDomain(r *commission.CommissionRule) *CommissionRuleModel {
	m := &CommissionRuleModel{}
	m.FromDomain(r)
	return m
}
