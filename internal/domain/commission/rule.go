package commission

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared"
)

// RuleScope represents the scope at which a commission rule applies
type RuleScope string

const (
	// RuleScopeSeller applies to a single store; highest precedence
	RuleScopeSeller RuleScope = "SELLER"
	// RuleScopeCategory applies to a product category
	RuleScopeCategory RuleScope = "CATEGORY"
	// RuleScopeGlobal applies platform-wide; lowest precedence
	RuleScopeGlobal RuleScope = "GLOBAL"
)

// IsValid checks if the scope is a valid RuleScope
func (s RuleScope) IsValid() bool {
	switch s {
	case RuleScopeSeller, RuleScopeCategory, RuleScopeGlobal:
		return true
	}
	return false
}

// String returns the string representation of RuleScope
func (s RuleScope) String() string {
	return string(s)
}

// Precedence returns the resolution precedence of the scope; lower wins
func (s RuleScope) Precedence() int {
	switch s {
	case RuleScopeSeller:
		return 0
	case RuleScopeCategory:
		return 1
	default:
		return 2
	}
}

// CommissionRule represents a commission rate rule aggregate root.
// At most one rule of a given scope/store/category may be effective at any
// instant; the rule store enforces non-overlapping effective windows at
// creation time.
type CommissionRule struct {
	shared.BaseAggregateRoot

	Scope      RuleScope
	StoreID    *uuid.UUID // required for SELLER scope
	CategoryID *uuid.UUID // required for CATEGORY scope

	// Rate is a percentage in [0, 100]
	Rate decimal.Decimal

	EffectiveFrom  time.Time
	EffectiveUntil *time.Time // nil means open-ended
	Active         bool
	Description    string
}

// NewCommissionRule creates a new commission rule
func NewCommissionRule(
	scope RuleScope,
	storeID *uuid.UUID,
	categoryID *uuid.UUID,
	rate decimal.Decimal,
	effectiveFrom time.Time,
	effectiveUntil *time.Time,
	description string,
) (*CommissionRule, error) {
	if !scope.IsValid() {
		return nil, shared.NewDomainError("INVALID_SCOPE", "Invalid commission rule scope")
	}
	if scope == RuleScopeSeller && (storeID == nil || *storeID == uuid.Nil) {
		return nil, shared.NewDomainError("INVALID_STORE", "Seller-scoped rule requires a store ID")
	}
	if scope == RuleScopeCategory && (categoryID == nil || *categoryID == uuid.Nil) {
		return nil, shared.NewDomainError("INVALID_CATEGORY", "Category-scoped rule requires a category ID")
	}
	if scope == RuleScopeGlobal && (storeID != nil || categoryID != nil) {
		return nil, shared.NewDomainError("INVALID_SCOPE", "Global rule cannot reference a store or category")
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return nil, shared.NewDomainError("INVALID_RATE", "Commission rate must be between 0 and 100 percent")
	}
	if effectiveUntil != nil && !effectiveUntil.After(effectiveFrom) {
		return nil, shared.NewDomainError("INVALID_WINDOW", "Effective window end must be after its start")
	}

	return &CommissionRule{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Scope:             scope,
		StoreID:           storeID,
		CategoryID:        categoryID,
		Rate:              rate,
		EffectiveFrom:     effectiveFrom,
		EffectiveUntil:    effectiveUntil,
		Active:            true,
		Description:       description,
	}, nil
}

// IsEffectiveAt reports whether the rule is active and its window contains t
func (r *CommissionRule) IsEffectiveAt(t time.Time) bool {
	if !r.Active {
		return false
	}
	if t.Before(r.EffectiveFrom) {
		return false
	}
	if r.EffectiveUntil != nil && !t.Before(*r.EffectiveUntil) {
		return false
	}
	return true
}

// Deactivate ends the rule's validity
func (r *CommissionRule) Deactivate() {
	r.Active = false
	r.UpdatedAt = time.Now()
}

// OverlapsWith reports whether two rules of the same scope have intersecting
// effective windows. Used by the rule store to reject overlapping rules.
func (r *CommissionRule) OverlapsWith(other *CommissionRule) bool {
	if r.Scope != other.Scope {
		return false
	}
	if r.Scope == RuleScopeSeller && !uuidPtrEqual(r.StoreID, other.StoreID) {
		return false
	}
	if r.Scope == RuleScopeCategory && !uuidPtrEqual(r.CategoryID, other.CategoryID) {
		return false
	}
	// Open-ended windows extend to infinity
	if r.EffectiveUntil != nil && !other.EffectiveFrom.Before(*r.EffectiveUntil) {
		return false
	}
	if other.EffectiveUntil != nil && !r.EffectiveFrom.Before(*other.EffectiveUntil) {
		return false
	}
	return true
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Describe returns a short human-readable description of the rule scope
func (r *CommissionRule) Describe() string {
	switch r.Scope {
	case RuleScopeSeller:
		return fmt.Sprintf("seller rule for store %s", r.StoreID)
	case RuleScopeCategory:
		return fmt.Sprintf("category rule for category %s", r.CategoryID)
	default:
		return "global rule"
	}
}
