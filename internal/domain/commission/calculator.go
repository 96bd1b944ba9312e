package commission

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared/valueobject"
)

// Breakdown is the result of a commission calculation for one subtotal
type Breakdown struct {
	// Rate is the resolved commission percentage, snapshotted by the caller
	Rate decimal.Decimal
	// CommissionAmount is the platform's cut
	CommissionAmount valueobject.Money
	// SellerPayout is the subtotal minus commission
	SellerPayout valueobject.Money
}

// Config holds commission policy values
type Config struct {
	// DefaultRate is the platform default commission percentage applied when
	// no rule matches
	DefaultRate decimal.Decimal
}

// Calculator resolves the applicable commission rate and computes the split.
// Precedence: seller-specific > category > global; ties cannot occur because
// the rule store rejects overlapping effective windows per scope.
type Calculator struct {
	rules RuleRepository
	cfg   Config
	now   func() time.Time
}

// NewCalculator creates a commission calculator
func NewCalculator(rules RuleRepository, cfg Config) *Calculator {
	return &Calculator{
		rules: rules,
		cfg:   cfg,
		now:   time.Now,
	}
}

// WithClock overrides the calculator's clock; intended for tests
func (c *Calculator) WithClock(now func() time.Time) *Calculator {
	c.now = now
	return c
}

// ResolveRate resolves the commission rate applicable to a store at this
// instant. A repository failure fails the resolution; it never silently
// falls back to 0%.
func (c *Calculator) ResolveRate(ctx context.Context, storeID uuid.UUID, categoryIDs []uuid.UUID) (decimal.Decimal, error) {
	effective, err := c.rules.FindEffective(ctx, storeID, categoryIDs, c.now())
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to resolve commission rate: %w", err)
	}
	if len(effective) == 0 {
		return c.cfg.DefaultRate, nil
	}

	sort.Slice(effective, func(i, j int) bool {
		return effective[i].Scope.Precedence() < effective[j].Scope.Precedence()
	})
	return effective[0].Rate, nil
}

// CalculateCommission resolves the rate for the store and computes the
// commission and seller payout amounts for the given subtotal
func (c *Calculator) CalculateCommission(ctx context.Context, storeID uuid.UUID, categoryIDs []uuid.UUID, subtotal valueobject.Money) (*Breakdown, error) {
	rate, err := c.ResolveRate(ctx, storeID, categoryIDs)
	if err != nil {
		return nil, err
	}

	commissionAmount := subtotal.CalculatePercentage(rate).RoundBank(2)
	sellerPayout, err := subtotal.Subtract(commissionAmount)
	if err != nil {
		return nil, err
	}

	return &Breakdown{
		Rate:             rate,
		CommissionAmount: commissionAmount,
		SellerPayout:     sellerPayout,
	}, nil
}
