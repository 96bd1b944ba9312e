package commission

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RuleRepository provides access to commission rules
type RuleRepository interface {
	// FindByID finds a rule by ID, nil if not found
	FindByID(ctx context.Context, id uuid.UUID) (*CommissionRule, error)

	// FindEffective returns the rules of every scope that are active and whose
	// effective window contains at, restricted to the given store and its
	// categories. Non-overlap guarantees at most one rule per scope.
	FindEffective(ctx context.Context, storeID uuid.UUID, categoryIDs []uuid.UUID, at time.Time) ([]CommissionRule, error)

	// FindOverlapping returns existing rules whose scope matches and whose
	// effective window intersects the candidate's. Used for creation-time
	// validation.
	FindOverlapping(ctx context.Context, candidate *CommissionRule) ([]CommissionRule, error)

	// Save persists a rule
	Save(ctx context.Context, rule *CommissionRule) error
}
