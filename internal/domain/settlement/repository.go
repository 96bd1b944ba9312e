package settlement

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence for settlements
type Repository interface {
	// FindByID returns the settlement with all items and adjustments loaded,
	// or nil when not found
	FindByID(ctx context.Context, id uuid.UUID) (*Settlement, error)

	// FindLatestVersion returns the highest-version settlement for a store
	// and period, or nil when none exists
	FindLatestVersion(ctx context.Context, storeID uuid.UUID, year, month int) (*Settlement, error)

	// FindByStoreAndPeriod returns all versions for a store and period,
	// newest first
	FindByStoreAndPeriod(ctx context.Context, storeID uuid.UUID, year, month int) ([]*Settlement, error)

	// FindByPeriod returns the latest version per store for a period
	FindByPeriod(ctx context.Context, year, month int) ([]*Settlement, error)

	// FindByStore returns all settlements for a store, newest period first
	FindByStore(ctx context.Context, storeID uuid.UUID, limit, offset int) ([]*Settlement, int64, error)

	// Save persists the settlement with its items and adjustments. The
	// unique constraint on (store_id, year, month, version) turns concurrent
	// generation of the same version into a conflict error.
	Save(ctx context.Context, s *Settlement) error
}
