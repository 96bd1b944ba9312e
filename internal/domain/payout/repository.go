package payout

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/escrow"
)

// Repository provides access to seller payouts
type Repository interface {
	// FindByID finds a payout with its items, nil if not found
	FindByID(ctx context.Context, id uuid.UUID) (*SellerPayout, error)

	// FindScheduledForStore finds the store's open Scheduled payout, nil if
	// none. New eligible allocations merge into it instead of creating a
	// duplicate.
	FindScheduledForStore(ctx context.Context, storeID uuid.UUID) (*SellerPayout, error)

	// FindDue returns Scheduled payouts whose scheduled date is on or before
	// the given date
	FindDue(ctx context.Context, date time.Time) ([]SellerPayout, error)

	// FindRetryable returns Failed payouts with retries remaining whose
	// NextRetryAt is on or before the given time
	FindRetryable(ctx context.Context, at time.Time) ([]SellerPayout, error)

	// FindStalledProcessing returns Processing payouts untouched since the
	// given time. A payout only stays in Processing while a transfer attempt
	// is in flight; an old one marks an interrupted attempt.
	FindStalledProcessing(ctx context.Context, updatedBefore time.Time) ([]SellerPayout, error)

	// FindByStore returns the store's payouts, newest first
	FindByStore(ctx context.Context, storeID uuid.UUID, limit int) ([]SellerPayout, error)

	// Save persists the payout and its items. The allocation-claim unique
	// index rejects an allocation appearing in two non-Failed payouts.
	Save(ctx context.Context, payout *SellerPayout) error

	// SavePaidWithReleases persists a Paid payout together with the released
	// allocations in a single transaction, so a crash can never leave
	// released funds without a paid payout
	SavePaidWithReleases(ctx context.Context, payout *SellerPayout, allocations []*escrow.EscrowAllocation) error
}
