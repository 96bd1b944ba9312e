package escrow

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AllocationWithOrder pairs an allocation with its owning order's identity
type AllocationWithOrder struct {
	Allocation  EscrowAllocation
	OrderID     uuid.UUID
	OrderNumber string
}

// EscrowPaymentRepository provides access to the escrow ledger
type EscrowPaymentRepository interface {
	// FindByID finds an escrow payment with its allocations, nil if not found
	FindByID(ctx context.Context, id uuid.UUID) (*EscrowPayment, error)

	// FindByOrderID finds the escrow payment for an order, nil if not found
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*EscrowPayment, error)

	// ExistsByOrderID reports whether escrow was already created for the order
	ExistsByOrderID(ctx context.Context, orderID uuid.UUID) (bool, error)

	// FindByShipmentID finds the escrow payment owning the shipment's
	// allocation, nil if not found
	FindByShipmentID(ctx context.Context, shipmentID uuid.UUID) (*EscrowPayment, error)

	// Save persists the payment and all owned allocations. Creation relies on
	// the unique order_id index to reject concurrent duplicates.
	Save(ctx context.Context, payment *EscrowPayment) error

	// SaveAllocation persists a single mutated allocation
	SaveAllocation(ctx context.Context, allocation *EscrowAllocation) error

	// FindEligibleUnclaimed returns the store's allocations that are eligible,
	// not released, and not already part of a payout in a non-Failed status
	FindEligibleUnclaimed(ctx context.Context, storeID uuid.UUID) ([]EscrowAllocation, error)

	// FindAllocationsByIDs loads allocations by ID; missing IDs are an error
	FindAllocationsByIDs(ctx context.Context, ids []uuid.UUID) ([]EscrowAllocation, error)

	// FindAllocationsCreatedBetween returns the store's allocations created in
	// [from, to) together with their owning order's identity, ordered by
	// creation time. Used by settlement generation.
	FindAllocationsCreatedBetween(ctx context.Context, storeID uuid.UUID, from, to time.Time) ([]AllocationWithOrder, error)

	// FindStoresWithAllocationsBetween lists the stores that had allocations
	// created in [from, to)
	FindStoresWithAllocationsBetween(ctx context.Context, from, to time.Time) ([]uuid.UUID, error)
}
