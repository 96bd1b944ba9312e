package escrow

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared/valueobject"
)

// AllocationState describes where an allocation is in its lifecycle
type AllocationState string

const (
	// AllocationStateHeld indicates funds are held in escrow
	AllocationStateHeld AllocationState = "HELD"
	// AllocationStateEligible indicates funds may be included in a payout
	AllocationStateEligible AllocationState = "ELIGIBLE"
	// AllocationStateReleased indicates funds left escrow in a paid payout; terminal
	AllocationStateReleased AllocationState = "RELEASED"
)

// EscrowAllocation is the portion of a buyer's payment attributable to one
// seller's shipment. It is owned by its EscrowPayment and never exists
// without one.
//
// Amount invariants, preserved by every mutation:
//
//	0 <= RefundedAmount <= SellerAmount + ShippingAmount
//	0 <= RefundedCommissionAmount <= CommissionAmount
//	RemainingPayout() >= 0
type EscrowAllocation struct {
	shared.BaseEntity

	PaymentID  uuid.UUID
	ShipmentID uuid.UUID
	StoreID    uuid.UUID
	SellerID   uuid.UUID

	// SellerAmount is the gross shipment subtotal; commission is carried
	// separately and subtracted when computing the remaining payout.
	SellerAmount   decimal.Decimal
	ShippingAmount decimal.Decimal

	CommissionAmount decimal.Decimal
	// CommissionRate is snapshotted at creation; later rule edits never
	// retroactively change it.
	CommissionRate decimal.Decimal

	RefundedAmount           decimal.Decimal
	RefundedCommissionAmount decimal.Decimal

	Currency valueobject.Currency

	EligibleForPayoutAt *time.Time
	ReleasedAt          *time.Time
	PayoutReference     string
}

// State returns the lifecycle state of the allocation
func (a *EscrowAllocation) State() AllocationState {
	switch {
	case a.ReleasedAt != nil:
		return AllocationStateReleased
	case a.EligibleForPayoutAt != nil:
		return AllocationStateEligible
	default:
		return AllocationStateHeld
	}
}

// IsReleased returns true if the allocation's funds left escrow
func (a *EscrowAllocation) IsReleased() bool {
	return a.ReleasedAt != nil
}

// IsEligible returns true if the allocation may be included in a payout
func (a *EscrowAllocation) IsEligible() bool {
	return a.EligibleForPayoutAt != nil && a.ReleasedAt == nil
}

// GrossAmount returns seller amount plus shipping
func (a *EscrowAllocation) GrossAmount() valueobject.Money {
	m, _ := valueobject.NewMoney(a.SellerAmount.Add(a.ShippingAmount), a.Currency)
	return m
}

// OutstandingGross returns the gross amount not yet refunded
func (a *EscrowAllocation) OutstandingGross() valueobject.Money {
	m, _ := valueobject.NewMoney(a.SellerAmount.Add(a.ShippingAmount).Sub(a.RefundedAmount), a.Currency)
	return m
}

// RemainingPayout returns the amount still owed to the seller:
// SellerAmount + ShippingAmount - CommissionAmount - RefundedAmount + RefundedCommissionAmount
func (a *EscrowAllocation) RemainingPayout() valueobject.Money {
	amount := a.SellerAmount.
		Add(a.ShippingAmount).
		Sub(a.CommissionAmount).
		Sub(a.RefundedAmount).
		Add(a.RefundedCommissionAmount)
	m, _ := valueobject.NewMoney(amount, a.Currency)
	return m
}

// MarkEligible records that the shipment was delivered and the funds may be
// paid out. Already-eligible and released allocations are left untouched;
// the returned bool reports whether anything changed.
func (a *EscrowAllocation) MarkEligible(at time.Time) bool {
	if a.EligibleForPayoutAt != nil || a.ReleasedAt != nil {
		return false
	}
	a.EligibleForPayoutAt = &at
	a.UpdatedAt = time.Now()
	return true
}

// Refund reduces the allocation by the given gross amount and refunds
// commission proportionally. A nil amount refunds the full outstanding
// balance. Refunding a released allocation is unsupported: the funds have
// already been transferred and the correction belongs in a settlement
// adjustment of a later period.
func (a *EscrowAllocation) Refund(amount *valueobject.Money) error {
	if a.ReleasedAt != nil {
		return shared.ErrUnsupportedRefund
	}

	outstanding := a.OutstandingGross()
	refund := outstanding
	if amount != nil {
		if amount.Currency() != a.Currency {
			return shared.ErrCurrencyMismatch
		}
		if !amount.IsPositive() {
			return shared.NewDomainError("INVALID_AMOUNT", "Refund amount must be positive")
		}
		exceeds, err := amount.GreaterThan(outstanding)
		if err != nil {
			return err
		}
		if exceeds {
			return shared.NewDomainError("REFUND_EXCEEDS_BALANCE",
				fmt.Sprintf("Refund of %s exceeds outstanding balance %s", amount, outstanding))
		}
		refund = *amount
	}
	if refund.IsZero() {
		return shared.NewDomainError("INVALID_AMOUNT", "Nothing left to refund")
	}

	gross := a.SellerAmount.Add(a.ShippingAmount)
	// Commission is returned in proportion to the refunded share of the gross.
	// The refund that exhausts the gross returns the commission remainder
	// exactly, so per-refund rounding can never leave the remaining payout
	// negative.
	var commissionRefund decimal.Decimal
	if a.RefundedAmount.Add(refund.Amount()).Equal(gross) {
		commissionRefund = a.CommissionAmount.Sub(a.RefundedCommissionAmount)
	} else {
		commissionRefund = a.CommissionAmount.Mul(refund.Amount()).Div(gross).RoundBank(2)
		if a.RefundedCommissionAmount.Add(commissionRefund).GreaterThan(a.CommissionAmount) {
			commissionRefund = a.CommissionAmount.Sub(a.RefundedCommissionAmount)
		}
	}

	a.RefundedAmount = a.RefundedAmount.Add(refund.Amount())
	a.RefundedCommissionAmount = a.RefundedCommissionAmount.Add(commissionRefund)
	a.UpdatedAt = time.Now()
	return nil
}

// Release irrevocably marks the allocation as paid out under the given
// payout reference. Releasing an already-released allocation is a no-op so
// payout retries can replay the release safely; the returned bool reports
// whether the state changed.
func (a *EscrowAllocation) Release(reference string, at time.Time) bool {
	if a.ReleasedAt != nil {
		return false
	}
	a.ReleasedAt = &at
	a.PayoutReference = reference
	a.UpdatedAt = time.Now()
	return true
}

// EscrowPayment is the append-only record of funds held for one paid order.
// Exactly one exists per order; it owns one EscrowAllocation per shipment.
type EscrowPayment struct {
	shared.BaseAggregateRoot

	OrderID     uuid.UUID
	OrderNumber string
	TotalAmount decimal.Decimal
	Currency    valueobject.Currency
	Allocations []EscrowAllocation
}

// NewEscrowPayment creates the escrow record for a paid order
func NewEscrowPayment(orderID uuid.UUID, orderNumber string, total valueobject.Money) (*EscrowPayment, error) {
	if orderID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "Order ID cannot be empty")
	}
	if !total.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Order total must be positive")
	}

	p := &EscrowPayment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderID:           orderID,
		OrderNumber:       orderNumber,
		TotalAmount:       total.Amount(),
		Currency:          total.Currency(),
		Allocations:       make([]EscrowAllocation, 0),
	}
	return p, nil
}

// AddAllocation appends an allocation for one shipment. Amounts must share
// the payment's currency; a shipment may be allocated only once.
func (p *EscrowPayment) AddAllocation(
	shipmentID, storeID, sellerID uuid.UUID,
	subtotal, shipping valueobject.Money,
	commissionRate decimal.Decimal,
	commissionAmount valueobject.Money,
) (*EscrowAllocation, error) {
	if shipmentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SHIPMENT", "Shipment ID cannot be empty")
	}
	if storeID == uuid.Nil || sellerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STORE", "Store and seller IDs cannot be empty")
	}
	if subtotal.Currency() != p.Currency || shipping.Currency() != p.Currency || commissionAmount.Currency() != p.Currency {
		return nil, shared.ErrCurrencyMismatch
	}
	if subtotal.IsNegative() || shipping.IsNegative() || commissionAmount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Allocation amounts cannot be negative")
	}
	if gt, _ := commissionAmount.GreaterThan(subtotal); gt {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Commission cannot exceed the shipment subtotal")
	}
	if p.FindAllocationByShipment(shipmentID) != nil {
		return nil, shared.NewDomainError("DUPLICATE_SHIPMENT", "Shipment is already allocated")
	}

	alloc := EscrowAllocation{
		BaseEntity:               shared.NewBaseEntity(),
		PaymentID:                p.ID,
		ShipmentID:               shipmentID,
		StoreID:                  storeID,
		SellerID:                 sellerID,
		SellerAmount:             subtotal.Amount(),
		ShippingAmount:           shipping.Amount(),
		CommissionAmount:         commissionAmount.Amount(),
		CommissionRate:           commissionRate,
		RefundedAmount:           decimal.Zero,
		RefundedCommissionAmount: decimal.Zero,
		Currency:                 p.Currency,
	}
	p.Allocations = append(p.Allocations, alloc)
	return &p.Allocations[len(p.Allocations)-1], nil
}

// FindAllocationByShipment returns the allocation for a shipment, or nil
func (p *EscrowPayment) FindAllocationByShipment(shipmentID uuid.UUID) *EscrowAllocation {
	for i := range p.Allocations {
		if p.Allocations[i].ShipmentID == shipmentID {
			return &p.Allocations[i]
		}
	}
	return nil
}

// AllocatedTotal returns the sum of all allocations' gross amounts
func (p *EscrowPayment) AllocatedTotal() valueobject.Money {
	total := valueobject.Zero(p.Currency)
	for i := range p.Allocations {
		total = total.MustAdd(p.Allocations[i].GrossAmount())
	}
	return total
}

// MarkShipmentEligible marks the shipment's allocation eligible for payout.
// Unknown shipments are an error; repeated delivery confirmations are not.
func (p *EscrowPayment) MarkShipmentEligible(shipmentID uuid.UUID, at time.Time) (*EscrowAllocation, bool, error) {
	alloc := p.FindAllocationByShipment(shipmentID)
	if alloc == nil {
		return nil, false, shared.ErrNotFound
	}
	changed := alloc.MarkEligible(at)
	if changed {
		p.AddDomainEvent(NewAllocationEligibleEvent(p, alloc))
	}
	return alloc, changed, nil
}

// RefundShipment refunds part or all of the shipment's allocation
func (p *EscrowPayment) RefundShipment(shipmentID uuid.UUID, amount *valueobject.Money) (*EscrowAllocation, error) {
	alloc := p.FindAllocationByShipment(shipmentID)
	if alloc == nil {
		return nil, shared.ErrNotFound
	}
	if err := alloc.Refund(amount); err != nil {
		return nil, err
	}
	p.AddDomainEvent(NewAllocationRefundedEvent(p, alloc))
	return alloc, nil
}
