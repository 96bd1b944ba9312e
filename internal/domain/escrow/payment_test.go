package escrow_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/escrow"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared/valueobject"
)

func eur(f float64) valueobject.Money {
	return valueobject.NewMoneyEUR(decimal.NewFromFloat(f))
}

// newTestPayment builds a payment for a €110 order with two shipments:
// €50 + €5 shipping and €50 + €5 shipping, both at 10% commission.
func newTestPayment(t *testing.T) *escrow.EscrowPayment {
	t.Helper()
	p, err := escrow.NewEscrowPayment(uuid.New(), "ORD-2026-00042", eur(110))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = p.AddAllocation(
			uuid.New(), uuid.New(), uuid.New(),
			eur(50), eur(5),
			decimal.NewFromInt(10), eur(5),
		)
		require.NoError(t, err)
	}
	return p
}

func TestNewEscrowPayment_Validation(t *testing.T) {
	_, err := escrow.NewEscrowPayment(uuid.Nil, "ORD-1", eur(10))
	assert.Error(t, err)

	_, err = escrow.NewEscrowPayment(uuid.New(), "ORD-1", eur(0))
	assert.Error(t, err)

	p, err := escrow.NewEscrowPayment(uuid.New(), "ORD-1", eur(10))
	require.NoError(t, err)
	assert.Equal(t, valueobject.EUR, p.Currency)
	assert.Empty(t, p.Allocations)
}

func TestAddAllocation(t *testing.T) {
	p := newTestPayment(t)
	require.Len(t, p.Allocations, 2)

	alloc := &p.Allocations[0]
	assert.Equal(t, escrow.AllocationStateHeld, alloc.State())
	assert.True(t, alloc.RemainingPayout().Amount().Equal(decimal.NewFromInt(50)), "50+5-5")
	assert.True(t, p.AllocatedTotal().Amount().Equal(decimal.NewFromInt(110)))
}

func TestAddAllocation_DuplicateShipment(t *testing.T) {
	p, err := escrow.NewEscrowPayment(uuid.New(), "ORD-1", eur(55))
	require.NoError(t, err)

	shipmentID := uuid.New()
	_, err = p.AddAllocation(shipmentID, uuid.New(), uuid.New(), eur(50), eur(5), decimal.NewFromInt(10), eur(5))
	require.NoError(t, err)

	_, err = p.AddAllocation(shipmentID, uuid.New(), uuid.New(), eur(50), eur(5), decimal.NewFromInt(10), eur(5))
	require.Error(t, err)
	var derr *shared.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "DUPLICATE_SHIPMENT", derr.Code)
}

func TestAddAllocation_CurrencyMismatch(t *testing.T) {
	p, err := escrow.NewEscrowPayment(uuid.New(), "ORD-1", eur(55))
	require.NoError(t, err)

	usd, _ := valueobject.NewMoney(decimal.NewFromInt(50), valueobject.USD)
	_, err = p.AddAllocation(uuid.New(), uuid.New(), uuid.New(), usd, eur(5), decimal.NewFromInt(10), eur(5))
	assert.ErrorIs(t, err, shared.ErrCurrencyMismatch)
}

func TestMarkShipmentEligible(t *testing.T) {
	p := newTestPayment(t)
	shipmentID := p.Allocations[0].ShipmentID
	now := time.Now()

	alloc, changed, err := p.MarkShipmentEligible(shipmentID, now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, escrow.AllocationStateEligible, alloc.State())
	require.NotNil(t, alloc.EligibleForPayoutAt)
	assert.Equal(t, now, *alloc.EligibleForPayoutAt)

	// Webhook re-delivery: second call is a no-op, not an error
	_, changed, err = p.MarkShipmentEligible(shipmentID, now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, now, *alloc.EligibleForPayoutAt)

	_, _, err = p.MarkShipmentEligible(uuid.New(), now)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestMarkEligible_ReleasedIsNoop(t *testing.T) {
	p := newTestPayment(t)
	alloc := &p.Allocations[0]
	alloc.Release("PO-x", time.Now())

	changed := alloc.MarkEligible(time.Now())
	assert.False(t, changed)
	assert.Nil(t, alloc.EligibleForPayoutAt)
}

func TestRefund_Partial(t *testing.T) {
	p := newTestPayment(t)
	alloc := &p.Allocations[0]

	// Refund €11 of the €55 gross: commission refund is proportional (€1)
	amount := eur(11)
	_, err := p.RefundShipment(alloc.ShipmentID, &amount)
	require.NoError(t, err)

	assert.True(t, alloc.RefundedAmount.Equal(decimal.NewFromInt(11)))
	assert.True(t, alloc.RefundedCommissionAmount.Equal(decimal.NewFromInt(1)))
	// 50+5-5-11+1 = 40
	assert.True(t, alloc.RemainingPayout().Amount().Equal(decimal.NewFromInt(40)))
}

func TestRefund_Full(t *testing.T) {
	p := newTestPayment(t)
	alloc := &p.Allocations[0]

	_, err := p.RefundShipment(alloc.ShipmentID, nil)
	require.NoError(t, err)

	assert.True(t, alloc.RefundedAmount.Equal(decimal.NewFromInt(55)))
	assert.True(t, alloc.RefundedCommissionAmount.Equal(decimal.NewFromInt(5)))
	assert.True(t, alloc.RemainingPayout().IsZero())
}

func TestRefund_ExceedsOutstanding(t *testing.T) {
	p := newTestPayment(t)
	alloc := &p.Allocations[0]

	amount := eur(56)
	_, err := p.RefundShipment(alloc.ShipmentID, &amount)
	require.Error(t, err)
	var derr *shared.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "REFUND_EXCEEDS_BALANCE", derr.Code)
}

func TestRefund_NeverExceedsGross(t *testing.T) {
	p := newTestPayment(t)
	alloc := &p.Allocations[0]
	gross := alloc.SellerAmount.Add(alloc.ShippingAmount)

	// A sequence of partial refunds can never push RefundedAmount past gross
	for i := 0; i < 10; i++ {
		amount := eur(10)
		if _, err := p.RefundShipment(alloc.ShipmentID, &amount); err != nil {
			break
		}
	}
	assert.True(t, alloc.RefundedAmount.LessThanOrEqual(gross))
	assert.True(t, alloc.RefundedCommissionAmount.LessThanOrEqual(alloc.CommissionAmount))
	assert.False(t, alloc.RemainingPayout().IsNegative())
}

func TestRefund_ExhaustingGrossReturnsCommissionExactly(t *testing.T) {
	p, err := escrow.NewEscrowPayment(uuid.New(), "ORD-2026-00043", eur(3))
	require.NoError(t, err)
	alloc, err := p.AddAllocation(
		uuid.New(), uuid.New(), uuid.New(),
		eur(3), eur(0),
		decimal.NewFromFloat(33.33), eur(1),
	)
	require.NoError(t, err)

	// Each €1 refund rounds its €0.333... commission share down to €0.33;
	// the refund that empties the gross must return the €0.34 remainder.
	for i := 0; i < 3; i++ {
		amount := eur(1)
		_, err := p.RefundShipment(alloc.ShipmentID, &amount)
		require.NoError(t, err)
	}

	assert.True(t, alloc.RefundedAmount.Equal(decimal.NewFromInt(3)))
	assert.True(t, alloc.RefundedCommissionAmount.Equal(alloc.CommissionAmount))
	assert.True(t, alloc.RemainingPayout().IsZero())
	assert.False(t, alloc.RemainingPayout().IsNegative())
}

func TestRefund_ReleasedAllocationUnsupported(t *testing.T) {
	p := newTestPayment(t)
	alloc := &p.Allocations[0]
	alloc.Release("PO-20260101120000-deadbeef", time.Now())

	_, err := p.RefundShipment(alloc.ShipmentID, nil)
	assert.ErrorIs(t, err, shared.ErrUnsupportedRefund)
}

func TestRelease_Idempotent(t *testing.T) {
	p := newTestPayment(t)
	alloc := &p.Allocations[0]
	first := time.Now()

	assert.True(t, alloc.Release("PO-a", first))
	assert.Equal(t, escrow.AllocationStateReleased, alloc.State())

	// Replay during payout retry must not change anything
	assert.False(t, alloc.Release("PO-b", first.Add(time.Hour)))
	assert.Equal(t, "PO-a", alloc.PayoutReference)
	assert.Equal(t, first, *alloc.ReleasedAt)
}

func TestEligibleEvent_RaisedOnce(t *testing.T) {
	p := newTestPayment(t)
	shipmentID := p.Allocations[0].ShipmentID

	_, _, err := p.MarkShipmentEligible(shipmentID, time.Now())
	require.NoError(t, err)
	_, _, err = p.MarkShipmentEligible(shipmentID, time.Now())
	require.NoError(t, err)

	events := p.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, escrow.EventTypeAllocationEligible, events[0].EventType())
}
