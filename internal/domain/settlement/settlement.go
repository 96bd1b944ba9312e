package settlement

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/escrow"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared/valueobject"
)

// Status represents the workflow state of a settlement.
// The workflow is strictly linear: Draft -> Finalized -> Approved -> Exported.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusFinalized Status = "FINALIZED"
	StatusApproved  Status = "APPROVED"
	StatusExported  Status = "EXPORTED"
)

// IsValid checks if the status is a valid settlement Status
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusFinalized, StatusApproved, StatusExported:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// Item is a point-in-time copy of one escrow allocation's monetary values.
// Later ledger changes never alter an item that has been generated.
type Item struct {
	shared.BaseEntity
	SettlementID uuid.UUID
	AllocationID uuid.UUID
	OrderID      uuid.UUID
	OrderNumber  string
	ShipmentID   uuid.UUID

	SellerAmount             decimal.Decimal
	ShippingAmount           decimal.Decimal
	CommissionAmount         decimal.Decimal
	RefundedAmount           decimal.Decimal
	RefundedCommissionAmount decimal.Decimal

	// NetAmount is the allocation's remaining seller payout at snapshot time
	NetAmount decimal.Decimal
}

// Adjustment is a manual, signed correction line referencing a different
// original accounting period
type Adjustment struct {
	shared.BaseEntity
	SettlementID       uuid.UUID
	OriginalYear       int
	OriginalMonth      int
	Amount             decimal.Decimal
	Reason             string
	RelatedOrderID     *uuid.UUID
	RelatedOrderNumber string
}

// Settlement is the monthly statement of a store's fund flow. One exists per
// (store, year, month, version); once Finalized it is never mutated in place
// and regeneration creates a new version instead.
type Settlement struct {
	shared.BaseAggregateRoot

	StoreID  uuid.UUID
	SellerID uuid.UUID

	Year    int
	Month   int
	Version int

	SettlementNumber string
	Currency         valueobject.Currency

	GrossSales       decimal.Decimal
	TotalShipping    decimal.Decimal
	TotalCommission  decimal.Decimal
	TotalRefunds     decimal.Decimal
	TotalAdjustments decimal.Decimal
	NetPayable       decimal.Decimal
	OrderCount       int

	Status      Status
	PeriodStart time.Time
	PeriodEnd   time.Time

	Items       []Item
	Adjustments []Adjustment

	Notes      string
	ApprovedBy *uuid.UUID

	FinalizedAt *time.Time
	ApprovedAt  *time.Time
	ExportedAt  *time.Time
}

// NewSettlement creates a draft settlement for a store and period
func NewSettlement(
	storeID, sellerID uuid.UUID,
	year, month, version int,
	currency valueobject.Currency,
) (*Settlement, error) {
	if storeID == uuid.Nil || sellerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STORE", "Store and seller IDs cannot be empty")
	}
	if month < 1 || month > 12 {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Month must be between 1 and 12")
	}
	if year < 2000 || year > 2200 {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Year is out of range")
	}
	if version < 1 {
		return nil, shared.NewDomainError("INVALID_VERSION", "Version must be at least 1")
	}
	if !currency.IsValid() {
		return nil, shared.NewDomainError("INVALID_CURRENCY", "Invalid settlement currency")
	}

	start, end := PeriodBounds(year, month)
	s := &Settlement{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		StoreID:           storeID,
		SellerID:          sellerID,
		Year:              year,
		Month:             month,
		Version:           version,
		Currency:          currency,
		GrossSales:        decimal.Zero,
		TotalShipping:     decimal.Zero,
		TotalCommission:   decimal.Zero,
		TotalRefunds:      decimal.Zero,
		TotalAdjustments:  decimal.Zero,
		NetPayable:        decimal.Zero,
		Status:            StatusDraft,
		PeriodStart:       start,
		PeriodEnd:         end,
		Items:             make([]Item, 0),
		Adjustments:       make([]Adjustment, 0),
	}
	s.SettlementNumber = generateNumber(s)
	return s, nil
}

// PeriodBounds returns the half-open [start, end) boundaries of a month in UTC
func PeriodBounds(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

func generateNumber(s *Settlement) string {
	storeHex := strings.ReplaceAll(s.StoreID.String(), "-", "")[:8]
	return fmt.Sprintf("ST-%04d%02d-%s-V%d", s.Year, s.Month, storeHex, s.Version)
}

// AddItemFromAllocation copies an allocation's historical values into the
// settlement and re-derives the totals by summation. Totals are never
// recomputed from current commission rules.
func (s *Settlement) AddItemFromAllocation(a *escrow.EscrowAllocation, orderID uuid.UUID, orderNumber string) error {
	if s.Status != StatusDraft {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot add items to a %s settlement", s.Status))
	}
	if a.Currency != s.Currency {
		return shared.ErrCurrencyMismatch
	}

	item := Item{
		BaseEntity:               shared.NewBaseEntity(),
		SettlementID:             s.ID,
		AllocationID:             a.ID,
		OrderID:                  orderID,
		OrderNumber:              orderNumber,
		ShipmentID:               a.ShipmentID,
		SellerAmount:             a.SellerAmount,
		ShippingAmount:           a.ShippingAmount,
		CommissionAmount:         a.CommissionAmount,
		RefundedAmount:           a.RefundedAmount,
		RefundedCommissionAmount: a.RefundedCommissionAmount,
		NetAmount:                a.RemainingPayout().Amount(),
	}
	s.Items = append(s.Items, item)
	s.recomputeTotals()
	return nil
}

// AddAdjustment appends a signed correction line tied to a different original
// period and recomputes NetPayable. Adjustments are rejected once the
// settlement is Approved or Exported; corrections then belong to a new
// period's settlement.
func (s *Settlement) AddAdjustment(
	originalYear, originalMonth int,
	amount valueobject.Money,
	reason string,
	relatedOrderID *uuid.UUID,
	relatedOrderNumber string,
) (*Adjustment, error) {
	if s.Status != StatusDraft && s.Status != StatusFinalized {
		return nil, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot adjust a %s settlement; record the correction in a new period", s.Status))
	}
	if originalMonth < 1 || originalMonth > 12 {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Original month must be between 1 and 12")
	}
	if originalYear == s.Year && originalMonth == s.Month {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Adjustment must reference a different original period")
	}
	if amount.Currency() != s.Currency {
		return nil, shared.ErrCurrencyMismatch
	}
	if amount.IsZero() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Adjustment amount cannot be zero")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, shared.NewDomainError("INVALID_REASON", "Adjustment reason cannot be empty")
	}

	adj := Adjustment{
		BaseEntity:         shared.NewBaseEntity(),
		SettlementID:       s.ID,
		OriginalYear:       originalYear,
		OriginalMonth:      originalMonth,
		Amount:             amount.Amount(),
		Reason:             reason,
		RelatedOrderID:     relatedOrderID,
		RelatedOrderNumber: relatedOrderNumber,
	}
	s.Adjustments = append(s.Adjustments, adj)
	s.recomputeTotals()
	s.UpdatedAt = time.Now()
	return &s.Adjustments[len(s.Adjustments)-1], nil
}

// recomputeTotals derives every total strictly by summation of snapshots,
// preserving NetPayable == sum(items.NetAmount) + sum(adjustments.Amount)
func (s *Settlement) recomputeTotals() {
	gross := decimal.Zero
	shipping := decimal.Zero
	commission := decimal.Zero
	refunds := decimal.Zero
	net := decimal.Zero
	orders := make(map[uuid.UUID]struct{})

	for i := range s.Items {
		item := &s.Items[i]
		gross = gross.Add(item.SellerAmount)
		shipping = shipping.Add(item.ShippingAmount)
		commission = commission.Add(item.CommissionAmount)
		refunds = refunds.Add(item.RefundedAmount)
		net = net.Add(item.NetAmount)
		orders[item.OrderID] = struct{}{}
	}

	adjustments := decimal.Zero
	for i := range s.Adjustments {
		adjustments = adjustments.Add(s.Adjustments[i].Amount)
	}

	s.GrossSales = gross
	s.TotalShipping = shipping
	s.TotalCommission = commission
	s.TotalRefunds = refunds
	s.TotalAdjustments = adjustments
	s.NetPayable = net.Add(adjustments)
	s.OrderCount = len(orders)
}

// Finalize freezes the settlement's content
func (s *Settlement) Finalize() error {
	if s.Status != StatusDraft {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot finalize a %s settlement", s.Status))
	}
	now := time.Now()
	s.Status = StatusFinalized
	s.FinalizedAt = &now
	s.UpdatedAt = now

	s.AddDomainEvent(NewSettlementFinalizedEvent(s))
	return nil
}

// Approve marks a finalized settlement as approved by the given user
func (s *Settlement) Approve(approvedBy uuid.UUID) error {
	if s.Status != StatusFinalized {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot approve a %s settlement", s.Status))
	}
	if approvedBy == uuid.Nil {
		return shared.NewDomainError("INVALID_APPROVER", "Approver cannot be empty")
	}
	now := time.Now()
	s.Status = StatusApproved
	s.ApprovedBy = &approvedBy
	s.ApprovedAt = &now
	s.UpdatedAt = now
	return nil
}

// MarkExported records that the approved settlement was exported
func (s *Settlement) MarkExported() error {
	if s.Status != StatusApproved {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot export a %s settlement", s.Status))
	}
	now := time.Now()
	s.Status = StatusExported
	s.ExportedAt = &now
	s.UpdatedAt = now
	return nil
}

// NetPayableMoney returns NetPayable as Money
func (s *Settlement) NetPayableMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(s.NetPayable, s.Currency)
	return m
}
