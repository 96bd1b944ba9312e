package payout

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared/valueobject"
)

// Status represents the status of a seller payout
type Status string

const (
	// StatusScheduled indicates the payout is waiting for its scheduled date
	StatusScheduled Status = "SCHEDULED"
	// StatusProcessing indicates a transfer is in flight
	StatusProcessing Status = "PROCESSING"
	// StatusPaid indicates the transfer succeeded; terminal
	StatusPaid Status = "PAID"
	// StatusFailed indicates the transfer failed; terminal once retries are exhausted
	StatusFailed Status = "FAILED"
)

// IsValid checks if the status is a valid payout Status
func (s Status) IsValid() bool {
	switch s {
	case StatusScheduled, StatusProcessing, StatusPaid, StatusFailed:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// Method represents how a payout is transferred to the seller
type Method string

const (
	// MethodSEPA is a SEPA credit transfer
	MethodSEPA Method = "SEPA"
	// MethodBankTransfer is a generic bank wire
	MethodBankTransfer Method = "BANK_TRANSFER"
)

// IsValid checks if the method is valid
func (m Method) IsValid() bool {
	switch m {
	case MethodSEPA, MethodBankTransfer:
		return true
	}
	return false
}

// Item is a point-in-time snapshot of one allocation's contribution to a
// payout. Amount is copied at scheduling time; later ledger changes do not
// alter it.
type Item struct {
	shared.BaseEntity
	PayoutID     uuid.UUID
	AllocationID uuid.UUID
	Amount       decimal.Decimal
}

// SellerPayout is one payable batch of eligible allocations for a seller.
// Invariant: TotalAmount always equals the sum of item amounts, and an
// allocation belongs to at most one payout that is not Failed.
type SellerPayout struct {
	shared.BaseAggregateRoot

	StoreID  uuid.UUID
	SellerID uuid.UUID
	Currency valueobject.Currency

	TotalAmount decimal.Decimal
	Status      Status

	ScheduledDate   time.Time
	PayoutMethod    Method
	PayoutReference string

	ErrorReference string
	ErrorMessage   string
	RetryCount     int
	MaxRetries     int
	NextRetryAt    *time.Time

	Items []Item
}

// NewSellerPayout creates an empty scheduled payout for a seller
func NewSellerPayout(
	storeID, sellerID uuid.UUID,
	currency valueobject.Currency,
	scheduledDate time.Time,
	method Method,
	maxRetries int,
) (*SellerPayout, error) {
	if storeID == uuid.Nil || sellerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STORE", "Store and seller IDs cannot be empty")
	}
	if !currency.IsValid() {
		return nil, shared.NewDomainError("INVALID_CURRENCY", "Invalid payout currency")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_METHOD", "Invalid payout method")
	}
	if maxRetries < 0 {
		return nil, shared.NewDomainError("INVALID_RETRIES", "Max retries cannot be negative")
	}

	p := &SellerPayout{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		StoreID:           storeID,
		SellerID:          sellerID,
		Currency:          currency,
		TotalAmount:       decimal.Zero,
		Status:            StatusScheduled,
		ScheduledDate:     scheduledDate,
		PayoutMethod:      method,
		MaxRetries:        maxRetries,
		Items:             make([]Item, 0),
	}
	return p, nil
}

// AddItem snapshots an allocation's remaining amount into the payout.
// Items may only be added while the payout is still Scheduled.
func (p *SellerPayout) AddItem(allocationID uuid.UUID, amount valueobject.Money) error {
	if p.Status != StatusScheduled {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot add items to a %s payout", p.Status))
	}
	if amount.Currency() != p.Currency {
		return shared.ErrCurrencyMismatch
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Payout item amount must be positive")
	}
	for i := range p.Items {
		if p.Items[i].AllocationID == allocationID {
			return shared.NewDomainError("DUPLICATE_ALLOCATION", "Allocation is already part of this payout")
		}
	}

	item := Item{
		BaseEntity:   shared.NewBaseEntity(),
		PayoutID:     p.ID,
		AllocationID: allocationID,
		Amount:       amount.Amount(),
	}
	p.Items = append(p.Items, item)
	p.TotalAmount = p.TotalAmount.Add(amount.Amount())
	p.UpdatedAt = time.Now()
	return nil
}

// Total returns the payout total as Money
func (p *SellerPayout) Total() valueobject.Money {
	m, _ := valueobject.NewMoney(p.TotalAmount, p.Currency)
	return m
}

// AllocationIDs returns the IDs of all referenced allocations
func (p *SellerPayout) AllocationIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(p.Items))
	for i := range p.Items {
		ids[i] = p.Items[i].AllocationID
	}
	return ids
}

// CanRetry reports whether a failed payout may be attempted again
func (p *SellerPayout) CanRetry() bool {
	return p.Status == StatusFailed && p.RetryCount < p.MaxRetries
}

// IsTerminal reports whether no further transition is possible
func (p *SellerPayout) IsTerminal() bool {
	return p.Status == StatusPaid || (p.Status == StatusFailed && !p.CanRetry())
}

// MarkProcessing transitions the payout into Processing for a transfer attempt
func (p *SellerPayout) MarkProcessing() error {
	next, _, err := Transition(p.transitionState(), EventProcess)
	if err != nil {
		return err
	}
	p.Status = next.Status
	p.UpdatedAt = time.Now()
	return nil
}

// MarkPaid records a successful transfer. The payout reference is generated
// from the completion time and the payout ID.
func (p *SellerPayout) MarkPaid(at time.Time) error {
	next, _, err := Transition(p.transitionState(), EventSucceed)
	if err != nil {
		return err
	}
	p.Status = next.Status
	p.PayoutReference = GenerateReference(p.ID, at)
	p.ErrorReference = ""
	p.ErrorMessage = ""
	p.NextRetryAt = nil
	p.UpdatedAt = time.Now()

	p.AddDomainEvent(NewPayoutPaidEvent(p))
	return nil
}

// MarkFailed records a failed transfer attempt and schedules the next retry
// while retries remain
func (p *SellerPayout) MarkFailed(errorReference, errorMessage string, retryDelay time.Duration) error {
	next, effects, err := Transition(p.transitionState(), EventFail)
	if err != nil {
		return err
	}
	p.Status = next.Status
	p.RetryCount = next.RetryCount
	p.ErrorReference = errorReference
	p.ErrorMessage = errorMessage
	if effects.ScheduleRetry {
		at := time.Now().Add(retryDelay)
		p.NextRetryAt = &at
	} else {
		p.NextRetryAt = nil
	}
	p.UpdatedAt = time.Now()

	p.AddDomainEvent(NewPayoutFailedEvent(p, !effects.ScheduleRetry))
	return nil
}

func (p *SellerPayout) transitionState() State {
	return State{
		Status:     p.Status,
		RetryCount: p.RetryCount,
		MaxRetries: p.MaxRetries,
	}
}

// GenerateReference builds the external payout reference:
// PO-{yyyyMMddHHmmss}-{first 8 hex chars of the payout ID}
func GenerateReference(id uuid.UUID, at time.Time) string {
	hexID := strings.ReplaceAll(id.String(), "-", "")
	return fmt.Sprintf("PO-%s-%s", at.Format("20060102150405"), hexID[:8])
}
