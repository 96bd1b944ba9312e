package payout

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared/valueobject"
)

// Settings is the read model of a store's payout configuration. The
// configuration itself is owned by the seller-onboarding domain; scheduling
// only needs the transfer coordinates and the verification flag.
type Settings struct {
	StoreID          uuid.UUID
	Method           Method
	AccountHolder    string
	IBAN             string
	BIC              string
	Verified         bool
	VerifiedAt       *time.Time
}

// SettingsReader provides read-only access to payout settings
type SettingsReader interface {
	// FindByStore returns the store's payout settings, nil if none configured
	FindByStore(ctx context.Context, storeID uuid.UUID) (*Settings, error)
}

// TransferRequest is the instruction handed to the bank gateway
type TransferRequest struct {
	PayoutID      uuid.UUID
	Amount        valueobject.Money
	Method        Method
	AccountHolder string
	IBAN          string
	BIC           string
	Description   string
}

// TransferResult is the gateway's acknowledgement of an accepted transfer
type TransferResult struct {
	GatewayReference string
	AcceptedAt       time.Time
}

// TransferError is returned by the gateway when a transfer is rejected or
// fails in flight. ErrorReference identifies the failure at the gateway for
// support follow-up.
type TransferError struct {
	ErrorReference string
	Message        string
}

// Error implements the error interface
func (e *TransferError) Error() string {
	return e.Message
}

// TransferGateway executes transfers against the bank or payment provider.
// Real transport lives outside this system; adapters simulate it at the
// boundary.
type TransferGateway interface {
	// Transfer executes a single credit transfer. Failures are reported as
	// *TransferError so the caller can record the gateway's error reference.
	Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
}
