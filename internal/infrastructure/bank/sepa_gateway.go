// Package bank adapts the payout transfer contract to a payment provider.
// The simulated gateway validates and acknowledges transfers locally so the
// rest of the system can be exercised without a bank connection.
package bank

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/payout"
)

const referenceTimeLayout = "20060102150405"

// SimulatedGatewayConfig configures the simulated transfer gateway
type SimulatedGatewayConfig struct {
	// ProviderName is recorded in gateway references
	ProviderName string
	// ProcessingDelay artificially delays each transfer; zero means none
	ProcessingDelay time.Duration
}

// Validate checks the configuration
func (c *SimulatedGatewayConfig) Validate() error {
	if c.ProviderName == "" {
		return fmt.Errorf("provider name is required")
	}
	return nil
}

// SimulatedGateway implements payout.TransferGateway without external I/O.
// Transfers are validated and acknowledged immediately.
type SimulatedGateway struct {
	config *SimulatedGatewayConfig
	logger *zap.Logger
}

// NewSimulatedGateway creates a new simulated transfer gateway
func NewSimulatedGateway(config *SimulatedGatewayConfig, logger *zap.Logger) (*SimulatedGateway, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &SimulatedGateway{
		config: config,
		logger: logger,
	}, nil
}

// Transfer validates the request and acknowledges the transfer. Rejections
// are reported as *payout.TransferError with an error reference.
func (g *SimulatedGateway) Transfer(ctx context.Context, req payout.TransferRequest) (*payout.TransferResult, error) {
	if req.Amount.Amount().IsZero() || req.Amount.Amount().IsNegative() {
		return nil, g.reject(req, "INVALID_AMOUNT", "transfer amount must be positive")
	}
	if req.AccountHolder == "" {
		return nil, g.reject(req, "MISSING_HOLDER", "account holder name is required")
	}
	if err := validateIBAN(req.IBAN); err != nil {
		return nil, g.reject(req, "INVALID_IBAN", err.Error())
	}

	if g.config.ProcessingDelay > 0 {
		select {
		case <-time.After(g.config.ProcessingDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	now := time.Now()
	reference := fmt.Sprintf("%s-%s-%s",
		strings.ToUpper(g.config.ProviderName),
		now.Format(referenceTimeLayout),
		randomHex(6),
	)

	g.logger.Info("transfer accepted",
		zap.String("payout_id", req.PayoutID.String()),
		zap.String("amount", req.Amount.String()),
		zap.String("method", string(req.Method)),
		zap.String("gateway_reference", reference),
	)

	return &payout.TransferResult{
		GatewayReference: reference,
		AcceptedAt:       now,
	}, nil
}

func (g *SimulatedGateway) reject(req payout.TransferRequest, code, message string) *payout.TransferError {
	reference := fmt.Sprintf("ERR-%s-%s", code, randomHex(4))
	g.logger.Warn("transfer rejected",
		zap.String("payout_id", req.PayoutID.String()),
		zap.String("error_reference", reference),
		zap.String("reason", message),
	)
	return &payout.TransferError{
		ErrorReference: reference,
		Message:        message,
	}
}

// validateIBAN performs the ISO 13616 length and mod-97 checksum validation
func validateIBAN(iban string) error {
	iban = strings.ToUpper(strings.ReplaceAll(iban, " ", ""))
	if len(iban) < 15 || len(iban) > 34 {
		return fmt.Errorf("IBAN length %d is out of range", len(iban))
	}
	for _, r := range iban {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return fmt.Errorf("IBAN contains invalid character %q", r)
		}
	}

	// Move the country code and check digits to the end, then expand letters
	rearranged := iban[4:] + iban[:4]
	var sb strings.Builder
	for _, r := range rearranged {
		if r >= 'A' && r <= 'Z' {
			sb.WriteString(fmt.Sprintf("%d", r-'A'+10))
		} else {
			sb.WriteRune(r)
		}
	}

	value, ok := new(big.Int).SetString(sb.String(), 10)
	if !ok {
		return fmt.Errorf("IBAN checksum could not be computed")
	}
	if new(big.Int).Mod(value, big.NewInt(97)).Int64() != 1 {
		return fmt.Errorf("IBAN checksum is invalid")
	}
	return nil
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return strings.Repeat("0", n*2)
	}
	return hex.EncodeToString(buf)
}

// Ensure SimulatedGateway implements TransferGateway
var _ payout.TransferGateway = (*SimulatedGateway)(nil)
