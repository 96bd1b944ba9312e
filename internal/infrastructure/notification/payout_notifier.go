// Package notification delivers payout outcome notices. The log notifier
// stands in for the platform's messaging integration; it records every notice
// so operations can act on terminal failures.
package notification

import (
	"context"

	"go.uber.org/zap"

	apppayout "github.com/SebastianDabkowski/mercato-2-sub001/internal/application/payout"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/payout"
)

// LogNotifier implements the payout Notifier contract on top of structured
// logging
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a new LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// NotifyPayoutFailed reports a failed transfer attempt. Terminal failures are
// escalated at error level so operations picks them up.
func (n *LogNotifier) NotifyPayoutFailed(ctx context.Context, p *payout.SellerPayout, terminal bool) {
	fields := []zap.Field{
		zap.String("payout_id", p.ID.String()),
		zap.String("store_id", p.StoreID.String()),
		zap.String("amount", p.TotalAmount.String()),
		zap.String("currency", string(p.Currency)),
		zap.String("error_reference", p.ErrorReference),
		zap.String("error_message", p.ErrorMessage),
		zap.Int("retry_count", p.RetryCount),
	}
	if terminal {
		n.logger.Error("payout failed permanently, manual intervention required", fields...)
		return
	}
	n.logger.Warn("payout attempt failed, retry pending", fields...)
}

// NotifyPayoutPaid reports a completed payout
func (n *LogNotifier) NotifyPayoutPaid(ctx context.Context, p *payout.SellerPayout) {
	n.logger.Info("payout completed",
		zap.String("payout_id", p.ID.String()),
		zap.String("store_id", p.StoreID.String()),
		zap.String("seller_id", p.SellerID.String()),
		zap.String("amount", p.TotalAmount.String()),
		zap.String("currency", string(p.Currency)),
		zap.String("payout_reference", p.PayoutReference),
	)
}

// Ensure LogNotifier implements Notifier
var _ apppayout.Notifier = (*LogNotifier)(nil)
