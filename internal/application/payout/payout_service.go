package payout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/escrow"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/payout"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared/valueobject"
)

// Config holds payout policy values
type Config struct {
	// MinimumAmount is the threshold below which eligible funds stay in
	// escrow and roll over to the next cycle
	MinimumAmount valueobject.Money
	// MaxRetries caps the number of transfer attempts per payout
	MaxRetries int
	// RetryDelay is the wait before a failed payout is attempted again
	RetryDelay time.Duration
	// Frequency drives the scheduled date of new payouts
	Frequency payout.Frequency
	// Weekday is the payout day for weekly and biweekly frequencies, and the
	// target weekday within the first week for monthly
	Weekday time.Weekday
}

// Notifier reports payout outcomes to the outside world (seller and
// operations messaging)
type Notifier interface {
	// NotifyPayoutFailed reports a failed transfer attempt; terminal marks
	// exhausted retries
	NotifyPayoutFailed(ctx context.Context, p *payout.SellerPayout, terminal bool)
	// NotifyPayoutPaid reports a completed payout
	NotifyPayoutPaid(ctx context.Context, p *payout.SellerPayout)
}

// ScheduleOutcome describes the result of a scheduling attempt
type ScheduleOutcome string

const (
	// OutcomeScheduled indicates a new payout was created
	OutcomeScheduled ScheduleOutcome = "SCHEDULED"
	// OutcomeMerged indicates the funds joined an existing scheduled payout
	OutcomeMerged ScheduleOutcome = "MERGED"
	// OutcomeBelowThreshold indicates eligible funds stayed in escrow
	OutcomeBelowThreshold ScheduleOutcome = "BELOW_THRESHOLD"
	// OutcomeNoEligibleFunds indicates the store had nothing to pay out
	OutcomeNoEligibleFunds ScheduleOutcome = "NO_ELIGIBLE_FUNDS"
)

// ScheduleResult is the outcome of SchedulePayout. Payout is nil unless the
// outcome is Scheduled or Merged.
type ScheduleResult struct {
	Outcome        ScheduleOutcome
	Payout         *payout.SellerPayout
	EligibleAmount valueobject.Money
}

// PayoutService schedules payouts from eligible escrow allocations and
// drives transfer attempts through the bank gateway
type PayoutService struct {
	payoutRepo     payout.Repository
	escrowRepo     escrow.EscrowPaymentRepository
	settings       payout.SettingsReader
	gateway        payout.TransferGateway
	notifier       Notifier
	cfg            Config
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	now            func() time.Time
}

// NewPayoutService creates a new PayoutService
func NewPayoutService(
	payoutRepo payout.Repository,
	escrowRepo escrow.EscrowPaymentRepository,
	settings payout.SettingsReader,
	gateway payout.TransferGateway,
	notifier Notifier,
	cfg Config,
	logger *zap.Logger,
) *PayoutService {
	return &PayoutService{
		payoutRepo: payoutRepo,
		escrowRepo: escrowRepo,
		settings:   settings,
		gateway:    gateway,
		notifier:   notifier,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *PayoutService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// WithClock overrides the service clock; intended for tests
func (s *PayoutService) WithClock(now func() time.Time) *PayoutService {
	s.now = now
	return s
}

// SchedulePayout gathers the store's eligible, unclaimed allocations into a
// payout. Funds below the minimum stay in escrow and roll over. When the
// store already has an open scheduled payout the new funds merge into it, so
// at most one scheduled payout exists per store.
func (s *PayoutService) SchedulePayout(ctx context.Context, storeID uuid.UUID) (*ScheduleResult, error) {
	settings, err := s.settings.FindByStore(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payout settings: %w", err)
	}
	if settings == nil {
		return nil, shared.ErrSettingsNotFound
	}
	if !settings.Verified {
		return nil, shared.ErrSettingsUnverified
	}

	allocations, err := s.escrowRepo.FindEligibleUnclaimed(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load eligible allocations: %w", err)
	}

	now := s.now()
	var payable []*escrow.EscrowAllocation
	total := valueobject.Zero(s.cfg.MinimumAmount.Currency())
	for i := range allocations {
		a := &allocations[i]
		if a.EligibleForPayoutAt == nil || a.EligibleForPayoutAt.After(now) {
			continue
		}
		remaining := a.RemainingPayout()
		if !remaining.IsPositive() {
			continue
		}
		// Thresholds cannot compare across currencies; a store holding funds
		// in another currency needs its own configured minimum.
		if remaining.Currency() != total.Currency() {
			return nil, shared.NewDomainError("CURRENCY_MISMATCH",
				fmt.Sprintf("Store funds in %s cannot be scheduled against a %s payout minimum",
					remaining.Currency(), total.Currency()))
		}
		total = total.MustAdd(remaining)
		payable = append(payable, a)
	}

	if len(payable) == 0 {
		return &ScheduleResult{Outcome: OutcomeNoEligibleFunds, EligibleAmount: total}, nil
	}

	below, err := total.LessThan(s.cfg.MinimumAmount)
	if err != nil {
		return nil, err
	}
	if below {
		s.logger.Info("eligible funds below payout minimum, rolling over",
			zap.String("store_id", storeID.String()),
			zap.String("eligible", total.String()),
			zap.String("minimum", s.cfg.MinimumAmount.String()),
		)
		return &ScheduleResult{Outcome: OutcomeBelowThreshold, EligibleAmount: total}, nil
	}

	existing, err := s.payoutRepo.FindScheduledForStore(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to check for scheduled payout: %w", err)
	}

	outcome := OutcomeScheduled
	target := existing
	if target == nil {
		scheduledDate := payout.NextPayoutDate(now, s.cfg.Frequency, s.cfg.Weekday)
		target, err = payout.NewSellerPayout(
			storeID, payable[0].SellerID,
			total.Currency(), scheduledDate,
			settings.Method, s.cfg.MaxRetries,
		)
		if err != nil {
			return nil, err
		}
	} else {
		outcome = OutcomeMerged
	}

	added := 0
	for _, a := range payable {
		err := target.AddItem(a.ID, a.RemainingPayout())
		if err != nil {
			var domainErr *shared.DomainError
			if errors.As(err, &domainErr) && domainErr.Code == "DUPLICATE_ALLOCATION" {
				continue
			}
			return nil, err
		}
		added++
	}
	if added == 0 {
		return &ScheduleResult{Outcome: OutcomeNoEligibleFunds, EligibleAmount: total}, nil
	}

	if outcome == OutcomeScheduled {
		target.AddDomainEvent(payout.NewPayoutScheduledEvent(target))
	}

	if err := s.payoutRepo.Save(ctx, target); err != nil {
		return nil, fmt.Errorf("failed to save payout: %w", err)
	}
	s.publishEvents(ctx, target)

	s.logger.Info("payout scheduled",
		zap.String("payout_id", target.ID.String()),
		zap.String("store_id", storeID.String()),
		zap.String("outcome", string(outcome)),
		zap.Int("items_added", added),
		zap.String("total", target.Total().String()),
		zap.Time("scheduled_date", target.ScheduledDate),
	)
	return &ScheduleResult{Outcome: outcome, Payout: target, EligibleAmount: total}, nil
}

// ProcessPayout executes the bank transfer for one payout. A gateway failure
// is recorded on the payout, not returned as an error: the payout either
// schedules a retry or goes terminal and notifies operations.
func (s *PayoutService) ProcessPayout(ctx context.Context, payoutID uuid.UUID) error {
	p, err := s.payoutRepo.FindByID(ctx, payoutID)
	if err != nil {
		return fmt.Errorf("failed to load payout: %w", err)
	}
	if p == nil {
		return shared.NewDomainError("PAYOUT_NOT_FOUND", "Payout not found")
	}

	settings, err := s.settings.FindByStore(ctx, p.StoreID)
	if err != nil {
		return fmt.Errorf("failed to load payout settings: %w", err)
	}
	if settings == nil {
		return shared.ErrSettingsNotFound
	}
	if !settings.Verified {
		return shared.ErrSettingsUnverified
	}

	if err := p.MarkProcessing(); err != nil {
		return err
	}
	if err := s.payoutRepo.Save(ctx, p); err != nil {
		return fmt.Errorf("failed to save processing payout: %w", err)
	}

	result, transferErr := s.gateway.Transfer(ctx, payout.TransferRequest{
		PayoutID:      p.ID,
		Amount:        p.Total(),
		Method:        p.PayoutMethod,
		AccountHolder: settings.AccountHolder,
		IBAN:          settings.IBAN,
		BIC:           settings.BIC,
		Description:   fmt.Sprintf("Marketplace payout %s", p.ID),
	})

	if transferErr != nil {
		return s.recordTransferFailure(ctx, p, transferErr)
	}
	return s.recordTransferSuccess(ctx, p, result)
}

func (s *PayoutService) recordTransferSuccess(ctx context.Context, p *payout.SellerPayout, result *payout.TransferResult) error {
	allocations, err := s.escrowRepo.FindAllocationsByIDs(ctx, p.AllocationIDs())
	if err != nil {
		return fmt.Errorf("failed to load payout allocations: %w", err)
	}

	if err := p.MarkPaid(result.AcceptedAt); err != nil {
		return err
	}

	released := make([]*escrow.EscrowAllocation, 0, len(allocations))
	for i := range allocations {
		a := &allocations[i]
		a.Release(p.PayoutReference, result.AcceptedAt)
		released = append(released, a)
	}

	if err := s.payoutRepo.SavePaidWithReleases(ctx, p, released); err != nil {
		return fmt.Errorf("failed to save paid payout: %w", err)
	}

	if s.eventPublisher != nil {
		event := escrow.NewAllocationsReleasedEvent(p.ID, p.PayoutReference, p.AllocationIDs())
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Error("failed to publish release event", zap.Error(err))
		}
	}
	s.publishEvents(ctx, p)

	if s.notifier != nil {
		s.notifier.NotifyPayoutPaid(ctx, p)
	}

	s.logger.Info("payout paid",
		zap.String("payout_id", p.ID.String()),
		zap.String("payout_reference", p.PayoutReference),
		zap.String("gateway_reference", result.GatewayReference),
		zap.String("total", p.Total().String()),
	)
	return nil
}

func (s *PayoutService) recordTransferFailure(ctx context.Context, p *payout.SellerPayout, transferErr error) error {
	errorReference := ""
	var gatewayErr *payout.TransferError
	if errors.As(transferErr, &gatewayErr) {
		errorReference = gatewayErr.ErrorReference
	}

	if err := p.MarkFailed(errorReference, transferErr.Error(), s.cfg.RetryDelay); err != nil {
		return err
	}
	if err := s.payoutRepo.Save(ctx, p); err != nil {
		return fmt.Errorf("failed to save failed payout: %w", err)
	}
	s.publishEvents(ctx, p)

	terminal := p.IsTerminal()
	if s.notifier != nil {
		s.notifier.NotifyPayoutFailed(ctx, p, terminal)
	}

	s.logger.Warn("payout transfer failed",
		zap.String("payout_id", p.ID.String()),
		zap.String("error_reference", errorReference),
		zap.String("error", transferErr.Error()),
		zap.Int("retry_count", p.RetryCount),
		zap.Bool("terminal", terminal),
	)
	return nil
}

// ProcessDuePayouts runs the transfer for every scheduled payout whose date
// has arrived. One payout's failure never blocks the others.
func (s *PayoutService) ProcessDuePayouts(ctx context.Context) (processed, failed int, err error) {
	due, err := s.payoutRepo.FindDue(ctx, s.now())
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load due payouts: %w", err)
	}

	for i := range due {
		if err := s.ProcessPayout(ctx, due[i].ID); err != nil {
			failed++
			s.logger.Error("failed to process due payout",
				zap.String("payout_id", due[i].ID.String()),
				zap.Error(err),
			)
			continue
		}
		processed++
	}
	return processed, failed, nil
}

// RetryFailedPayouts re-attempts failed payouts whose retry time has come
func (s *PayoutService) RetryFailedPayouts(ctx context.Context) (retried, failed int, err error) {
	retryable, err := s.payoutRepo.FindRetryable(ctx, s.now())
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load retryable payouts: %w", err)
	}

	for i := range retryable {
		if err := s.ProcessPayout(ctx, retryable[i].ID); err != nil {
			failed++
			s.logger.Error("failed to retry payout",
				zap.String("payout_id", retryable[i].ID.String()),
				zap.Error(err),
			)
			continue
		}
		retried++
	}
	return retried, failed, nil
}

// RecoverStalledPayouts sweeps payouts stuck in Processing since before the
// cutoff, which marks a transfer attempt interrupted between persistence
// steps. Each one is failed back into the retry path; the next attempt is
// safe to replay because releasing a released allocation is a no-op and the
// gateway deduplicates on the payout ID.
func (s *PayoutService) RecoverStalledPayouts(ctx context.Context, olderThan time.Duration) (recovered, failed int, err error) {
	cutoff := s.now().Add(-olderThan)
	stalled, err := s.payoutRepo.FindStalledProcessing(ctx, cutoff)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load stalled payouts: %w", err)
	}

	for i := range stalled {
		p := &stalled[i]
		if markErr := p.MarkFailed("", "transfer interrupted, outcome unknown", s.cfg.RetryDelay); markErr != nil {
			failed++
			s.logger.Error("failed to fail stalled payout",
				zap.String("payout_id", p.ID.String()),
				zap.Error(markErr),
			)
			continue
		}
		if saveErr := s.payoutRepo.Save(ctx, p); saveErr != nil {
			failed++
			s.logger.Error("failed to save stalled payout",
				zap.String("payout_id", p.ID.String()),
				zap.Error(saveErr),
			)
			continue
		}
		s.publishEvents(ctx, p)

		if s.notifier != nil && p.IsTerminal() {
			s.notifier.NotifyPayoutFailed(ctx, p, true)
		}
		recovered++
		s.logger.Warn("recovered stalled payout",
			zap.String("payout_id", p.ID.String()),
			zap.Int("retry_count", p.RetryCount),
			zap.Bool("terminal", p.IsTerminal()),
		)
	}
	return recovered, failed, nil
}

// GetPayout returns one payout with its items
func (s *PayoutService) GetPayout(ctx context.Context, payoutID uuid.UUID) (*payout.SellerPayout, error) {
	p, err := s.payoutRepo.FindByID(ctx, payoutID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payout: %w", err)
	}
	if p == nil {
		return nil, shared.NewDomainError("PAYOUT_NOT_FOUND", "Payout not found")
	}
	return p, nil
}

// StoreSummary is the seller-facing view of a store's funds position
type StoreSummary struct {
	StoreID uuid.UUID
	// AvailableAmount is the remaining payout of allocations whose eligibility
	// date has passed and that no open payout has claimed
	AvailableAmount valueobject.Money
	// PendingAmount is the remaining payout of unclaimed allocations still
	// waiting for delivery or the eligibility date
	PendingAmount valueobject.Money
	// ScheduledAmount is the total of the store's open scheduled payout
	ScheduledAmount valueobject.Money
	// BelowMinimum reports whether the available funds would roll over on the
	// next scheduling run
	BelowMinimum      bool
	MinimumAmount     valueobject.Money
	ScheduledPayoutID *uuid.UUID
	NextPayoutDate    *time.Time
}

// GetPayoutSummary reports the store's available, pending and scheduled funds
func (s *PayoutService) GetPayoutSummary(ctx context.Context, storeID uuid.UUID) (*StoreSummary, error) {
	allocations, err := s.escrowRepo.FindEligibleUnclaimed(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load eligible allocations: %w", err)
	}

	now := s.now()
	currency := s.cfg.MinimumAmount.Currency()
	summary := &StoreSummary{
		StoreID:         storeID,
		AvailableAmount: valueobject.Zero(currency),
		PendingAmount:   valueobject.Zero(currency),
		ScheduledAmount: valueobject.Zero(currency),
		MinimumAmount:   s.cfg.MinimumAmount,
	}
	for i := range allocations {
		a := &allocations[i]
		remaining := a.RemainingPayout()
		if !remaining.IsPositive() {
			continue
		}
		if remaining.Currency() != currency {
			return nil, shared.NewDomainError("CURRENCY_MISMATCH",
				fmt.Sprintf("Store funds in %s cannot be summarized against a %s payout minimum",
					remaining.Currency(), currency))
		}
		if a.EligibleForPayoutAt != nil && !a.EligibleForPayoutAt.After(now) {
			summary.AvailableAmount = summary.AvailableAmount.MustAdd(remaining)
		} else {
			summary.PendingAmount = summary.PendingAmount.MustAdd(remaining)
		}
	}

	below, err := summary.AvailableAmount.LessThan(s.cfg.MinimumAmount)
	if err != nil {
		return nil, err
	}
	summary.BelowMinimum = below

	scheduled, err := s.payoutRepo.FindScheduledForStore(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to check for scheduled payout: %w", err)
	}
	if scheduled != nil {
		summary.ScheduledAmount = scheduled.Total()
		summary.ScheduledPayoutID = &scheduled.ID
		date := scheduled.ScheduledDate
		summary.NextPayoutDate = &date
	}
	return summary, nil
}

// GetStorePayouts returns the store's payout history, newest first
func (s *PayoutService) GetStorePayouts(ctx context.Context, storeID uuid.UUID, limit int) ([]payout.SellerPayout, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.payoutRepo.FindByStore(ctx, storeID, limit)
}

func (s *PayoutService) publishEvents(ctx context.Context, p *payout.SellerPayout) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range p.GetDomainEvents() {
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Error("failed to publish payout event",
				zap.String("event_type", event.EventType()),
				zap.Error(err),
			)
		}
	}
	p.ClearDomainEvents()
}
