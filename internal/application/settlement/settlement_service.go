package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/escrow"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/settlement"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared/valueobject"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/trade"
)

// Config holds settlement policy values
type Config struct {
	// Currency is the settlement currency of the platform
	Currency valueobject.Currency
}

// GenerateOutcome describes the result of a generation attempt
type GenerateOutcome string

const (
	// OutcomeGenerated indicates a new settlement version was created
	OutcomeGenerated GenerateOutcome = "GENERATED"
	// OutcomeNoData indicates the store had no ledger activity in the period
	OutcomeNoData GenerateOutcome = "NO_DATA"
)

// GenerateResult is the outcome of GenerateSettlement. Settlement is nil
// when the outcome is NoData.
type GenerateResult struct {
	Outcome    GenerateOutcome
	Settlement *settlement.Settlement
}

// SettlementService builds monthly settlements from ledger snapshots and
// walks them through the finalize, approve and export workflow
type SettlementService struct {
	settlementRepo settlement.Repository
	escrowRepo     escrow.EscrowPaymentRepository
	stores         trade.StoreDirectory
	cfg            Config
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	now            func() time.Time
}

// NewSettlementService creates a new SettlementService
func NewSettlementService(
	settlementRepo settlement.Repository,
	escrowRepo escrow.EscrowPaymentRepository,
	stores trade.StoreDirectory,
	cfg Config,
	logger *zap.Logger,
) *SettlementService {
	return &SettlementService{
		settlementRepo: settlementRepo,
		escrowRepo:     escrowRepo,
		stores:         stores,
		cfg:            cfg,
		logger:         logger,
		now:            time.Now,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *SettlementService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// WithClock overrides the service clock; intended for tests
func (s *SettlementService) WithClock(now func() time.Time) *SettlementService {
	s.now = now
	return s
}

// GenerateSettlement builds a settlement for the store and month from the
// ledger's allocation snapshots. When one already exists the call fails
// unless regenerate is set; regeneration never mutates the existing
// settlement but creates the next version and carries over the previous
// version's manual adjustments.
func (s *SettlementService) GenerateSettlement(ctx context.Context, storeID uuid.UUID, year, month int, regenerate bool) (*GenerateResult, error) {
	start, end := settlement.PeriodBounds(year, month)
	if start.After(s.now()) {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Cannot settle a period that has not started")
	}

	rows, err := s.escrowRepo.FindAllocationsCreatedBetween(ctx, storeID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load period allocations: %w", err)
	}

	latest, err := s.settlementRepo.FindLatestVersion(ctx, storeID, year, month)
	if err != nil {
		return nil, fmt.Errorf("failed to look up existing settlements: %w", err)
	}
	if latest != nil && !regenerate {
		return nil, shared.NewDomainError("SETTLEMENT_EXISTS",
			fmt.Sprintf("Settlement %s already exists for this period; regenerate to create version %d",
				latest.SettlementNumber, latest.Version+1))
	}

	if len(rows) == 0 && (latest == nil || len(latest.Adjustments) == 0) {
		s.logger.Info("no ledger activity for settlement period",
			zap.String("store_id", storeID.String()),
			zap.Int("year", year),
			zap.Int("month", month),
		)
		return &GenerateResult{Outcome: OutcomeNoData}, nil
	}

	version := 1
	if latest != nil {
		version = latest.Version + 1
	}

	sellerID := uuid.Nil
	if len(rows) > 0 {
		sellerID = rows[0].Allocation.SellerID
	} else {
		sellerID = latest.SellerID
	}

	stl, err := settlement.NewSettlement(storeID, sellerID, year, month, version, s.cfg.Currency)
	if err != nil {
		return nil, err
	}

	for i := range rows {
		if err := stl.AddItemFromAllocation(&rows[i].Allocation, rows[i].OrderID, rows[i].OrderNumber); err != nil {
			return nil, err
		}
	}

	if latest != nil {
		for _, adj := range latest.Adjustments {
			amount, err := valueobject.NewMoney(adj.Amount, s.cfg.Currency)
			if err != nil {
				return nil, err
			}
			if _, err := stl.AddAdjustment(
				adj.OriginalYear, adj.OriginalMonth,
				amount, adj.Reason,
				adj.RelatedOrderID, adj.RelatedOrderNumber,
			); err != nil {
				return nil, err
			}
		}
	}

	stl.AddDomainEvent(settlement.NewSettlementGeneratedEvent(stl))

	// The unique (store, year, month, version) index turns a concurrent
	// generation of the same version into a save conflict
	if err := s.settlementRepo.Save(ctx, stl); err != nil {
		return nil, fmt.Errorf("failed to save settlement: %w", err)
	}
	s.publishEvents(ctx, stl)

	s.logger.Info("settlement generated",
		zap.String("settlement_id", stl.ID.String()),
		zap.String("settlement_number", stl.SettlementNumber),
		zap.String("store_id", storeID.String()),
		zap.Int("version", version),
		zap.Int("items", len(stl.Items)),
		zap.String("net_payable", stl.NetPayable.String()),
	)
	return &GenerateResult{Outcome: OutcomeGenerated, Settlement: stl}, nil
}

// GenerateSettlementsForPeriod generates settlements for every store with
// ledger activity in the month. One store's failure never blocks the others.
func (s *SettlementService) GenerateSettlementsForPeriod(ctx context.Context, year, month int) (generated, failed int, err error) {
	start, end := settlement.PeriodBounds(year, month)
	storeIDs, err := s.escrowRepo.FindStoresWithAllocationsBetween(ctx, start, end)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list stores with activity: %w", err)
	}

	for _, storeID := range storeIDs {
		result, genErr := s.GenerateSettlement(ctx, storeID, year, month, false)
		if genErr != nil {
			var domainErr *shared.DomainError
			if errors.As(genErr, &domainErr) && domainErr.Code == "SETTLEMENT_EXISTS" {
				continue
			}
			failed++
			s.logger.Error("failed to generate settlement for store",
				zap.String("store_id", storeID.String()),
				zap.Int("year", year),
				zap.Int("month", month),
				zap.Error(genErr),
			)
			continue
		}
		if result.Outcome == OutcomeGenerated {
			generated++
		}
	}
	return generated, failed, nil
}

// FinalizeSettlement freezes a draft settlement
func (s *SettlementService) FinalizeSettlement(ctx context.Context, id uuid.UUID) (*settlement.Settlement, error) {
	stl, err := s.loadSettlement(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := stl.Finalize(); err != nil {
		return nil, err
	}
	if err := s.settlementRepo.Save(ctx, stl); err != nil {
		return nil, fmt.Errorf("failed to save settlement: %w", err)
	}
	s.publishEvents(ctx, stl)
	return stl, nil
}

// ApproveSettlement approves a finalized settlement
func (s *SettlementService) ApproveSettlement(ctx context.Context, id, approvedBy uuid.UUID) (*settlement.Settlement, error) {
	stl, err := s.loadSettlement(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := stl.Approve(approvedBy); err != nil {
		return nil, err
	}
	if err := s.settlementRepo.Save(ctx, stl); err != nil {
		return nil, fmt.Errorf("failed to save settlement: %w", err)
	}
	return stl, nil
}

// AddAdjustmentRequest carries a manual settlement correction
type AddAdjustmentRequest struct {
	OriginalYear       int
	OriginalMonth      int
	Amount             decimal.Decimal
	Reason             string
	RelatedOrderID     *uuid.UUID
	RelatedOrderNumber string
}

// AddAdjustment records a signed correction on a draft or finalized
// settlement, typically for a refund that arrived after the funds were
// already released
func (s *SettlementService) AddAdjustment(ctx context.Context, id uuid.UUID, req AddAdjustmentRequest) (*settlement.Settlement, error) {
	stl, err := s.loadSettlement(ctx, id)
	if err != nil {
		return nil, err
	}

	amount, err := valueobject.NewMoney(req.Amount, stl.Currency)
	if err != nil {
		return nil, err
	}
	if _, err := stl.AddAdjustment(
		req.OriginalYear, req.OriginalMonth,
		amount, req.Reason,
		req.RelatedOrderID, req.RelatedOrderNumber,
	); err != nil {
		return nil, err
	}

	if err := s.settlementRepo.Save(ctx, stl); err != nil {
		return nil, fmt.Errorf("failed to save settlement: %w", err)
	}

	s.logger.Info("settlement adjustment recorded",
		zap.String("settlement_id", stl.ID.String()),
		zap.String("amount", req.Amount.String()),
		zap.String("reason", req.Reason),
		zap.String("net_payable", stl.NetPayable.String()),
	)
	return stl, nil
}

// GetSettlement returns one settlement with items and adjustments
func (s *SettlementService) GetSettlement(ctx context.Context, id uuid.UUID) (*settlement.Settlement, error) {
	return s.loadSettlement(ctx, id)
}

// GetStoreSettlements returns the store's settlements, newest period first
func (s *SettlementService) GetStoreSettlements(ctx context.Context, storeID uuid.UUID, limit, offset int) ([]*settlement.Settlement, int64, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.settlementRepo.FindByStore(ctx, storeID, limit, offset)
}

func (s *SettlementService) loadSettlement(ctx context.Context, id uuid.UUID) (*settlement.Settlement, error) {
	stl, err := s.settlementRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load settlement: %w", err)
	}
	if stl == nil {
		return nil, shared.NewDomainError("SETTLEMENT_NOT_FOUND", "Settlement not found")
	}
	return stl, nil
}

func (s *SettlementService) publishEvents(ctx context.Context, stl *settlement.Settlement) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range stl.GetDomainEvents() {
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Error("failed to publish settlement event",
				zap.String("event_type", event.EventType()),
				zap.Error(err),
			)
		}
	}
	stl.ClearDomainEvents()
}
