package commission

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/commission"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/escrow"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/settlement"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared"
)

// CommissionService manages commission rules and answers commission
// reporting queries from ledger snapshots
type CommissionService struct {
	ruleRepo   commission.RuleRepository
	escrowRepo escrow.EscrowPaymentRepository
	logger     *zap.Logger
}

// NewCommissionService creates a new CommissionService
func NewCommissionService(
	ruleRepo commission.RuleRepository,
	escrowRepo escrow.EscrowPaymentRepository,
	logger *zap.Logger,
) *CommissionService {
	return &CommissionService{
		ruleRepo:   ruleRepo,
		escrowRepo: escrowRepo,
		logger:     logger,
	}
}

// CreateRuleRequest carries a new commission rule
type CreateRuleRequest struct {
	Scope          commission.RuleScope
	StoreID        *uuid.UUID
	CategoryID     *uuid.UUID
	Rate           decimal.Decimal
	EffectiveFrom  time.Time
	EffectiveUntil *time.Time
	Description    string
}

// CreateRule validates and stores a commission rule. Overlapping effective
// windows within the same scope are rejected so rate resolution stays
// unambiguous.
func (s *CommissionService) CreateRule(ctx context.Context, req CreateRuleRequest) (*commission.CommissionRule, error) {
	rule, err := commission.NewCommissionRule(
		req.Scope, req.StoreID, req.CategoryID,
		req.Rate, req.EffectiveFrom, req.EffectiveUntil,
		req.Description,
	)
	if err != nil {
		return nil, err
	}

	overlapping, err := s.ruleRepo.FindOverlapping(ctx, rule)
	if err != nil {
		return nil, fmt.Errorf("failed to check for overlapping rules: %w", err)
	}
	if len(overlapping) > 0 {
		return nil, shared.NewDomainError("RULE_OVERLAP",
			fmt.Sprintf("An effective window for %s already overlaps this rule", rule.Describe()))
	}

	if err := s.ruleRepo.Save(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to save commission rule: %w", err)
	}

	s.logger.Info("commission rule created",
		zap.String("rule_id", rule.ID.String()),
		zap.String("scope", rule.Scope.String()),
		zap.String("rate", rule.Rate.String()),
	)
	return rule, nil
}

// DeactivateRule retires a rule; existing allocations keep their snapshot
func (s *CommissionService) DeactivateRule(ctx context.Context, id uuid.UUID) error {
	rule, err := s.ruleRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load commission rule: %w", err)
	}
	if rule == nil {
		return shared.NewDomainError("RULE_NOT_FOUND", "Commission rule not found")
	}

	rule.Deactivate()
	if err := s.ruleRepo.Save(ctx, rule); err != nil {
		return fmt.Errorf("failed to save commission rule: %w", err)
	}
	return nil
}

// Summary aggregates a store's commission figures for one month. All money
// values share Currency.
type Summary struct {
	StoreID            uuid.UUID `json:"store_id"`
	Year               int       `json:"year"`
	Month              int       `json:"month"`
	OrderCount         int       `json:"order_count"`
	ShipmentCount      int       `json:"shipment_count"`
	GrossSales         string    `json:"gross_sales"`
	TotalCommission    string    `json:"total_commission"`
	RefundedCommission string    `json:"refunded_commission"`
	NetToSeller        string    `json:"net_to_seller"`
	EffectiveRate      string    `json:"effective_rate"`
	Currency           string    `json:"currency"`
}

// DrillDownRow is one shipment's commission detail within a summary period
type DrillDownRow struct {
	OrderID            uuid.UUID `json:"order_id"`
	OrderNumber        string    `json:"order_number"`
	ShipmentID         uuid.UUID `json:"shipment_id"`
	SellerAmount       string    `json:"seller_amount"`
	CommissionRate     string    `json:"commission_rate"`
	CommissionAmount   string    `json:"commission_amount"`
	RefundedCommission string    `json:"refunded_commission"`
	RemainingPayout    string    `json:"remaining_payout"`
	Currency           string    `json:"currency"`
}

// GetCommissionSummary computes the store's commission totals for a month
// from the ledger's allocation snapshots
func (s *CommissionService) GetCommissionSummary(ctx context.Context, storeID uuid.UUID, year, month int) (*Summary, error) {
	rows, err := s.periodRows(ctx, storeID, year, month)
	if err != nil {
		return nil, err
	}

	gross := decimal.Zero
	totalCommission := decimal.Zero
	refundedCommission := decimal.Zero
	net := decimal.Zero
	orders := make(map[uuid.UUID]struct{})
	currency := ""

	for i := range rows {
		a := &rows[i].Allocation
		gross = gross.Add(a.SellerAmount)
		totalCommission = totalCommission.Add(a.CommissionAmount)
		refundedCommission = refundedCommission.Add(a.RefundedCommissionAmount)
		net = net.Add(a.RemainingPayout().Amount())
		orders[rows[i].OrderID] = struct{}{}
		currency = string(a.Currency)
	}

	effectiveRate := decimal.Zero
	if gross.IsPositive() {
		effectiveRate = totalCommission.Div(gross).Mul(decimal.NewFromInt(100)).RoundBank(2)
	}

	return &Summary{
		StoreID:            storeID,
		Year:               year,
		Month:              month,
		OrderCount:         len(orders),
		ShipmentCount:      len(rows),
		GrossSales:         gross.StringFixed(2),
		TotalCommission:    totalCommission.StringFixed(2),
		RefundedCommission: refundedCommission.StringFixed(2),
		NetToSeller:        net.StringFixed(2),
		EffectiveRate:      effectiveRate.StringFixed(2),
		Currency:           currency,
	}, nil
}

// GetCommissionDrillDown lists one commission row per shipment for a store
// and month
func (s *CommissionService) GetCommissionDrillDown(ctx context.Context, storeID uuid.UUID, year, month int) ([]DrillDownRow, error) {
	rows, err := s.periodRows(ctx, storeID, year, month)
	if err != nil {
		return nil, err
	}

	result := make([]DrillDownRow, 0, len(rows))
	for i := range rows {
		a := &rows[i].Allocation
		result = append(result, DrillDownRow{
			OrderID:            rows[i].OrderID,
			OrderNumber:        rows[i].OrderNumber,
			ShipmentID:         a.ShipmentID,
			SellerAmount:       a.SellerAmount.StringFixed(2),
			CommissionRate:     a.CommissionRate.StringFixed(2),
			CommissionAmount:   a.CommissionAmount.StringFixed(2),
			RefundedCommission: a.RefundedCommissionAmount.StringFixed(2),
			RemainingPayout:    a.RemainingPayout().Amount().StringFixed(2),
			Currency:           string(a.Currency),
		})
	}
	return result, nil
}

func (s *CommissionService) periodRows(ctx context.Context, storeID uuid.UUID, year, month int) ([]escrow.AllocationWithOrder, error) {
	if month < 1 || month > 12 {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Month must be between 1 and 12")
	}
	start, end := settlement.PeriodBounds(year, month)
	rows, err := s.escrowRepo.FindAllocationsCreatedBetween(ctx, storeID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load period allocations: %w", err)
	}
	return rows, nil
}
