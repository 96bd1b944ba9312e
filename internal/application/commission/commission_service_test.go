package commission

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/commission"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/escrow"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared/valueobject"
)

// MockRuleRepository is a mock implementation of commission.RuleRepository
type MockRuleRepository struct {
	mock.Mock
}

func (m *MockRuleRepository) FindByID(ctx context.Context, id uuid.UUID) (*commission.CommissionRule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*commission.CommissionRule), args.Error(1)
}

func (m *MockRuleRepository) FindEffective(ctx context.Context, storeID uuid.UUID, categoryIDs []uuid.UUID, at time.Time) ([]commission.CommissionRule, error) {
	args := m.Called(ctx, storeID, categoryIDs, at)
	return args.Get(0).([]commission.CommissionRule), args.Error(1)
}

func (m *MockRuleRepository) FindOverlapping(ctx context.Context, candidate *commission.CommissionRule) ([]commission.CommissionRule, error) {
	args := m.Called(ctx, candidate)
	return args.Get(0).([]commission.CommissionRule), args.Error(1)
}

func (m *MockRuleRepository) Save(ctx context.Context, rule *commission.CommissionRule) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}

var _ commission.RuleRepository = (*MockRuleRepository)(nil)

// MockEscrowRepository mocks the escrow queries the reporting service uses
type MockEscrowRepository struct {
	mock.Mock
}

func (m *MockEscrowRepository) FindByID(ctx context.Context, id uuid.UUID) (*escrow.EscrowPayment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*escrow.EscrowPayment), args.Error(1)
}

func (m *MockEscrowRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*escrow.EscrowPayment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*escrow.EscrowPayment), args.Error(1)
}

func (m *MockEscrowRepository) ExistsByOrderID(ctx context.Context, orderID uuid.UUID) (bool, error) {
	args := m.Called(ctx, orderID)
	return args.Bool(0), args.Error(1)
}

func (m *MockEscrowRepository) FindByShipmentID(ctx context.Context, shipmentID uuid.UUID) (*escrow.EscrowPayment, error) {
	args := m.Called(ctx, shipmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*escrow.EscrowPayment), args.Error(1)
}

func (m *MockEscrowRepository) Save(ctx context.Context, payment *escrow.EscrowPayment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockEscrowRepository) SaveAllocation(ctx context.Context, allocation *escrow.EscrowAllocation) error {
	args := m.Called(ctx, allocation)
	return args.Error(0)
}

func (m *MockEscrowRepository) FindEligibleUnclaimed(ctx context.Context, storeID uuid.UUID) ([]escrow.EscrowAllocation, error) {
	args := m.Called(ctx, storeID)
	return args.Get(0).([]escrow.EscrowAllocation), args.Error(1)
}

func (m *MockEscrowRepository) FindAllocationsByIDs(ctx context.Context, ids []uuid.UUID) ([]escrow.EscrowAllocation, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]escrow.EscrowAllocation), args.Error(1)
}

func (m *MockEscrowRepository) FindAllocationsCreatedBetween(ctx context.Context, storeID uuid.UUID, from, to time.Time) ([]escrow.AllocationWithOrder, error) {
	args := m.Called(ctx, storeID, from, to)
	return args.Get(0).([]escrow.AllocationWithOrder), args.Error(1)
}

func (m *MockEscrowRepository) FindStoresWithAllocationsBetween(ctx context.Context, from, to time.Time) ([]uuid.UUID, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

var _ escrow.EscrowPaymentRepository = (*MockEscrowRepository)(nil)

func newService(rules *MockRuleRepository, escrowRepo *MockEscrowRepository) *CommissionService {
	logger, _ := zap.NewDevelopment()
	return NewCommissionService(rules, escrowRepo, logger)
}

func newLedgerRow(t *testing.T, storeID uuid.UUID, subtotal, commission int64) escrow.AllocationWithOrder {
	t.Helper()
	payment, err := escrow.NewEscrowPayment(uuid.New(), "ORD-2026-00123", valueobject.NewMoneyEUR(decimal.NewFromInt(subtotal+5)))
	require.NoError(t, err)
	alloc, err := payment.AddAllocation(
		uuid.New(), storeID, uuid.New(),
		valueobject.NewMoneyEUR(decimal.NewFromInt(subtotal)),
		valueobject.NewMoneyEUR(decimal.NewFromInt(5)),
		decimal.NewFromInt(10),
		valueobject.NewMoneyEUR(decimal.NewFromInt(commission)),
	)
	require.NoError(t, err)
	return escrow.AllocationWithOrder{
		Allocation:  *alloc,
		OrderID:     payment.OrderID,
		OrderNumber: payment.OrderNumber,
	}
}

func TestCreateRule(t *testing.T) {
	ctx := context.Background()
	rules := new(MockRuleRepository)
	service := newService(rules, new(MockEscrowRepository))

	rules.On("FindOverlapping", ctx, mock.AnythingOfType("*commission.CommissionRule")).
		Return([]commission.CommissionRule{}, nil)
	rules.On("Save", ctx, mock.AnythingOfType("*commission.CommissionRule")).Return(nil)

	storeID := uuid.New()
	rule, err := service.CreateRule(ctx, CreateRuleRequest{
		Scope:         commission.RuleScopeSeller,
		StoreID:       &storeID,
		Rate:          decimal.NewFromInt(8),
		EffectiveFrom: time.Now(),
		Description:   "Negotiated seller rate",
	})

	require.NoError(t, err)
	assert.True(t, rule.Active)
	rules.AssertExpectations(t)
}

func TestCreateRule_RejectsOverlap(t *testing.T) {
	ctx := context.Background()
	rules := new(MockRuleRepository)
	service := newService(rules, new(MockEscrowRepository))

	existing, err := commission.NewCommissionRule(
		commission.RuleScopeGlobal, nil, nil,
		decimal.NewFromInt(10), time.Now().AddDate(0, -1, 0), nil, "",
	)
	require.NoError(t, err)

	rules.On("FindOverlapping", ctx, mock.Anything).
		Return([]commission.CommissionRule{*existing}, nil)

	_, err = service.CreateRule(ctx, CreateRuleRequest{
		Scope:         commission.RuleScopeGlobal,
		Rate:          decimal.NewFromInt(12),
		EffectiveFrom: time.Now(),
	})

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "RULE_OVERLAP", domainErr.Code)
	rules.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestDeactivateRule_NotFound(t *testing.T) {
	ctx := context.Background()
	rules := new(MockRuleRepository)
	service := newService(rules, new(MockEscrowRepository))

	id := uuid.New()
	rules.On("FindByID", ctx, id).Return(nil, nil)

	err := service.DeactivateRule(ctx, id)
	assert.Error(t, err)
}

func TestGetCommissionSummary(t *testing.T) {
	ctx := context.Background()
	escrowRepo := new(MockEscrowRepository)
	service := newService(new(MockRuleRepository), escrowRepo)

	storeID := uuid.New()
	rows := []escrow.AllocationWithOrder{
		newLedgerRow(t, storeID, 50, 5),
		newLedgerRow(t, storeID, 30, 3),
	}
	escrowRepo.On("FindAllocationsCreatedBetween", ctx, storeID, mock.Anything, mock.Anything).
		Return(rows, nil)

	summary, err := service.GetCommissionSummary(ctx, storeID, 2026, 7)

	require.NoError(t, err)
	assert.Equal(t, 2, summary.OrderCount)
	assert.Equal(t, 2, summary.ShipmentCount)
	assert.Equal(t, "80.00", summary.GrossSales)
	assert.Equal(t, "8.00", summary.TotalCommission)
	// (50+5-5) + (30+5-3) = 82
	assert.Equal(t, "82.00", summary.NetToSeller)
	assert.Equal(t, "10.00", summary.EffectiveRate)
	assert.Equal(t, "EUR", summary.Currency)
}

func TestGetCommissionSummary_EmptyPeriod(t *testing.T) {
	ctx := context.Background()
	escrowRepo := new(MockEscrowRepository)
	service := newService(new(MockRuleRepository), escrowRepo)

	storeID := uuid.New()
	escrowRepo.On("FindAllocationsCreatedBetween", ctx, storeID, mock.Anything, mock.Anything).
		Return([]escrow.AllocationWithOrder{}, nil)

	summary, err := service.GetCommissionSummary(ctx, storeID, 2026, 7)

	require.NoError(t, err)
	assert.Equal(t, 0, summary.OrderCount)
	assert.Equal(t, "0.00", summary.GrossSales)
	assert.Equal(t, "0.00", summary.EffectiveRate)
}

func TestGetCommissionDrillDown(t *testing.T) {
	ctx := context.Background()
	escrowRepo := new(MockEscrowRepository)
	service := newService(new(MockRuleRepository), escrowRepo)

	storeID := uuid.New()
	rows := []escrow.AllocationWithOrder{newLedgerRow(t, storeID, 50, 5)}
	escrowRepo.On("FindAllocationsCreatedBetween", ctx, storeID, mock.Anything, mock.Anything).
		Return(rows, nil)

	drillDown, err := service.GetCommissionDrillDown(ctx, storeID, 2026, 7)

	require.NoError(t, err)
	require.Len(t, drillDown, 1)
	assert.Equal(t, "ORD-2026-00123", drillDown[0].OrderNumber)
	assert.Equal(t, "10.00", drillDown[0].CommissionRate)
	assert.Equal(t, "5.00", drillDown[0].CommissionAmount)
	assert.Equal(t, "50.00", drillDown[0].RemainingPayout)
}

func TestGetCommissionSummary_InvalidMonth(t *testing.T) {
	service := newService(new(MockRuleRepository), new(MockEscrowRepository))
	_, err := service.GetCommissionSummary(context.Background(), uuid.New(), 2026, 13)
	assert.Error(t, err)
}
