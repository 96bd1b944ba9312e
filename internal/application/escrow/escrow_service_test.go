package escrow

import (
	"context"
	"errors"
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
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared/valueobject"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/trade"
)

// MockEscrowRepository is a mock implementation of EscrowPaymentRepository
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

// Verify interface compliance
var _ escrow.EscrowPaymentRepository = (*MockEscrowRepository)(nil)

// MockOrderReader is a mock implementation of trade.OrderReader
type MockOrderReader struct {
	mock.Mock
}

func (m *MockOrderReader) FindOrder(ctx context.Context, orderID uuid.UUID) (*trade.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Order), args.Error(1)
}

func (m *MockOrderReader) FindOrderNumbers(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	args := m.Called(ctx, orderIDs)
	return args.Get(0).(map[uuid.UUID]string), args.Error(1)
}

var _ trade.OrderReader = (*MockOrderReader)(nil)

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

// Test helper functions
func newTestLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

func newTestService(escrowRepo *MockEscrowRepository, orderReader *MockOrderReader, rules *MockRuleRepository) *EscrowService {
	calc := commission.NewCalculator(rules, commission.Config{DefaultRate: decimal.NewFromInt(10)})
	return NewEscrowService(escrowRepo, orderReader, calc, Config{HoldPeriodDays: 7}, newTestLogger())
}

func newTestOrder(orderID uuid.UUID) *trade.Order {
	paidAt := time.Now()
	return &trade.Order{
		ID:          orderID,
		OrderNumber: "ORD-2026-00077",
		BuyerID:     uuid.New(),
		TotalAmount: decimal.NewFromInt(110),
		Currency:    valueobject.EUR,
		PaidAt:      &paidAt,
		Shipments: []trade.Shipment{
			{
				ID:           uuid.New(),
				OrderID:      orderID,
				StoreID:      uuid.New(),
				SellerID:     uuid.New(),
				Subtotal:     decimal.NewFromInt(50),
				ShippingCost: decimal.NewFromInt(5),
				Status:       trade.ShipmentStatusPending,
			},
			{
				ID:           uuid.New(),
				OrderID:      orderID,
				StoreID:      uuid.New(),
				SellerID:     uuid.New(),
				Subtotal:     decimal.NewFromInt(50),
				ShippingCost: decimal.NewFromInt(5),
				Status:       trade.ShipmentStatusPending,
			},
		},
	}
}

func TestCreateEscrowForOrder_Success(t *testing.T) {
	ctx := context.Background()
	escrowRepo := new(MockEscrowRepository)
	orderReader := new(MockOrderReader)
	rules := new(MockRuleRepository)
	service := newTestService(escrowRepo, orderReader, rules)

	orderID := uuid.New()
	order := newTestOrder(orderID)

	escrowRepo.On("FindByOrderID", ctx, orderID).Return(nil, nil)
	orderReader.On("FindOrder", ctx, orderID).Return(order, nil)
	rules.On("FindEffective", ctx, mock.Anything, mock.Anything, mock.Anything).
		Return([]commission.CommissionRule{}, nil)
	escrowRepo.On("Save", ctx, mock.AnythingOfType("*escrow.EscrowPayment")).Return(nil)

	payment, err := service.CreateEscrowForOrder(ctx, orderID)

	require.NoError(t, err)
	require.Len(t, payment.Allocations, 2)
	alloc := payment.Allocations[0]
	assert.True(t, alloc.CommissionRate.Equal(decimal.NewFromInt(10)), "default rate snapshot")
	assert.True(t, alloc.CommissionAmount.Equal(decimal.NewFromInt(5)), "10%% of 50")
	assert.True(t, alloc.RemainingPayout().Amount().Equal(decimal.NewFromInt(50)))
	escrowRepo.AssertExpectations(t)
}

func TestCreateEscrowForOrder_Idempotent(t *testing.T) {
	ctx := context.Background()
	escrowRepo := new(MockEscrowRepository)
	orderReader := new(MockOrderReader)
	rules := new(MockRuleRepository)
	service := newTestService(escrowRepo, orderReader, rules)

	orderID := uuid.New()
	existing, err := escrow.NewEscrowPayment(orderID, "ORD-1", valueobject.NewMoneyEUR(decimal.NewFromInt(110)))
	require.NoError(t, err)

	escrowRepo.On("FindByOrderID", ctx, orderID).Return(existing, nil)

	payment, err := service.CreateEscrowForOrder(ctx, orderID)

	require.NoError(t, err)
	assert.Equal(t, existing.ID, payment.ID)
	escrowRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	orderReader.AssertNotCalled(t, "FindOrder", mock.Anything, mock.Anything)
}

func TestCreateEscrowForOrder_OrderNotFound(t *testing.T) {
	ctx := context.Background()
	escrowRepo := new(MockEscrowRepository)
	orderReader := new(MockOrderReader)
	rules := new(MockRuleRepository)
	service := newTestService(escrowRepo, orderReader, rules)

	orderID := uuid.New()
	escrowRepo.On("FindByOrderID", ctx, orderID).Return(nil, nil)
	orderReader.On("FindOrder", ctx, orderID).Return(nil, nil)

	_, err := service.CreateEscrowForOrder(ctx, orderID)
	assert.Error(t, err)
}

func TestCreateEscrowForOrder_UnpaidOrder(t *testing.T) {
	ctx := context.Background()
	escrowRepo := new(MockEscrowRepository)
	orderReader := new(MockOrderReader)
	rules := new(MockRuleRepository)
	service := newTestService(escrowRepo, orderReader, rules)

	orderID := uuid.New()
	order := newTestOrder(orderID)
	order.PaidAt = nil

	escrowRepo.On("FindByOrderID", ctx, orderID).Return(nil, nil)
	orderReader.On("FindOrder", ctx, orderID).Return(order, nil)

	_, err := service.CreateEscrowForOrder(ctx, orderID)
	assert.Error(t, err)
	escrowRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCreateEscrowForOrder_CommissionFailureFailsOperation(t *testing.T) {
	ctx := context.Background()
	escrowRepo := new(MockEscrowRepository)
	orderReader := new(MockOrderReader)
	rules := new(MockRuleRepository)
	service := newTestService(escrowRepo, orderReader, rules)

	orderID := uuid.New()
	order := newTestOrder(orderID)

	escrowRepo.On("FindByOrderID", ctx, orderID).Return(nil, nil)
	orderReader.On("FindOrder", ctx, orderID).Return(order, nil)
	rules.On("FindEffective", ctx, mock.Anything, mock.Anything, mock.Anything).
		Return([]commission.CommissionRule{}, errors.New("rule store down"))

	_, err := service.CreateEscrowForOrder(ctx, orderID)
	assert.Error(t, err, "a rate lookup failure must never fall back to 0%")
	escrowRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCreateEscrowForOrder_LostRaceReturnsWinner(t *testing.T) {
	ctx := context.Background()
	escrowRepo := new(MockEscrowRepository)
	orderReader := new(MockOrderReader)
	rules := new(MockRuleRepository)
	service := newTestService(escrowRepo, orderReader, rules)

	orderID := uuid.New()
	order := newTestOrder(orderID)
	winner, err := escrow.NewEscrowPayment(orderID, order.OrderNumber, valueobject.NewMoneyEUR(decimal.NewFromInt(110)))
	require.NoError(t, err)

	escrowRepo.On("FindByOrderID", ctx, orderID).Return(nil, nil).Once()
	orderReader.On("FindOrder", ctx, orderID).Return(order, nil)
	rules.On("FindEffective", ctx, mock.Anything, mock.Anything, mock.Anything).
		Return([]commission.CommissionRule{}, nil)
	escrowRepo.On("Save", ctx, mock.AnythingOfType("*escrow.EscrowPayment")).
		Return(errors.New("duplicate key value violates unique constraint"))
	escrowRepo.On("FindByOrderID", ctx, orderID).Return(winner, nil).Once()

	payment, err := service.CreateEscrowForOrder(ctx, orderID)

	require.NoError(t, err)
	assert.Equal(t, winner.ID, payment.ID)
}

func newDeliverableEscrow(t *testing.T, shipmentID uuid.UUID) *escrow.EscrowPayment {
	t.Helper()
	payment, err := escrow.NewEscrowPayment(uuid.New(), "ORD-2", valueobject.NewMoneyEUR(decimal.NewFromInt(55)))
	require.NoError(t, err)
	_, err = payment.AddAllocation(
		shipmentID, uuid.New(), uuid.New(),
		valueobject.NewMoneyEUR(decimal.NewFromInt(50)),
		valueobject.NewMoneyEUR(decimal.NewFromInt(5)),
		decimal.NewFromInt(10),
		valueobject.NewMoneyEUR(decimal.NewFromInt(5)),
	)
	require.NoError(t, err)
	return payment
}

func TestMarkShipmentEligible_AppliesHoldPeriod(t *testing.T) {
	ctx := context.Background()
	escrowRepo := new(MockEscrowRepository)
	service := newTestService(escrowRepo, new(MockOrderReader), new(MockRuleRepository))

	shipmentID := uuid.New()
	payment := newDeliverableEscrow(t, shipmentID)
	deliveredAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	escrowRepo.On("FindByShipmentID", ctx, shipmentID).Return(payment, nil)
	escrowRepo.On("SaveAllocation", ctx, mock.AnythingOfType("*escrow.EscrowAllocation")).Return(nil)

	err := service.MarkShipmentEligible(ctx, shipmentID, deliveredAt)

	require.NoError(t, err)
	alloc := payment.FindAllocationByShipment(shipmentID)
	require.NotNil(t, alloc.EligibleForPayoutAt)
	assert.Equal(t, deliveredAt.AddDate(0, 0, 7), *alloc.EligibleForPayoutAt)
	escrowRepo.AssertExpectations(t)
}

func TestMarkShipmentEligible_Redelivery_NoOp(t *testing.T) {
	ctx := context.Background()
	escrowRepo := new(MockEscrowRepository)
	service := newTestService(escrowRepo, new(MockOrderReader), new(MockRuleRepository))

	shipmentID := uuid.New()
	payment := newDeliverableEscrow(t, shipmentID)
	deliveredAt := time.Now()
	_, _, err := payment.MarkShipmentEligible(shipmentID, deliveredAt)
	require.NoError(t, err)
	payment.ClearDomainEvents()

	escrowRepo.On("FindByShipmentID", ctx, shipmentID).Return(payment, nil)

	err = service.MarkShipmentEligible(ctx, shipmentID, deliveredAt.Add(time.Hour))

	require.NoError(t, err)
	escrowRepo.AssertNotCalled(t, "SaveAllocation", mock.Anything, mock.Anything)
}

func TestRefundShipment_NotFound(t *testing.T) {
	ctx := context.Background()
	escrowRepo := new(MockEscrowRepository)
	service := newTestService(escrowRepo, new(MockOrderReader), new(MockRuleRepository))

	shipmentID := uuid.New()
	escrowRepo.On("FindByShipmentID", ctx, shipmentID).Return(nil, nil)

	_, err := service.RefundShipment(ctx, shipmentID, nil)
	assert.Error(t, err)
}

func TestRefundShipment_Partial(t *testing.T) {
	ctx := context.Background()
	escrowRepo := new(MockEscrowRepository)
	service := newTestService(escrowRepo, new(MockOrderReader), new(MockRuleRepository))

	shipmentID := uuid.New()
	payment := newDeliverableEscrow(t, shipmentID)

	escrowRepo.On("FindByShipmentID", ctx, shipmentID).Return(payment, nil)
	escrowRepo.On("SaveAllocation", ctx, mock.AnythingOfType("*escrow.EscrowAllocation")).Return(nil)

	amount := valueobject.NewMoneyEUR(decimal.NewFromInt(11))
	alloc, err := service.RefundShipment(ctx, shipmentID, &amount)

	require.NoError(t, err)
	assert.True(t, alloc.RefundedAmount.Equal(decimal.NewFromInt(11)))
	assert.True(t, alloc.RemainingPayout().Amount().Equal(decimal.NewFromInt(40)))
	escrowRepo.AssertExpectations(t)
}
