package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	payoutapp "github.com/SebastianDabkowski/mercato-2-sub001/internal/application/payout"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/escrow"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/payout"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared/valueobject"
)

// MockPayoutRepository implements payout.Repository for testing
type MockPayoutRepository struct {
	mock.Mock
}

func (m *MockPayoutRepository) FindByID(ctx context.Context, id uuid.UUID) (*payout.SellerPayout, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payout.SellerPayout), args.Error(1)
}

func (m *MockPayoutRepository) FindScheduledForStore(ctx context.Context, storeID uuid.UUID) (*payout.SellerPayout, error) {
	args := m.Called(ctx, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payout.SellerPayout), args.Error(1)
}

func (m *MockPayoutRepository) FindDue(ctx context.Context, date time.Time) ([]payout.SellerPayout, error) {
	args := m.Called(ctx, date)
	return args.Get(0).([]payout.SellerPayout), args.Error(1)
}

func (m *MockPayoutRepository) FindRetryable(ctx context.Context, at time.Time) ([]payout.SellerPayout, error) {
	args := m.Called(ctx, at)
	return args.Get(0).([]payout.SellerPayout), args.Error(1)
}

func (m *MockPayoutRepository) FindStalledProcessing(ctx context.Context, updatedBefore time.Time) ([]payout.SellerPayout, error) {
	args := m.Called(ctx, updatedBefore)
	return args.Get(0).([]payout.SellerPayout), args.Error(1)
}

func (m *MockPayoutRepository) FindByStore(ctx context.Context, storeID uuid.UUID, limit int) ([]payout.SellerPayout, error) {
	args := m.Called(ctx, storeID, limit)
	return args.Get(0).([]payout.SellerPayout), args.Error(1)
}

func (m *MockPayoutRepository) Save(ctx context.Context, p *payout.SellerPayout) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPayoutRepository) SavePaidWithReleases(ctx context.Context, p *payout.SellerPayout, allocations []*escrow.EscrowAllocation) error {
	args := m.Called(ctx, p, allocations)
	return args.Error(0)
}

var _ payout.Repository = (*MockPayoutRepository)(nil)

// MockSettingsReader implements payout.SettingsReader for testing
type MockSettingsReader struct {
	mock.Mock
}

func (m *MockSettingsReader) FindByStore(ctx context.Context, storeID uuid.UUID) (*payout.Settings, error) {
	args := m.Called(ctx, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payout.Settings), args.Error(1)
}

var _ payout.SettingsReader = (*MockSettingsReader)(nil)

// MockTransferGateway implements payout.TransferGateway for testing
type MockTransferGateway struct {
	mock.Mock
}

func (m *MockTransferGateway) Transfer(ctx context.Context, req payout.TransferRequest) (*payout.TransferResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payout.TransferResult), args.Error(1)
}

var _ payout.TransferGateway = (*MockTransferGateway)(nil)

// MockNotifier implements payoutapp.Notifier for testing
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyPayoutFailed(ctx context.Context, p *payout.SellerPayout, terminal bool) {
	m.Called(ctx, p, terminal)
}

func (m *MockNotifier) NotifyPayoutPaid(ctx context.Context, p *payout.SellerPayout) {
	m.Called(ctx, p)
}

var _ payoutapp.Notifier = (*MockNotifier)(nil)

// Test helpers

func setupPayoutTestRouter() (*gin.Engine, *MockPayoutRepository, *MockEscrowRepository, *MockSettingsReader) {
	gin.SetMode(gin.TestMode)

	payoutRepo := new(MockPayoutRepository)
	escrowRepo := new(MockEscrowRepository)
	settings := new(MockSettingsReader)
	gateway := new(MockTransferGateway)
	notifier := new(MockNotifier)

	cfg := payoutapp.Config{
		MinimumAmount: valueobject.NewMoneyEUR(decimal.NewFromInt(25)),
		MaxRetries:    3,
		RetryDelay:    time.Hour,
		Frequency:     payout.FrequencyWeekly,
		Weekday:       time.Friday,
	}
	service := payoutapp.NewPayoutService(payoutRepo, escrowRepo, settings, gateway, notifier, cfg, testLogger())
	handler := NewPayoutHandler(service)

	router := gin.New()
	router.POST("/payouts/schedule", handler.Schedule)
	router.POST("/payouts/run-due", handler.RunDue)
	router.GET("/payouts/:id", handler.GetByID)
	router.GET("/stores/:store_id/payouts", handler.ListByStore)
	router.GET("/stores/:store_id/payouts/summary", handler.GetStoreSummary)

	return router, payoutRepo, escrowRepo, settings
}

func verifiedSettings(storeID uuid.UUID) *payout.Settings {
	return &payout.Settings{
		StoreID:       storeID,
		Method:        payout.MethodSEPA,
		AccountHolder: "Mercer Flowers GmbH",
		IBAN:          "DE89370400440532013000",
		BIC:           "COBADEFFXXX",
		Verified:      true,
	}
}

// eligibleAllocation builds an allocation whose hold period has already
// elapsed, carrying 50 EUR of seller funds minus 5 EUR commission.
func eligibleAllocation(t *testing.T, storeID uuid.UUID) escrow.EscrowAllocation {
	t.Helper()
	payment, err := escrow.NewEscrowPayment(uuid.New(), "ORD-2026-00010", valueobject.NewMoneyEUR(decimal.NewFromInt(55)))
	require.NoError(t, err)
	alloc, err := payment.AddAllocation(
		uuid.New(), storeID, uuid.New(),
		valueobject.NewMoneyEUR(decimal.NewFromInt(50)),
		valueobject.NewMoneyEUR(decimal.NewFromInt(5)),
		decimal.NewFromInt(10),
		valueobject.NewMoneyEUR(decimal.NewFromInt(5)),
	)
	require.NoError(t, err)
	past := time.Now().Add(-24 * time.Hour)
	alloc.EligibleForPayoutAt = &past
	return *alloc
}

// Tests

func TestPayoutHandler_Schedule(t *testing.T) {
	t.Run("schedules a payout from eligible funds", func(t *testing.T) {
		router, payoutRepo, escrowRepo, settings := setupPayoutTestRouter()

		storeID := uuid.New()
		settings.On("FindByStore", mock.Anything, storeID).Return(verifiedSettings(storeID), nil)
		escrowRepo.On("FindEligibleUnclaimed", mock.Anything, storeID).
			Return([]escrow.EscrowAllocation{eligibleAllocation(t, storeID)}, nil)
		payoutRepo.On("FindScheduledForStore", mock.Anything, storeID).Return(nil, nil)
		payoutRepo.On("Save", mock.Anything, mock.AnythingOfType("*payout.SellerPayout")).Return(nil)

		body, _ := json.Marshal(SchedulePayoutRequest{StoreID: storeID.String()})
		req := httptest.NewRequest(http.MethodPost, "/payouts/schedule", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		data := response["data"].(map[string]interface{})
		assert.Equal(t, "SCHEDULED", data["outcome"])
		assert.Equal(t, "50", data["eligible_amount"])
		assert.NotNil(t, data["payout"])
		payoutRepo.AssertExpectations(t)
	})

	t.Run("reports no eligible funds without touching the payout store", func(t *testing.T) {
		router, payoutRepo, escrowRepo, settings := setupPayoutTestRouter()

		storeID := uuid.New()
		settings.On("FindByStore", mock.Anything, storeID).Return(verifiedSettings(storeID), nil)
		escrowRepo.On("FindEligibleUnclaimed", mock.Anything, storeID).
			Return([]escrow.EscrowAllocation{}, nil)

		body, _ := json.Marshal(SchedulePayoutRequest{StoreID: storeID.String()})
		req := httptest.NewRequest(http.MethodPost, "/payouts/schedule", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		data := response["data"].(map[string]interface{})
		assert.Equal(t, "NO_ELIGIBLE_FUNDS", data["outcome"])
		payoutRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("returns 422 when payout settings are missing", func(t *testing.T) {
		router, _, _, settings := setupPayoutTestRouter()

		storeID := uuid.New()
		settings.On("FindByStore", mock.Anything, storeID).Return(nil, nil)

		body, _ := json.Marshal(SchedulePayoutRequest{StoreID: storeID.String()})
		req := httptest.NewRequest(http.MethodPost, "/payouts/schedule", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_PAYOUT_SETTINGS_MISSING")
	})

	t.Run("returns 400 for a missing store ID", func(t *testing.T) {
		router, _, _, _ := setupPayoutTestRouter()

		req := httptest.NewRequest(http.MethodPost, "/payouts/schedule", bytes.NewBufferString(`{}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPayoutHandler_GetByID(t *testing.T) {
	t.Run("returns a payout with its items", func(t *testing.T) {
		router, payoutRepo, _, _ := setupPayoutTestRouter()

		p, err := payout.NewSellerPayout(uuid.New(), uuid.New(), valueobject.EUR, time.Now().AddDate(0, 0, 3), payout.MethodSEPA, 3)
		require.NoError(t, err)
		require.NoError(t, p.AddItem(uuid.New(), valueobject.NewMoneyEUR(decimal.NewFromInt(45))))

		payoutRepo.On("FindByID", mock.Anything, p.ID).Return(p, nil)

		req := httptest.NewRequest(http.MethodGet, "/payouts/"+p.ID.String(), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		data := response["data"].(map[string]interface{})
		assert.Equal(t, "SCHEDULED", data["status"])
		assert.Len(t, data["items"], 1)
	})

	t.Run("returns 404 for an unknown payout", func(t *testing.T) {
		router, payoutRepo, _, _ := setupPayoutTestRouter()

		id := uuid.New()
		payoutRepo.On("FindByID", mock.Anything, id).Return(nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/payouts/"+id.String(), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_NOT_FOUND")
	})
}

func TestPayoutHandler_RunDue(t *testing.T) {
	t.Run("reports zero counts when nothing is due", func(t *testing.T) {
		router, payoutRepo, _, _ := setupPayoutTestRouter()

		payoutRepo.On("FindDue", mock.Anything, mock.Anything).Return([]payout.SellerPayout{}, nil)

		req := httptest.NewRequest(http.MethodPost, "/payouts/run-due", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		data := response["data"].(map[string]interface{})
		assert.Equal(t, float64(0), data["processed"])
		assert.Equal(t, float64(0), data["failed"])
	})
}

func TestPayoutHandler_ListByStore(t *testing.T) {
	t.Run("lists the store's payouts", func(t *testing.T) {
		router, payoutRepo, _, _ := setupPayoutTestRouter()

		storeID := uuid.New()
		p, err := payout.NewSellerPayout(storeID, uuid.New(), valueobject.EUR, time.Now().AddDate(0, 0, 3), payout.MethodSEPA, 3)
		require.NoError(t, err)

		payoutRepo.On("FindByStore", mock.Anything, storeID, 50).Return([]payout.SellerPayout{*p}, nil)

		req := httptest.NewRequest(http.MethodGet, "/stores/"+storeID.String()+"/payouts", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Len(t, response["data"], 1)
	})

	t.Run("returns 400 for a malformed limit", func(t *testing.T) {
		router, _, _, _ := setupPayoutTestRouter()

		req := httptest.NewRequest(http.MethodGet, "/stores/"+uuid.New().String()+"/payouts?limit=lots", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPayoutHandler_GetStoreSummary(t *testing.T) {
	t.Run("reports available funds and the open scheduled payout", func(t *testing.T) {
		router, payoutRepo, escrowRepo, _ := setupPayoutTestRouter()

		storeID := uuid.New()
		scheduled, err := payout.NewSellerPayout(storeID, uuid.New(), valueobject.EUR, time.Now().AddDate(0, 0, 3), payout.MethodSEPA, 3)
		require.NoError(t, err)
		require.NoError(t, scheduled.AddItem(uuid.New(), valueobject.NewMoneyEUR(decimal.NewFromInt(30))))

		escrowRepo.On("FindEligibleUnclaimed", mock.Anything, storeID).
			Return([]escrow.EscrowAllocation{eligibleAllocation(t, storeID)}, nil)
		payoutRepo.On("FindScheduledForStore", mock.Anything, storeID).Return(scheduled, nil)

		req := httptest.NewRequest(http.MethodGet, "/stores/"+storeID.String()+"/payouts/summary", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		data := response["data"].(map[string]interface{})
		assert.Equal(t, "50", data["available_amount"])
		assert.Equal(t, "0", data["pending_amount"])
		assert.Equal(t, "30", data["scheduled_amount"])
		assert.Equal(t, "EUR", data["currency"])
		assert.Equal(t, false, data["below_minimum"])
		assert.Equal(t, scheduled.ID.String(), data["scheduled_payout_id"])
		assert.NotEmpty(t, data["next_payout_date"])
	})

	t.Run("flags available funds below the payout minimum", func(t *testing.T) {
		router, payoutRepo, escrowRepo, _ := setupPayoutTestRouter()

		storeID := uuid.New()
		escrowRepo.On("FindEligibleUnclaimed", mock.Anything, storeID).
			Return([]escrow.EscrowAllocation{}, nil)
		payoutRepo.On("FindScheduledForStore", mock.Anything, storeID).Return(nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/stores/"+storeID.String()+"/payouts/summary", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		data := response["data"].(map[string]interface{})
		assert.Equal(t, "0", data["available_amount"])
		assert.Equal(t, true, data["below_minimum"])
		assert.Nil(t, data["scheduled_payout_id"])
	})

	t.Run("returns 400 for a malformed store id", func(t *testing.T) {
		router, _, _, _ := setupPayoutTestRouter()

		req := httptest.NewRequest(http.MethodGet, "/stores/not-a-uuid/payouts/summary", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
