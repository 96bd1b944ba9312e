package handler

import (
	"bytes"
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

	commissionapp "github.com/SebastianDabkowski/mercato-2-sub001/internal/application/commission"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/commission"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/escrow"
)

func setupCommissionTestRouter() (*gin.Engine, *MockRuleRepository, *MockEscrowRepository) {
	gin.SetMode(gin.TestMode)

	rules := new(MockRuleRepository)
	escrowRepo := new(MockEscrowRepository)
	service := commissionapp.NewCommissionService(rules, escrowRepo, testLogger())
	handler := NewCommissionHandler(service)

	router := gin.New()
	router.POST("/commission/rules", handler.CreateRule)
	router.DELETE("/commission/rules/:id", handler.DeactivateRule)
	router.GET("/commission/stores/:store_id/summary/:year/:month", handler.GetSummary)
	router.GET("/commission/stores/:store_id/drilldown/:year/:month", handler.GetDrillDown)

	return router, rules, escrowRepo
}

func newSellerRule(t *testing.T, storeID uuid.UUID) *commission.CommissionRule {
	t.Helper()
	rule, err := commission.NewCommissionRule(
		commission.RuleScopeSeller, &storeID, nil,
		decimal.RequireFromString("8.5"),
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), nil,
		"Negotiated seller rate",
	)
	require.NoError(t, err)
	return rule
}

func TestCommissionHandler_CreateRule(t *testing.T) {
	t.Run("creates a seller rule", func(t *testing.T) {
		router, rules, _ := setupCommissionTestRouter()

		storeID := uuid.New().String()
		rules.On("FindOverlapping", mock.Anything, mock.AnythingOfType("*commission.CommissionRule")).
			Return([]commission.CommissionRule{}, nil)
		rules.On("Save", mock.Anything, mock.AnythingOfType("*commission.CommissionRule")).Return(nil)

		body, _ := json.Marshal(CreateRuleRequest{
			Scope:         "SELLER",
			StoreID:       &storeID,
			Rate:          "8.5",
			EffectiveFrom: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		})
		req := httptest.NewRequest(http.MethodPost, "/commission/rules", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		data := response["data"].(map[string]interface{})
		assert.Equal(t, "SELLER", data["scope"])
		assert.Equal(t, "8.5", data["rate"])
		assert.Equal(t, true, data["active"])
		rules.AssertExpectations(t)
	})

	t.Run("returns 409 for an overlapping effective window", func(t *testing.T) {
		router, rules, _ := setupCommissionTestRouter()

		storeID := uuid.New()
		existing := newSellerRule(t, storeID)
		rules.On("FindOverlapping", mock.Anything, mock.AnythingOfType("*commission.CommissionRule")).
			Return([]commission.CommissionRule{*existing}, nil)

		storeIDRaw := storeID.String()
		body, _ := json.Marshal(CreateRuleRequest{
			Scope:         "SELLER",
			StoreID:       &storeIDRaw,
			Rate:          "12",
			EffectiveFrom: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		})
		req := httptest.NewRequest(http.MethodPost, "/commission/rules", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_CONFLICT")
		rules.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("returns 400 for a malformed rate", func(t *testing.T) {
		router, _, _ := setupCommissionTestRouter()

		body, _ := json.Marshal(CreateRuleRequest{
			Scope:         "GLOBAL",
			Rate:          "ten percent",
			EffectiveFrom: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		})
		req := httptest.NewRequest(http.MethodPost, "/commission/rules", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("returns 400 for an unknown scope", func(t *testing.T) {
		router, _, _ := setupCommissionTestRouter()

		body, _ := json.Marshal(map[string]interface{}{
			"scope":          "REGIONAL",
			"rate":           "8.5",
			"effective_from": "2026-01-01T00:00:00Z",
		})
		req := httptest.NewRequest(http.MethodPost, "/commission/rules", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCommissionHandler_DeactivateRule(t *testing.T) {
	t.Run("deactivates an existing rule", func(t *testing.T) {
		router, rules, _ := setupCommissionTestRouter()

		rule := newSellerRule(t, uuid.New())
		rules.On("FindByID", mock.Anything, rule.ID).Return(rule, nil)
		rules.On("Save", mock.Anything, rule).Return(nil)

		req := httptest.NewRequest(http.MethodDelete, "/commission/rules/"+rule.ID.String(), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.False(t, rule.Active)
		rules.AssertExpectations(t)
	})

	t.Run("returns 404 for an unknown rule", func(t *testing.T) {
		router, rules, _ := setupCommissionTestRouter()

		id := uuid.New()
		rules.On("FindByID", mock.Anything, id).Return(nil, nil)

		req := httptest.NewRequest(http.MethodDelete, "/commission/rules/"+id.String(), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestCommissionHandler_GetSummary(t *testing.T) {
	t.Run("aggregates the month's commission figures", func(t *testing.T) {
		router, _, escrowRepo := setupCommissionTestRouter()

		storeID := uuid.New()
		escrowRepo.On("FindAllocationsCreatedBetween", mock.Anything, storeID, mock.Anything, mock.Anything).
			Return([]escrow.AllocationWithOrder{
				{Allocation: eligibleAllocation(t, storeID), OrderID: uuid.New(), OrderNumber: "ORD-2026-00010"},
			}, nil)

		req := httptest.NewRequest(http.MethodGet, "/commission/stores/"+storeID.String()+"/summary/2026/3", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		data := response["data"].(map[string]interface{})
		assert.Equal(t, float64(1), data["order_count"])
		assert.Equal(t, float64(1), data["shipment_count"])
		assert.Equal(t, "50.00", data["gross_sales"])
		assert.Equal(t, "5.00", data["total_commission"])
		assert.Equal(t, "10.00", data["effective_rate"])
	})

	t.Run("returns 400 for a malformed period", func(t *testing.T) {
		router, _, _ := setupCommissionTestRouter()

		req := httptest.NewRequest(http.MethodGet, "/commission/stores/"+uuid.New().String()+"/summary/2026/13", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCommissionHandler_GetDrillDown(t *testing.T) {
	t.Run("lists per-shipment detail", func(t *testing.T) {
		router, _, escrowRepo := setupCommissionTestRouter()

		storeID := uuid.New()
		escrowRepo.On("FindAllocationsCreatedBetween", mock.Anything, storeID, mock.Anything, mock.Anything).
			Return([]escrow.AllocationWithOrder{
				{Allocation: eligibleAllocation(t, storeID), OrderID: uuid.New(), OrderNumber: "ORD-2026-00010"},
			}, nil)

		req := httptest.NewRequest(http.MethodGet, "/commission/stores/"+storeID.String()+"/drilldown/2026/3", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		rows := response["data"].([]interface{})
		require.Len(t, rows, 1)
		row := rows[0].(map[string]interface{})
		assert.Equal(t, "ORD-2026-00010", row["order_number"])
		assert.Equal(t, "10.00", row["commission_rate"])
	})
}
