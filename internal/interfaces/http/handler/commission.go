package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	commissionapp "github.com/SebastianDabkowski/mercato-2-sub001/internal/application/commission"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/commission"
)

// CommissionHandler handles commission rule and reporting API endpoints
type CommissionHandler struct {
	BaseHandler
	commissionService *commissionapp.CommissionService
}

// NewCommissionHandler creates a new CommissionHandler
func NewCommissionHandler(commissionService *commissionapp.CommissionService) *CommissionHandler {
	return &CommissionHandler{
		commissionService: commissionService,
	}
}

// ===================== Request/Response Types for Swagger =====================

// CommissionRuleResponse represents a commission rule
// @Description Commission rule with scope, rate and effective window
type CommissionRuleResponse struct {
	ID             string  `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Scope          string  `json:"scope" example:"SELLER"`
	StoreID        *string `json:"store_id,omitempty"`
	CategoryID     *string `json:"category_id,omitempty"`
	Rate           string  `json:"rate" example:"8.5"`
	EffectiveFrom  string  `json:"effective_from" example:"2026-01-01T00:00:00Z"`
	EffectiveUntil *string `json:"effective_until,omitempty"`
	Active         bool    `json:"active" example:"true"`
	Description    string  `json:"description,omitempty"`
}

// CreateRuleRequest creates a commission rule
// @Description Request body for a new commission rule; rate is a percentage in [0, 100]
type CreateRuleRequest struct {
	Scope          string     `json:"scope" binding:"required,oneof=GLOBAL CATEGORY SELLER" example:"SELLER"`
	StoreID        *string    `json:"store_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	CategoryID     *string    `json:"category_id" example:"550e8400-e29b-41d4-a716-446655440001"`
	Rate           string     `json:"rate" binding:"required" example:"8.5"`
	EffectiveFrom  time.Time  `json:"effective_from" binding:"required" example:"2026-01-01T00:00:00Z"`
	EffectiveUntil *time.Time `json:"effective_until" example:"2026-07-01T00:00:00Z"`
	Description    string     `json:"description" example:"Spring promotion rate"`
}

func toRuleResponse(r *commission.CommissionRule) CommissionRuleResponse {
	resp := CommissionRuleResponse{
		ID:            r.ID.String(),
		Scope:         string(r.Scope),
		Rate:          r.Rate.String(),
		EffectiveFrom: r.EffectiveFrom.Format(time.RFC3339),
		Active:        r.Active,
		Description:   r.Description,
	}
	if r.StoreID != nil {
		v := r.StoreID.String()
		resp.StoreID = &v
	}
	if r.CategoryID != nil {
		v := r.CategoryID.String()
		resp.CategoryID = &v
	}
	if r.EffectiveUntil != nil {
		v := r.EffectiveUntil.Format(time.RFC3339)
		resp.EffectiveUntil = &v
	}
	return resp
}

// CreateRule godoc
// @ID           createCommissionRule
// @Summary      Create a commission rule
// @Description  Register a commission rate for a scope; overlapping effective windows within the same scope are rejected
// @Tags         commission
// @Accept       json
// @Produce      json
// @Param        request body CreateRuleRequest true "Rule definition"
// @Success      201 {object} APIResponse[CommissionRuleResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /commission/rules [post]
func (h *CommissionHandler) CreateRule(c *gin.Context) {
	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	rate, err := decimal.NewFromString(req.Rate)
	if err != nil {
		h.BadRequest(c, "Invalid rate")
		return
	}

	appReq := commissionapp.CreateRuleRequest{
		Scope:          commission.RuleScope(req.Scope),
		Rate:           rate,
		EffectiveFrom:  req.EffectiveFrom,
		EffectiveUntil: req.EffectiveUntil,
		Description:    req.Description,
	}
	if req.StoreID != nil {
		storeID, err := uuid.Parse(*req.StoreID)
		if err != nil {
			h.BadRequest(c, "Invalid store ID")
			return
		}
		appReq.StoreID = &storeID
	}
	if req.CategoryID != nil {
		categoryID, err := uuid.Parse(*req.CategoryID)
		if err != nil {
			h.BadRequest(c, "Invalid category ID")
			return
		}
		appReq.CategoryID = &categoryID
	}

	rule, err := h.commissionService.CreateRule(c.Request.Context(), appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toRuleResponse(rule))
}

// DeactivateRule godoc
// @ID           deactivateCommissionRule
// @Summary      Deactivate a commission rule
// @Description  Retire a rule; allocations created under it keep their snapshotted rate
// @Tags         commission
// @Produce      json
// @Param        id path string true "Rule ID" format(uuid)
// @Success      204 "No Content"
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /commission/rules/{id} [delete]
func (h *CommissionHandler) DeactivateRule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid rule ID")
		return
	}

	if err := h.commissionService.DeactivateRule(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// GetSummary godoc
// @ID           getCommissionSummary
// @Summary      Get a store's commission summary
// @Description  Aggregate commission figures for one month from ledger snapshots
// @Tags         commission
// @Produce      json
// @Param        store_id path string true "Store ID" format(uuid)
// @Param        year path int true "Year" example(2026)
// @Param        month path int true "Month" example(3)
// @Success      200 {object} APIResponse[commissionapp.Summary]
// @Failure      400 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /commission/stores/{store_id}/summary/{year}/{month} [get]
func (h *CommissionHandler) GetSummary(c *gin.Context) {
	storeID, err := uuid.Parse(c.Param("store_id"))
	if err != nil {
		h.BadRequest(c, "Invalid store ID")
		return
	}
	year, month, ok := parsePeriodParams(c)
	if !ok {
		h.BadRequest(c, "Invalid period")
		return
	}

	summary, err := h.commissionService.GetCommissionSummary(c.Request.Context(), storeID, year, month)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// GetDrillDown godoc
// @ID           getCommissionDrillDown
// @Summary      Get per-shipment commission detail
// @Description  List each shipment's commission figures behind a monthly summary
// @Tags         commission
// @Produce      json
// @Param        store_id path string true "Store ID" format(uuid)
// @Param        year path int true "Year" example(2026)
// @Param        month path int true "Month" example(3)
// @Success      200 {object} APIResponse[[]commissionapp.DrillDownRow]
// @Failure      400 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /commission/stores/{store_id}/drilldown/{year}/{month} [get]
func (h *CommissionHandler) GetDrillDown(c *gin.Context) {
	storeID, err := uuid.Parse(c.Param("store_id"))
	if err != nil {
		h.BadRequest(c, "Invalid store ID")
		return
	}
	year, month, ok := parsePeriodParams(c)
	if !ok {
		h.BadRequest(c, "Invalid period")
		return
	}

	rows, err := h.commissionService.GetCommissionDrillDown(c.Request.Context(), storeID, year, month)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rows)
}
