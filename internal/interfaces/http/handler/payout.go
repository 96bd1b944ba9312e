package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	payoutapp "github.com/SebastianDabkowski/mercato-2-sub001/internal/application/payout"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/payout"
)

// PayoutHandler handles seller payout API endpoints
type PayoutHandler struct {
	BaseHandler
	payoutService *payoutapp.PayoutService
}

// NewPayoutHandler creates a new PayoutHandler
func NewPayoutHandler(payoutService *payoutapp.PayoutService) *PayoutHandler {
	return &PayoutHandler{
		payoutService: payoutService,
	}
}

// ===================== Request/Response Types for Swagger =====================

// PayoutItemResponse represents one allocation claimed by a payout
// @Description Payout line item referencing an escrow allocation
type PayoutItemResponse struct {
	ID           string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	AllocationID string `json:"allocation_id" example:"550e8400-e29b-41d4-a716-446655440001"`
	Amount       string `json:"amount" example:"115.79"`
}

// PayoutResponse represents a seller payout batch
// @Description Seller payout with status, schedule and claimed allocations
type PayoutResponse struct {
	ID              string               `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	StoreID         string               `json:"store_id" example:"550e8400-e29b-41d4-a716-446655440001"`
	SellerID        string               `json:"seller_id" example:"550e8400-e29b-41d4-a716-446655440002"`
	TotalAmount     string               `json:"total_amount" example:"482.50"`
	Currency        string               `json:"currency" example:"EUR"`
	Status          string               `json:"status" example:"SCHEDULED"`
	ScheduledDate   string               `json:"scheduled_date" example:"2026-03-10T00:00:00Z"`
	PayoutMethod    string               `json:"payout_method" example:"SEPA"`
	PayoutReference string               `json:"payout_reference,omitempty"`
	ErrorReference  string               `json:"error_reference,omitempty"`
	ErrorMessage    string               `json:"error_message,omitempty"`
	RetryCount      int                  `json:"retry_count" example:"0"`
	MaxRetries      int                  `json:"max_retries" example:"3"`
	NextRetryAt     *string              `json:"next_retry_at,omitempty"`
	CreatedAt       string               `json:"created_at" example:"2026-03-01T10:30:00Z"`
	Items           []PayoutItemResponse `json:"items,omitempty"`
}

// SchedulePayoutRequest requests payout scheduling for a store
// @Description Request body for gathering a store's eligible funds into a payout
type SchedulePayoutRequest struct {
	StoreID string `json:"store_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
}

// SchedulePayoutResponse reports the scheduling outcome
// @Description Outcome of a scheduling attempt
type SchedulePayoutResponse struct {
	Outcome        string          `json:"outcome" example:"SCHEDULED"`
	EligibleAmount string          `json:"eligible_amount" example:"482.50"`
	Currency       string          `json:"currency" example:"EUR"`
	Payout         *PayoutResponse `json:"payout,omitempty"`
}

// PayoutSummaryResponse reports a store's funds position
// @Description Available, pending and scheduled funds for a store
type PayoutSummaryResponse struct {
	StoreID           string  `json:"store_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	AvailableAmount   string  `json:"available_amount" example:"482.50"`
	PendingAmount     string  `json:"pending_amount" example:"120.00"`
	ScheduledAmount   string  `json:"scheduled_amount" example:"0"`
	Currency          string  `json:"currency" example:"EUR"`
	BelowMinimum      bool    `json:"below_minimum" example:"false"`
	MinimumAmount     string  `json:"minimum_amount" example:"25"`
	ScheduledPayoutID *string `json:"scheduled_payout_id,omitempty"`
	NextPayoutDate    *string `json:"next_payout_date,omitempty"`
}

// PayoutRunResponse reports the result of a batch payout run
// @Description Counts of processed and failed payouts in a batch run
type PayoutRunResponse struct {
	Processed int `json:"processed" example:"12"`
	Failed    int `json:"failed" example:"1"`
}

func toPayoutResponse(p *payout.SellerPayout, includeItems bool) PayoutResponse {
	resp := PayoutResponse{
		ID:              p.ID.String(),
		StoreID:         p.StoreID.String(),
		SellerID:        p.SellerID.String(),
		TotalAmount:     p.TotalAmount.String(),
		Currency:        string(p.Currency),
		Status:          string(p.Status),
		ScheduledDate:   p.ScheduledDate.Format(time.RFC3339),
		PayoutMethod:    string(p.PayoutMethod),
		PayoutReference: p.PayoutReference,
		ErrorReference:  p.ErrorReference,
		ErrorMessage:    p.ErrorMessage,
		RetryCount:      p.RetryCount,
		MaxRetries:      p.MaxRetries,
		CreatedAt:       p.CreatedAt.Format(time.RFC3339),
	}
	if p.NextRetryAt != nil {
		s := p.NextRetryAt.Format(time.RFC3339)
		resp.NextRetryAt = &s
	}
	if includeItems {
		resp.Items = make([]PayoutItemResponse, 0, len(p.Items))
		for i := range p.Items {
			item := &p.Items[i]
			resp.Items = append(resp.Items, PayoutItemResponse{
				ID:           item.ID.String(),
				AllocationID: item.AllocationID.String(),
				Amount:       item.Amount.String(),
			})
		}
	}
	return resp
}

// Schedule godoc
// @ID           schedulePayout
// @Summary      Schedule a payout for a store
// @Description  Gather the store's eligible, unclaimed escrow funds into a scheduled payout; funds below the minimum stay in escrow
// @Tags         payouts
// @Accept       json
// @Produce      json
// @Param        request body SchedulePayoutRequest true "Store to schedule"
// @Success      200 {object} APIResponse[SchedulePayoutResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /payouts/schedule [post]
func (h *PayoutHandler) Schedule(c *gin.Context) {
	var req SchedulePayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	storeID, err := uuid.Parse(req.StoreID)
	if err != nil {
		h.BadRequest(c, "Invalid store ID")
		return
	}

	result, err := h.payoutService.SchedulePayout(c.Request.Context(), storeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := SchedulePayoutResponse{
		Outcome:        string(result.Outcome),
		EligibleAmount: result.EligibleAmount.Amount().String(),
		Currency:       string(result.EligibleAmount.Currency()),
	}
	if result.Payout != nil {
		p := toPayoutResponse(result.Payout, true)
		resp.Payout = &p
	}
	h.Success(c, resp)
}

// Process godoc
// @ID           processPayout
// @Summary      Process a scheduled payout
// @Description  Execute the bank transfer for one scheduled or failed payout
// @Tags         payouts
// @Produce      json
// @Param        id path string true "Payout ID" format(uuid)
// @Success      200 {object} APIResponse[PayoutResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /payouts/{id}/process [post]
func (h *PayoutHandler) Process(c *gin.Context) {
	payoutID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payout ID")
		return
	}

	if err := h.payoutService.ProcessPayout(c.Request.Context(), payoutID); err != nil {
		h.HandleError(c, err)
		return
	}

	p, err := h.payoutService.GetPayout(c.Request.Context(), payoutID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toPayoutResponse(p, true))
}

// RunDue godoc
// @ID           runDuePayouts
// @Summary      Process all due payouts
// @Description  Execute transfers for every scheduled payout whose date has arrived
// @Tags         payouts
// @Produce      json
// @Success      200 {object} APIResponse[PayoutRunResponse]
// @Failure      500 {object} ErrorResponse
// @Router       /payouts/run-due [post]
func (h *PayoutHandler) RunDue(c *gin.Context) {
	processed, failed, err := h.payoutService.ProcessDuePayouts(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, PayoutRunResponse{Processed: processed, Failed: failed})
}

// RetryFailed godoc
// @ID           retryFailedPayouts
// @Summary      Retry failed payouts
// @Description  Re-attempt transfers for failed payouts whose backoff window has elapsed
// @Tags         payouts
// @Produce      json
// @Success      200 {object} APIResponse[PayoutRunResponse]
// @Failure      500 {object} ErrorResponse
// @Router       /payouts/retry-failed [post]
func (h *PayoutHandler) RetryFailed(c *gin.Context) {
	retried, failed, err := h.payoutService.RetryFailedPayouts(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, PayoutRunResponse{Processed: retried, Failed: failed})
}

// GetByID godoc
// @ID           getPayoutById
// @Summary      Get payout by ID
// @Description  Retrieve one payout with its claimed allocations
// @Tags         payouts
// @Produce      json
// @Param        id path string true "Payout ID" format(uuid)
// @Success      200 {object} APIResponse[PayoutResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /payouts/{id} [get]
func (h *PayoutHandler) GetByID(c *gin.Context) {
	payoutID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payout ID")
		return
	}

	p, err := h.payoutService.GetPayout(c.Request.Context(), payoutID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toPayoutResponse(p, true))
}

// GetStoreSummary godoc
// @ID           getStorePayoutSummary
// @Summary      Get a store's payout summary
// @Description  Report the store's available, pending and scheduled funds
// @Tags         payouts
// @Produce      json
// @Param        store_id path string true "Store ID" format(uuid)
// @Success      200 {object} APIResponse[PayoutSummaryResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /stores/{store_id}/payouts/summary [get]
func (h *PayoutHandler) GetStoreSummary(c *gin.Context) {
	storeID, err := uuid.Parse(c.Param("store_id"))
	if err != nil {
		h.BadRequest(c, "Invalid store ID")
		return
	}

	summary, err := h.payoutService.GetPayoutSummary(c.Request.Context(), storeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := PayoutSummaryResponse{
		StoreID:         summary.StoreID.String(),
		AvailableAmount: summary.AvailableAmount.Amount().String(),
		PendingAmount:   summary.PendingAmount.Amount().String(),
		ScheduledAmount: summary.ScheduledAmount.Amount().String(),
		Currency:        string(summary.AvailableAmount.Currency()),
		BelowMinimum:    summary.BelowMinimum,
		MinimumAmount:   summary.MinimumAmount.Amount().String(),
	}
	if summary.ScheduledPayoutID != nil {
		id := summary.ScheduledPayoutID.String()
		resp.ScheduledPayoutID = &id
	}
	if summary.NextPayoutDate != nil {
		date := summary.NextPayoutDate.Format(time.RFC3339)
		resp.NextPayoutDate = &date
	}
	h.Success(c, resp)
}

// ListByStore godoc
// @ID           listStorePayouts
// @Summary      List a store's payouts
// @Description  Retrieve the store's payout history, newest first
// @Tags         payouts
// @Produce      json
// @Param        store_id path string true "Store ID" format(uuid)
// @Param        limit query int false "Maximum rows" default(50)
// @Success      200 {object} APIResponse[[]PayoutResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /stores/{store_id}/payouts [get]
func (h *PayoutHandler) ListByStore(c *gin.Context) {
	storeID, err := uuid.Parse(c.Param("store_id"))
	if err != nil {
		h.BadRequest(c, "Invalid store ID")
		return
	}
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.BadRequest(c, "Invalid limit")
			return
		}
		limit = parsed
	}

	payouts, err := h.payoutService.GetStorePayouts(c.Request.Context(), storeID, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := make([]PayoutResponse, 0, len(payouts))
	for i := range payouts {
		resp = append(resp, toPayoutResponse(&payouts[i], false))
	}
	h.Success(c, resp)
}
