package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	settlementapp "github.com/SebastianDabkowski/mercato-2-sub001/internal/application/settlement"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/settlement"
)

// SettlementHandler handles monthly settlement API endpoints
type SettlementHandler struct {
	BaseHandler
	settlementService *settlementapp.SettlementService
}

// NewSettlementHandler creates a new SettlementHandler
func NewSettlementHandler(settlementService *settlementapp.SettlementService) *SettlementHandler {
	return &SettlementHandler{
		settlementService: settlementService,
	}
}

// ===================== Request/Response Types for Swagger =====================

// SettlementItemResponse represents one allocation snapshot in a settlement
// @Description Settlement line item snapshotted from the escrow ledger
type SettlementItemResponse struct {
	ID                 string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	AllocationID       string `json:"allocation_id" example:"550e8400-e29b-41d4-a716-446655440001"`
	OrderID            string `json:"order_id" example:"550e8400-e29b-41d4-a716-446655440002"`
	OrderNumber        string `json:"order_number" example:"ORD-2026-00042"`
	ShipmentID         string `json:"shipment_id" example:"550e8400-e29b-41d4-a716-446655440003"`
	SellerAmount       string `json:"seller_amount" example:"120.00"`
	ShippingAmount     string `json:"shipping_amount" example:"5.99"`
	CommissionAmount   string `json:"commission_amount" example:"10.20"`
	RefundedAmount     string `json:"refunded_amount" example:"0"`
	RefundedCommission string `json:"refunded_commission" example:"0"`
	NetAmount          string `json:"net_amount" example:"115.79"`
}

// SettlementAdjustmentResponse represents a manual correction line
// @Description Signed correction referencing an earlier accounting period
type SettlementAdjustmentResponse struct {
	ID                 string  `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	OriginalYear       int     `json:"original_year" example:"2026"`
	OriginalMonth      int     `json:"original_month" example:"2"`
	Amount             string  `json:"amount" example:"-25.00"`
	Reason             string  `json:"reason" example:"Late refund for February order"`
	RelatedOrderID     *string `json:"related_order_id,omitempty"`
	RelatedOrderNumber string  `json:"related_order_number,omitempty"`
}

// SettlementResponse represents a monthly settlement
// @Description Monthly statement of a store's fund flow
type SettlementResponse struct {
	ID               string                         `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	StoreID          string                         `json:"store_id" example:"550e8400-e29b-41d4-a716-446655440001"`
	SellerID         string                         `json:"seller_id" example:"550e8400-e29b-41d4-a716-446655440002"`
	Year             int                            `json:"year" example:"2026"`
	Month            int                            `json:"month" example:"3"`
	Version          int                            `json:"version" example:"1"`
	SettlementNumber string                         `json:"settlement_number" example:"STL-2026-03-00042-V1"`
	Currency         string                         `json:"currency" example:"EUR"`
	GrossSales       string                         `json:"gross_sales" example:"1520.00"`
	TotalShipping    string                         `json:"total_shipping" example:"89.85"`
	TotalCommission  string                         `json:"total_commission" example:"129.20"`
	TotalRefunds     string                         `json:"total_refunds" example:"40.00"`
	TotalAdjustments string                         `json:"total_adjustments" example:"-25.00"`
	NetPayable       string                         `json:"net_payable" example:"1415.65"`
	OrderCount       int                            `json:"order_count" example:"17"`
	Status           string                         `json:"status" example:"DRAFT"`
	PeriodStart      string                         `json:"period_start" example:"2026-03-01T00:00:00Z"`
	PeriodEnd        string                         `json:"period_end" example:"2026-04-01T00:00:00Z"`
	Notes            string                         `json:"notes,omitempty"`
	ApprovedBy       *string                        `json:"approved_by,omitempty"`
	FinalizedAt      *string                        `json:"finalized_at,omitempty"`
	ApprovedAt       *string                        `json:"approved_at,omitempty"`
	ExportedAt       *string                        `json:"exported_at,omitempty"`
	Items            []SettlementItemResponse       `json:"items,omitempty"`
	Adjustments      []SettlementAdjustmentResponse `json:"adjustments,omitempty"`
}

// GenerateSettlementRequest requests settlement generation
// @Description Request body for generating a store's monthly settlement
type GenerateSettlementRequest struct {
	StoreID    string `json:"store_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Year       int    `json:"year" binding:"required,min=2000,max=2200" example:"2026"`
	Month      int    `json:"month" binding:"required,min=1,max=12" example:"3"`
	Regenerate bool   `json:"regenerate" example:"false"`
}

// GenerateSettlementResponse reports the generation outcome
// @Description Outcome of a settlement generation attempt
type GenerateSettlementResponse struct {
	Outcome    string              `json:"outcome" example:"GENERATED"`
	Settlement *SettlementResponse `json:"settlement,omitempty"`
}

// ApproveSettlementRequest approves a finalized settlement
// @Description Request body carrying the approver identity
type ApproveSettlementRequest struct {
	ApprovedBy string `json:"approved_by" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
}

// AddAdjustmentRequest adds a manual correction to a draft settlement
// @Description Request body for a signed adjustment against an earlier period
type AddAdjustmentRequest struct {
	OriginalYear       int     `json:"original_year" binding:"required,min=2000,max=2200" example:"2026"`
	OriginalMonth      int     `json:"original_month" binding:"required,min=1,max=12" example:"2"`
	Amount             string  `json:"amount" binding:"required" example:"-25.00"`
	Reason             string  `json:"reason" binding:"required" example:"Late refund for February order"`
	RelatedOrderID     *string `json:"related_order_id" example:"550e8400-e29b-41d4-a716-446655440001"`
	RelatedOrderNumber string  `json:"related_order_number" example:"ORD-2026-00031"`
}

func toSettlementResponse(s *settlement.Settlement, includeLines bool) SettlementResponse {
	resp := SettlementResponse{
		ID:               s.ID.String(),
		StoreID:          s.StoreID.String(),
		SellerID:         s.SellerID.String(),
		Year:             s.Year,
		Month:            s.Month,
		Version:          s.Version,
		SettlementNumber: s.SettlementNumber,
		Currency:         string(s.Currency),
		GrossSales:       s.GrossSales.String(),
		TotalShipping:    s.TotalShipping.String(),
		TotalCommission:  s.TotalCommission.String(),
		TotalRefunds:     s.TotalRefunds.String(),
		TotalAdjustments: s.TotalAdjustments.String(),
		NetPayable:       s.NetPayable.String(),
		OrderCount:       s.OrderCount,
		Status:           string(s.Status),
		PeriodStart:      s.PeriodStart.Format(time.RFC3339),
		PeriodEnd:        s.PeriodEnd.Format(time.RFC3339),
		Notes:            s.Notes,
	}
	if s.ApprovedBy != nil {
		v := s.ApprovedBy.String()
		resp.ApprovedBy = &v
	}
	if s.FinalizedAt != nil {
		v := s.FinalizedAt.Format(time.RFC3339)
		resp.FinalizedAt = &v
	}
	if s.ApprovedAt != nil {
		v := s.ApprovedAt.Format(time.RFC3339)
		resp.ApprovedAt = &v
	}
	if s.ExportedAt != nil {
		v := s.ExportedAt.Format(time.RFC3339)
		resp.ExportedAt = &v
	}
	if !includeLines {
		return resp
	}

	resp.Items = make([]SettlementItemResponse, 0, len(s.Items))
	for i := range s.Items {
		item := &s.Items[i]
		resp.Items = append(resp.Items, SettlementItemResponse{
			ID:                 item.ID.String(),
			AllocationID:       item.AllocationID.String(),
			OrderID:            item.OrderID.String(),
			OrderNumber:        item.OrderNumber,
			ShipmentID:         item.ShipmentID.String(),
			SellerAmount:       item.SellerAmount.String(),
			ShippingAmount:     item.ShippingAmount.String(),
			CommissionAmount:   item.CommissionAmount.String(),
			RefundedAmount:     item.RefundedAmount.String(),
			RefundedCommission: item.RefundedCommissionAmount.String(),
			NetAmount:          item.NetAmount.String(),
		})
	}
	resp.Adjustments = make([]SettlementAdjustmentResponse, 0, len(s.Adjustments))
	for i := range s.Adjustments {
		adj := &s.Adjustments[i]
		row := SettlementAdjustmentResponse{
			ID:                 adj.ID.String(),
			OriginalYear:       adj.OriginalYear,
			OriginalMonth:      adj.OriginalMonth,
			Amount:             adj.Amount.String(),
			Reason:             adj.Reason,
			RelatedOrderNumber: adj.RelatedOrderNumber,
		}
		if adj.RelatedOrderID != nil {
			v := adj.RelatedOrderID.String()
			row.RelatedOrderID = &v
		}
		resp.Adjustments = append(resp.Adjustments, row)
	}
	return resp
}

// Generate godoc
// @ID           generateSettlement
// @Summary      Generate a monthly settlement
// @Description  Build a store's settlement for the month from ledger snapshots; regeneration creates the next version
// @Tags         settlements
// @Accept       json
// @Produce      json
// @Param        request body GenerateSettlementRequest true "Store and period"
// @Success      200 {object} APIResponse[GenerateSettlementResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /settlements/generate [post]
func (h *SettlementHandler) Generate(c *gin.Context) {
	var req GenerateSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	storeID, err := uuid.Parse(req.StoreID)
	if err != nil {
		h.BadRequest(c, "Invalid store ID")
		return
	}

	result, err := h.settlementService.GenerateSettlement(c.Request.Context(), storeID, req.Year, req.Month, req.Regenerate)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := GenerateSettlementResponse{Outcome: string(result.Outcome)}
	if result.Settlement != nil {
		s := toSettlementResponse(result.Settlement, true)
		resp.Settlement = &s
	}
	h.Success(c, resp)
}

// Finalize godoc
// @ID           finalizeSettlement
// @Summary      Finalize a settlement
// @Description  Lock a draft settlement so no further adjustments can be added
// @Tags         settlements
// @Produce      json
// @Param        id path string true "Settlement ID" format(uuid)
// @Success      200 {object} APIResponse[SettlementResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /settlements/{id}/finalize [post]
func (h *SettlementHandler) Finalize(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid settlement ID")
		return
	}

	stl, err := h.settlementService.FinalizeSettlement(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toSettlementResponse(stl, false))
}

// Approve godoc
// @ID           approveSettlement
// @Summary      Approve a settlement
// @Description  Record approval of a finalized settlement, clearing it for export
// @Tags         settlements
// @Accept       json
// @Produce      json
// @Param        id path string true "Settlement ID" format(uuid)
// @Param        request body ApproveSettlementRequest true "Approver"
// @Success      200 {object} APIResponse[SettlementResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /settlements/{id}/approve [post]
func (h *SettlementHandler) Approve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid settlement ID")
		return
	}
	var req ApproveSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	approvedBy, err := uuid.Parse(req.ApprovedBy)
	if err != nil {
		h.BadRequest(c, "Invalid approver ID")
		return
	}

	stl, err := h.settlementService.ApproveSettlement(c.Request.Context(), id, approvedBy)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toSettlementResponse(stl, false))
}

// AddAdjustment godoc
// @ID           addSettlementAdjustment
// @Summary      Add an adjustment
// @Description  Append a signed correction line to a draft settlement
// @Tags         settlements
// @Accept       json
// @Produce      json
// @Param        id path string true "Settlement ID" format(uuid)
// @Param        request body AddAdjustmentRequest true "Adjustment"
// @Success      200 {object} APIResponse[SettlementResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /settlements/{id}/adjustments [post]
func (h *SettlementHandler) AddAdjustment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid settlement ID")
		return
	}
	var req AddAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		h.BadRequest(c, "Invalid adjustment amount")
		return
	}

	appReq := settlementapp.AddAdjustmentRequest{
		OriginalYear:       req.OriginalYear,
		OriginalMonth:      req.OriginalMonth,
		Amount:             amount,
		Reason:             req.Reason,
		RelatedOrderNumber: req.RelatedOrderNumber,
	}
	if req.RelatedOrderID != nil {
		orderID, err := uuid.Parse(*req.RelatedOrderID)
		if err != nil {
			h.BadRequest(c, "Invalid related order ID")
			return
		}
		appReq.RelatedOrderID = &orderID
	}

	stl, err := h.settlementService.AddAdjustment(c.Request.Context(), id, appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toSettlementResponse(stl, true))
}

// GetByID godoc
// @ID           getSettlementById
// @Summary      Get settlement by ID
// @Description  Retrieve one settlement with its line items and adjustments
// @Tags         settlements
// @Produce      json
// @Param        id path string true "Settlement ID" format(uuid)
// @Success      200 {object} APIResponse[SettlementResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /settlements/{id} [get]
func (h *SettlementHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid settlement ID")
		return
	}

	stl, err := h.settlementService.GetSettlement(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toSettlementResponse(stl, true))
}

// ListByStore godoc
// @ID           listStoreSettlements
// @Summary      List a store's settlements
// @Description  Retrieve the store's settlements, newest period first
// @Tags         settlements
// @Produce      json
// @Param        store_id path string true "Store ID" format(uuid)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]SettlementResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /stores/{store_id}/settlements [get]
func (h *SettlementHandler) ListByStore(c *gin.Context) {
	storeID, err := uuid.Parse(c.Param("store_id"))
	if err != nil {
		h.BadRequest(c, "Invalid store ID")
		return
	}

	list := dtoListRequest(c)
	offset := (list.Page - 1) * list.PageSize
	settlements, total, err := h.settlementService.GetStoreSettlements(c.Request.Context(), storeID, list.PageSize, offset)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := make([]SettlementResponse, 0, len(settlements))
	for _, stl := range settlements {
		resp = append(resp, toSettlementResponse(stl, false))
	}
	h.SuccessWithMeta(c, resp, total, list.Page, list.PageSize)
}

// ExportPeriod godoc
// @ID           exportSettlementPeriod
// @Summary      Export a period as CSV
// @Description  Download the month's approved settlements as a CSV file, one row per seller plus a TOTAL row
// @Tags         settlements
// @Produce      text/csv
// @Param        year path int true "Year" example(2026)
// @Param        month path int true "Month" example(3)
// @Success      200 {file} file "CSV export"
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /settlements/export/{year}/{month} [get]
func (h *SettlementHandler) ExportPeriod(c *gin.Context) {
	year, month, ok := parsePeriodParams(c)
	if !ok {
		h.BadRequest(c, "Invalid period")
		return
	}

	result, err := h.settlementService.ExportPeriod(c.Request.Context(), year, month)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", result.Content)
}
