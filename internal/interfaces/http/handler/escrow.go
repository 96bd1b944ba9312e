package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	escrowapp "github.com/SebastianDabkowski/mercato-2-sub001/internal/application/escrow"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/escrow"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared/valueobject"
)

// EscrowHandler handles escrow ledger API endpoints
type EscrowHandler struct {
	BaseHandler
	escrowService *escrowapp.EscrowService
}

// NewEscrowHandler creates a new EscrowHandler
func NewEscrowHandler(escrowService *escrowapp.EscrowService) *EscrowHandler {
	return &EscrowHandler{
		escrowService: escrowService,
	}
}

// ===================== Request/Response Types for Swagger =====================

// EscrowAllocationResponse represents one shipment's held funds
// @Description Escrow allocation with held amounts and lifecycle state
type EscrowAllocationResponse struct {
	ID                 string  `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	ShipmentID         string  `json:"shipment_id" example:"550e8400-e29b-41d4-a716-446655440001"`
	StoreID            string  `json:"store_id" example:"550e8400-e29b-41d4-a716-446655440002"`
	SellerID           string  `json:"seller_id" example:"550e8400-e29b-41d4-a716-446655440003"`
	State              string  `json:"state" example:"HELD"`
	SellerAmount       string  `json:"seller_amount" example:"120.00"`
	ShippingAmount     string  `json:"shipping_amount" example:"5.99"`
	CommissionRate     string  `json:"commission_rate" example:"8.5"`
	CommissionAmount   string  `json:"commission_amount" example:"10.20"`
	RefundedAmount     string  `json:"refunded_amount" example:"0"`
	RefundedCommission string  `json:"refunded_commission" example:"0"`
	RemainingPayout    string  `json:"remaining_payout" example:"115.79"`
	Currency           string  `json:"currency" example:"EUR"`
	EligibleAt         *string `json:"eligible_at,omitempty" example:"2026-03-08T00:00:00Z"`
	ReleasedAt         *string `json:"released_at,omitempty"`
	PayoutReference    string  `json:"payout_reference,omitempty"`
}

// EscrowPaymentResponse represents an order's escrow record
// @Description Escrow payment with per-shipment allocations
type EscrowPaymentResponse struct {
	ID          string                     `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	OrderID     string                     `json:"order_id" example:"550e8400-e29b-41d4-a716-446655440001"`
	OrderNumber string                     `json:"order_number" example:"ORD-2026-00042"`
	TotalAmount string                     `json:"total_amount" example:"251.98"`
	Currency    string                     `json:"currency" example:"EUR"`
	CreatedAt   string                     `json:"created_at" example:"2026-03-01T10:30:00Z"`
	Allocations []EscrowAllocationResponse `json:"allocations"`
}

// MarkEligibleRequest marks a shipment's funds eligible for payout
// @Description Request body for marking a delivered shipment eligible
type MarkEligibleRequest struct {
	DeliveredAt *time.Time `json:"delivered_at" example:"2026-03-01T14:00:00Z"`
}

// RefundShipmentRequest applies a refund against a shipment's escrow
// @Description Request body for refunding held funds; omit amount for a full refund
type RefundShipmentRequest struct {
	Amount   *string `json:"amount" example:"25.00"`
	Currency string  `json:"currency" binding:"omitempty,currency" example:"EUR"`
}

func toAllocationResponse(a *escrow.EscrowAllocation) EscrowAllocationResponse {
	resp := EscrowAllocationResponse{
		ID:                 a.ID.String(),
		ShipmentID:         a.ShipmentID.String(),
		StoreID:            a.StoreID.String(),
		SellerID:           a.SellerID.String(),
		State:              string(a.State()),
		SellerAmount:       a.SellerAmount.String(),
		ShippingAmount:     a.ShippingAmount.String(),
		CommissionRate:     a.CommissionRate.String(),
		CommissionAmount:   a.CommissionAmount.String(),
		RefundedAmount:     a.RefundedAmount.String(),
		RefundedCommission: a.RefundedCommissionAmount.String(),
		RemainingPayout:    a.RemainingPayout().Amount().String(),
		Currency:           string(a.Currency),
		PayoutReference:    a.PayoutReference,
	}
	if a.EligibleForPayoutAt != nil {
		s := a.EligibleForPayoutAt.Format(time.RFC3339)
		resp.EligibleAt = &s
	}
	if a.ReleasedAt != nil {
		s := a.ReleasedAt.Format(time.RFC3339)
		resp.ReleasedAt = &s
	}
	return resp
}

func toEscrowPaymentResponse(p *escrow.EscrowPayment) EscrowPaymentResponse {
	allocations := make([]EscrowAllocationResponse, 0, len(p.Allocations))
	for i := range p.Allocations {
		allocations = append(allocations, toAllocationResponse(&p.Allocations[i]))
	}
	return EscrowPaymentResponse{
		ID:          p.ID.String(),
		OrderID:     p.OrderID.String(),
		OrderNumber: p.OrderNumber,
		TotalAmount: p.TotalAmount.String(),
		Currency:    string(p.Currency),
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		Allocations: allocations,
	}
}

// GetByOrder godoc
// @ID           getEscrowByOrder
// @Summary      Get escrow for an order
// @Description  Retrieve the escrow payment and its allocations for an order
// @Tags         escrow
// @Produce      json
// @Param        order_id path string true "Order ID" format(uuid)
// @Success      200 {object} APIResponse[EscrowPaymentResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /escrow/orders/{order_id} [get]
func (h *EscrowHandler) GetByOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("order_id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	payment, err := h.escrowService.GetEscrowForOrder(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toEscrowPaymentResponse(payment))
}

// CreateForOrder godoc
// @ID           createEscrowForOrder
// @Summary      Open escrow for a paid order
// @Description  Build the escrow record for a paid order, one allocation per shipment with a commission snapshot
// @Tags         escrow
// @Produce      json
// @Param        order_id path string true "Order ID" format(uuid)
// @Success      201 {object} APIResponse[EscrowPaymentResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /escrow/orders/{order_id} [post]
func (h *EscrowHandler) CreateForOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("order_id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	payment, err := h.escrowService.CreateEscrowForOrder(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toEscrowPaymentResponse(payment))
}

// MarkEligible godoc
// @ID           markShipmentEligible
// @Summary      Mark a shipment's funds eligible
// @Description  Record delivery and schedule the allocation for payout after the hold period
// @Tags         escrow
// @Accept       json
// @Produce      json
// @Param        shipment_id path string true "Shipment ID" format(uuid)
// @Param        request body MarkEligibleRequest false "Delivery time, defaults to now"
// @Success      200 {object} SuccessResponse
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /escrow/shipments/{shipment_id}/eligible [post]
func (h *EscrowHandler) MarkEligible(c *gin.Context) {
	shipmentID, err := uuid.Parse(c.Param("shipment_id"))
	if err != nil {
		h.BadRequest(c, "Invalid shipment ID")
		return
	}

	var req MarkEligibleRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}
	deliveredAt := time.Now()
	if req.DeliveredAt != nil {
		deliveredAt = *req.DeliveredAt
	}

	if err := h.escrowService.MarkShipmentEligible(c.Request.Context(), shipmentID, deliveredAt); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"shipment_id": shipmentID.String()})
}

// RefundShipment godoc
// @ID           refundShipmentEscrow
// @Summary      Refund a shipment's held funds
// @Description  Apply a partial or full refund against the shipment's allocation while the funds are still in escrow
// @Tags         escrow
// @Accept       json
// @Produce      json
// @Param        shipment_id path string true "Shipment ID" format(uuid)
// @Param        request body RefundShipmentRequest false "Refund amount, omit for full refund"
// @Success      200 {object} APIResponse[EscrowAllocationResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /escrow/shipments/{shipment_id}/refund [post]
func (h *EscrowHandler) RefundShipment(c *gin.Context) {
	shipmentID, err := uuid.Parse(c.Param("shipment_id"))
	if err != nil {
		h.BadRequest(c, "Invalid shipment ID")
		return
	}

	var req RefundShipmentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	var amount *valueobject.Money
	if req.Amount != nil {
		value, err := decimal.NewFromString(*req.Amount)
		if err != nil {
			h.BadRequest(c, "Invalid refund amount")
			return
		}
		money, err := valueobject.NewMoney(value, valueobject.Currency(req.Currency))
		if err != nil {
			h.HandleError(c, err)
			return
		}
		amount = &money
	}

	alloc, err := h.escrowService.RefundShipment(c.Request.Context(), shipmentID, amount)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toAllocationResponse(alloc))
}
