package escrow

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared/valueobject"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/trade"
)

// ShipmentCancelledHandler handles ShipmentCancelledEvent and refunds the
// cancelled shipment's escrowed funds
type ShipmentCancelledHandler struct {
	escrowService *EscrowService
	logger        *zap.Logger
}

// NewShipmentCancelledHandler creates a new handler for shipment cancelled events
func NewShipmentCancelledHandler(escrowService *EscrowService, logger *zap.Logger) *ShipmentCancelledHandler {
	return &ShipmentCancelledHandler{
		escrowService: escrowService,
		logger:        logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *ShipmentCancelledHandler) EventTypes() []string {
	return []string{trade.EventTypeShipmentCancelled}
}

// Handle processes a ShipmentCancelledEvent by refunding the shipment's
// allocation. A nil refund amount in the event means a full refund. When the
// allocation was already released the refund cannot touch the ledger anymore
// and is reported for a settlement adjustment instead.
func (h *ShipmentCancelledHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	cancelledEvent, ok := event.(*trade.ShipmentCancelledEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", trade.EventTypeShipmentCancelled),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			trade.EventTypeShipmentCancelled, event.EventType())
	}

	h.logger.Info("processing shipment cancelled event for refund",
		zap.String("order_id", cancelledEvent.OrderID.String()),
		zap.String("shipment_id", cancelledEvent.ShipmentID.String()),
		zap.String("reason", cancelledEvent.Reason),
	)

	var amount *valueobject.Money
	if cancelledEvent.RefundAmount != nil {
		payment, err := h.escrowService.GetEscrowForOrder(ctx, cancelledEvent.OrderID)
		if err != nil {
			return fmt.Errorf("failed to load escrow for refund: %w", err)
		}
		m, err := valueobject.NewMoney(*cancelledEvent.RefundAmount, payment.Currency)
		if err != nil {
			return err
		}
		amount = &m
	}

	if _, err := h.escrowService.RefundShipment(ctx, cancelledEvent.ShipmentID, amount); err != nil {
		if errors.Is(err, shared.ErrUnsupportedRefund) {
			h.logger.Warn("refund after release requires a settlement adjustment",
				zap.String("order_id", cancelledEvent.OrderID.String()),
				zap.String("shipment_id", cancelledEvent.ShipmentID.String()),
			)
			return err
		}
		h.logger.Error("failed to refund cancelled shipment",
			zap.String("shipment_id", cancelledEvent.ShipmentID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("failed to refund shipment %s: %w", cancelledEvent.ShipmentID, err)
	}
	return nil
}

// Ensure ShipmentCancelledHandler implements shared.EventHandler
var _ shared.EventHandler = (*ShipmentCancelledHandler)(nil)
