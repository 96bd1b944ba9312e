package escrow

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/trade"
)

// OrderCancelledHandler handles OrderCancelledEvent and refunds every
// allocation of the order that is still in escrow
type OrderCancelledHandler struct {
	escrowService *EscrowService
	logger        *zap.Logger
}

// NewOrderCancelledHandler creates a new handler for order cancelled events
func NewOrderCancelledHandler(escrowService *EscrowService, logger *zap.Logger) *OrderCancelledHandler {
	return &OrderCancelledHandler{
		escrowService: escrowService,
		logger:        logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *OrderCancelledHandler) EventTypes() []string {
	return []string{trade.EventTypeOrderCancelled}
}

// Handle processes an OrderCancelledEvent by fully refunding each of the
// order's allocations. Released allocations can no longer be refunded through
// the ledger; those are reported and skipped so the remaining allocations
// still get their money back.
func (h *OrderCancelledHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	cancelledEvent, ok := event.(*trade.OrderCancelledEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", trade.EventTypeOrderCancelled),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			trade.EventTypeOrderCancelled, event.EventType())
	}

	h.logger.Info("processing order cancelled event for full refund",
		zap.String("order_id", cancelledEvent.OrderID.String()),
		zap.String("reason", cancelledEvent.Reason),
	)

	payment, err := h.escrowService.GetEscrowForOrder(ctx, cancelledEvent.OrderID)
	if err != nil {
		return fmt.Errorf("failed to load escrow for cancelled order: %w", err)
	}

	var failed []string
	for i := range payment.Allocations {
		alloc := &payment.Allocations[i]
		if alloc.OutstandingGross().IsZero() {
			continue
		}

		if _, err := h.escrowService.RefundShipment(ctx, alloc.ShipmentID, nil); err != nil {
			if errors.Is(err, shared.ErrUnsupportedRefund) {
				h.logger.Warn("released allocation needs a settlement adjustment instead of a refund",
					zap.String("order_id", cancelledEvent.OrderID.String()),
					zap.String("shipment_id", alloc.ShipmentID.String()),
				)
				continue
			}
			h.logger.Error("failed to refund allocation for cancelled order",
				zap.String("shipment_id", alloc.ShipmentID.String()),
				zap.Error(err),
			)
			failed = append(failed, alloc.ShipmentID.String())
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("failed to refund shipments %v for order %s", failed, cancelledEvent.OrderID)
	}
	return nil
}

// Ensure OrderCancelledHandler implements shared.EventHandler
var _ shared.EventHandler = (*OrderCancelledHandler)(nil)
