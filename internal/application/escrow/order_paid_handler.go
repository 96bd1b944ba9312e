package escrow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/trade"
)

// OrderPaidHandler handles OrderPaidEvent and creates the escrow payment
// that takes custody of the buyer's funds
type OrderPaidHandler struct {
	escrowService *EscrowService
	logger        *zap.Logger
}

// NewOrderPaidHandler creates a new handler for order paid events
func NewOrderPaidHandler(escrowService *EscrowService, logger *zap.Logger) *OrderPaidHandler {
	return &OrderPaidHandler{
		escrowService: escrowService,
		logger:        logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *OrderPaidHandler) EventTypes() []string {
	return []string{trade.EventTypeOrderPaid}
}

// Handle processes an OrderPaidEvent by creating escrow for the order.
// Creation is idempotent, so redelivered events are harmless.
func (h *OrderPaidHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	paidEvent, ok := event.(*trade.OrderPaidEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", trade.EventTypeOrderPaid),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			trade.EventTypeOrderPaid, event.EventType())
	}

	h.logger.Info("processing order paid event for escrow creation",
		zap.String("order_id", paidEvent.OrderID.String()),
		zap.String("order_number", paidEvent.OrderNumber),
		zap.String("total_amount", paidEvent.TotalAmount.String()),
	)

	if _, err := h.escrowService.CreateEscrowForOrder(ctx, paidEvent.OrderID); err != nil {
		h.logger.Error("failed to create escrow for paid order",
			zap.String("order_id", paidEvent.OrderID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("failed to create escrow for order %s: %w", paidEvent.OrderID, err)
	}
	return nil
}

// Ensure OrderPaidHandler implements shared.EventHandler
var _ shared.EventHandler = (*OrderPaidHandler)(nil)
