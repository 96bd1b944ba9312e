package escrow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/trade"
)

// ShipmentDeliveredHandler handles ShipmentDeliveredEvent and starts the
// payout hold period for the shipment's allocation
type ShipmentDeliveredHandler struct {
	escrowService *EscrowService
	logger        *zap.Logger
}

// NewShipmentDeliveredHandler creates a new handler for shipment delivered events
func NewShipmentDeliveredHandler(escrowService *EscrowService, logger *zap.Logger) *ShipmentDeliveredHandler {
	return &ShipmentDeliveredHandler{
		escrowService: escrowService,
		logger:        logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *ShipmentDeliveredHandler) EventTypes() []string {
	return []string{trade.EventTypeShipmentDelivered}
}

// Handle processes a ShipmentDeliveredEvent by marking the allocation
// eligible after the hold period. Marking is a no-op on redelivery.
func (h *ShipmentDeliveredHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	deliveredEvent, ok := event.(*trade.ShipmentDeliveredEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", trade.EventTypeShipmentDelivered),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			trade.EventTypeShipmentDelivered, event.EventType())
	}

	h.logger.Info("processing shipment delivered event",
		zap.String("order_id", deliveredEvent.OrderID.String()),
		zap.String("shipment_id", deliveredEvent.ShipmentID.String()),
		zap.Time("delivered_at", deliveredEvent.DeliveredAt),
	)

	if err := h.escrowService.MarkShipmentEligible(ctx, deliveredEvent.ShipmentID, deliveredEvent.DeliveredAt); err != nil {
		h.logger.Error("failed to mark allocation eligible",
			zap.String("shipment_id", deliveredEvent.ShipmentID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("failed to mark shipment %s eligible: %w", deliveredEvent.ShipmentID, err)
	}
	return nil
}

// Ensure ShipmentDeliveredHandler implements shared.EventHandler
var _ shared.EventHandler = (*ShipmentDeliveredHandler)(nil)
