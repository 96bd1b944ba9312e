package escrow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/commission"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/escrow"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared/valueobject"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/trade"
)

// Config holds escrow policy values
type Config struct {
	// HoldPeriodDays is the number of days after delivery before an
	// allocation becomes eligible for payout
	HoldPeriodDays int
}

// EscrowService owns the escrow ledger: it records incoming order funds,
// splits them per shipment with a commission snapshot, and applies
// delivery and refund outcomes.
type EscrowService struct {
	escrowRepo     escrow.EscrowPaymentRepository
	orderReader    trade.OrderReader
	calculator     *commission.Calculator
	cfg            Config
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewEscrowService creates a new EscrowService
func NewEscrowService(
	escrowRepo escrow.EscrowPaymentRepository,
	orderReader trade.OrderReader,
	calculator *commission.Calculator,
	cfg Config,
	logger *zap.Logger,
) *EscrowService {
	return &EscrowService{
		escrowRepo:  escrowRepo,
		orderReader: orderReader,
		calculator:  calculator,
		cfg:         cfg,
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *EscrowService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// CreateEscrowForOrder records the funds of a paid order in escrow, one
// allocation per shipment with the commission rate snapshotted at creation
// time. The operation is idempotent on the order: repeated calls return the
// existing payment unchanged.
func (s *EscrowService) CreateEscrowForOrder(ctx context.Context, orderID uuid.UUID) (*escrow.EscrowPayment, error) {
	existing, err := s.escrowRepo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing escrow: %w", err)
	}
	if existing != nil {
		s.logger.Info("escrow already exists for order, skipping",
			zap.String("order_id", orderID.String()),
			zap.String("escrow_id", existing.ID.String()),
		)
		return existing, nil
	}

	order, err := s.orderReader.FindOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return nil, shared.NewDomainError("ORDER_NOT_FOUND", "Order not found")
	}
	if order.PaidAt == nil {
		return nil, shared.NewDomainError("ORDER_NOT_PAID", "Cannot create escrow for an unpaid order")
	}

	total, err := valueobject.NewMoney(order.TotalAmount, order.Currency)
	if err != nil {
		return nil, err
	}

	payment, err := escrow.NewEscrowPayment(order.ID, order.OrderNumber, total)
	if err != nil {
		return nil, err
	}

	for _, shipment := range order.Shipments {
		if shipment.Status == trade.ShipmentStatusCancelled {
			continue
		}

		subtotal, err := valueobject.NewMoney(shipment.Subtotal, order.Currency)
		if err != nil {
			return nil, err
		}
		shipping, err := valueobject.NewMoney(shipment.ShippingCost, order.Currency)
		if err != nil {
			return nil, err
		}

		breakdown, err := s.calculator.CalculateCommission(ctx, shipment.StoreID, shipment.CategoryIDs, subtotal)
		if err != nil {
			return nil, fmt.Errorf("failed to calculate commission for shipment %s: %w",
				shipment.ID.String(), err)
		}

		if _, err := payment.AddAllocation(
			shipment.ID, shipment.StoreID, shipment.SellerID,
			subtotal, shipping,
			breakdown.Rate, breakdown.CommissionAmount,
		); err != nil {
			return nil, err
		}
	}

	if len(payment.Allocations) == 0 {
		return nil, shared.NewDomainError("NO_SHIPMENTS", "Order has no shipments to allocate")
	}

	payment.AddDomainEvent(escrow.NewEscrowCreatedEvent(payment))

	if err := s.escrowRepo.Save(ctx, payment); err != nil {
		// A concurrent creation may have won the unique order_id race
		if winner, findErr := s.escrowRepo.FindByOrderID(ctx, orderID); findErr == nil && winner != nil {
			s.logger.Warn("concurrent escrow creation detected, returning existing",
				zap.String("order_id", orderID.String()),
			)
			return winner, nil
		}
		return nil, fmt.Errorf("failed to save escrow payment: %w", err)
	}

	s.publishEvents(ctx, payment)

	s.logger.Info("escrow created for order",
		zap.String("escrow_id", payment.ID.String()),
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.Int("allocations", len(payment.Allocations)),
		zap.String("total", total.String()),
	)
	return payment, nil
}

// MarkShipmentEligible records that a shipment was delivered and schedules
// its allocation for payout after the configured hold period. Re-delivery
// of an already eligible or released shipment is a no-op.
func (s *EscrowService) MarkShipmentEligible(ctx context.Context, shipmentID uuid.UUID, deliveredAt time.Time) error {
	payment, err := s.escrowRepo.FindByShipmentID(ctx, shipmentID)
	if err != nil {
		return fmt.Errorf("failed to load escrow for shipment: %w", err)
	}
	if payment == nil {
		return shared.NewDomainError("ESCROW_NOT_FOUND", "No escrow allocation exists for the shipment")
	}

	eligibleAt := deliveredAt.AddDate(0, 0, s.cfg.HoldPeriodDays)
	alloc, changed, err := payment.MarkShipmentEligible(shipmentID, eligibleAt)
	if err != nil {
		return err
	}
	if !changed {
		s.logger.Info("allocation already eligible or released, skipping",
			zap.String("shipment_id", shipmentID.String()),
		)
		return nil
	}

	if err := s.escrowRepo.SaveAllocation(ctx, alloc); err != nil {
		return fmt.Errorf("failed to save allocation: %w", err)
	}
	s.publishEvents(ctx, payment)

	s.logger.Info("allocation marked eligible for payout",
		zap.String("shipment_id", shipmentID.String()),
		zap.String("allocation_id", alloc.ID.String()),
		zap.Time("eligible_at", eligibleAt),
	)
	return nil
}

// RefundShipment applies a refund against the shipment's allocation. A nil
// amount refunds the full outstanding gross. Refunding a released allocation
// returns ErrUnsupportedRefund; the correction then belongs in a settlement
// adjustment, not in the ledger.
func (s *EscrowService) RefundShipment(ctx context.Context, shipmentID uuid.UUID, amount *valueobject.Money) (*escrow.EscrowAllocation, error) {
	payment, err := s.escrowRepo.FindByShipmentID(ctx, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load escrow for shipment: %w", err)
	}
	if payment == nil {
		return nil, shared.NewDomainError("ESCROW_NOT_FOUND", "No escrow allocation exists for the shipment")
	}

	alloc, err := payment.RefundShipment(shipmentID, amount)
	if err != nil {
		return nil, err
	}

	if err := s.escrowRepo.SaveAllocation(ctx, alloc); err != nil {
		return nil, fmt.Errorf("failed to save allocation: %w", err)
	}
	s.publishEvents(ctx, payment)

	s.logger.Info("refund applied to allocation",
		zap.String("shipment_id", shipmentID.String()),
		zap.String("allocation_id", alloc.ID.String()),
		zap.String("refunded_total", alloc.RefundedAmount.String()),
		zap.String("remaining_payout", alloc.RemainingPayout().String()),
	)
	return alloc, nil
}

// GetEscrowForOrder returns the order's escrow payment with allocations,
// or a domain error when none exists
func (s *EscrowService) GetEscrowForOrder(ctx context.Context, orderID uuid.UUID) (*escrow.EscrowPayment, error) {
	payment, err := s.escrowRepo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load escrow: %w", err)
	}
	if payment == nil {
		return nil, shared.NewDomainError("ESCROW_NOT_FOUND", "No escrow exists for the order")
	}
	return payment, nil
}

func (s *EscrowService) publishEvents(ctx context.Context, payment *escrow.EscrowPayment) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range payment.GetDomainEvents() {
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Error("failed to publish escrow event",
				zap.String("event_type", event.EventType()),
				zap.Error(err),
			)
		}
	}
	payment.ClearDomainEvents()
}
