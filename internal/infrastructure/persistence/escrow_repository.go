package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/escrow"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/infrastructure/persistence/models"
)

// GormEscrowRepository implements escrow.EscrowPaymentRepository using GORM
type GormEscrowRepository struct {
	db *gorm.DB
}

// NewGormEscrowRepository creates a new GormEscrowRepository
func NewGormEscrowRepository(db *gorm.DB) *GormEscrowRepository {
	return &GormEscrowRepository{db: db}
}

// FindByID finds an escrow payment with its allocations
func (r *GormEscrowRepository) FindByID(ctx context.Context, id uuid.UUID) (*escrow.EscrowPayment, error) {
	var model models.EscrowPaymentModel
	if err := r.db.WithContext(ctx).
		Preload("Allocations").
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByOrderID finds the escrow payment for an order
func (r *GormEscrowRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*escrow.EscrowPayment, error) {
	var model models.EscrowPaymentModel
	if err := r.db.WithContext(ctx).
		Preload("Allocations").
		First(&model, "order_id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ExistsByOrderID reports whether escrow was already created for the order
func (r *GormEscrowRepository) ExistsByOrderID(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.EscrowPaymentModel{}).
		Where("order_id = ?", orderID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByShipmentID finds the escrow payment owning the shipment's allocation
func (r *GormEscrowRepository) FindByShipmentID(ctx context.Context, shipmentID uuid.UUID) (*escrow.EscrowPayment, error) {
	var alloc models.EscrowAllocationModel
	if err := r.db.WithContext(ctx).
		First(&alloc, "shipment_id = ?", shipmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.FindByID(ctx, alloc.PaymentID)
}

// Save persists the payment and all owned allocations. Creating a second
// payment for the same order fails on the unique order_id index.
func (r *GormEscrowRepository) Save(ctx context.Context, payment *escrow.EscrowPayment) error {
	model := models.EscrowPaymentModelFromDomain(payment)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		allocations := model.Allocations
		model.Allocations = nil

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(model).Error; err != nil {
			return err
		}
		if len(allocations) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&allocations).Error
	})
}

// SaveAllocation persists a single mutated allocation
func (r *GormEscrowRepository) SaveAllocation(ctx context.Context, allocation *escrow.EscrowAllocation) error {
	model := models.EscrowAllocationModelFromDomain(allocation)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(model).Error
}

// FindEligibleUnclaimed returns the store's allocations that are eligible,
// not released, and not claimed by a non-failed payout
func (r *GormEscrowRepository) FindEligibleUnclaimed(ctx context.Context, storeID uuid.UUID) ([]escrow.EscrowAllocation, error) {
	var rows []models.EscrowAllocationModel
	if err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Where("eligible_for_payout_at IS NOT NULL").
		Where("released_at IS NULL").
		Where("id NOT IN (?)", r.db.
			Model(&models.PayoutItemModel{}).
			Select("allocation_id").
			Where("claimed")).
		Order("eligible_for_payout_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainAllocations(rows), nil
}

// FindAllocationsByIDs loads allocations by ID; missing IDs are an error
func (r *GormEscrowRepository) FindAllocationsByIDs(ctx context.Context, ids []uuid.UUID) ([]escrow.EscrowAllocation, error) {
	if len(ids) == 0 {
		return []escrow.EscrowAllocation{}, nil
	}
	var rows []models.EscrowAllocationModel
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) != len(ids) {
		return nil, shared.ErrNotFound
	}
	return toDomainAllocations(rows), nil
}

// FindAllocationsCreatedBetween returns the store's allocations created in
// [from, to) paired with the owning order's identity
func (r *GormEscrowRepository) FindAllocationsCreatedBetween(ctx context.Context, storeID uuid.UUID, from, to time.Time) ([]escrow.AllocationWithOrder, error) {
	var rows []models.EscrowAllocationModel
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND created_at >= ? AND created_at < ?", storeID, from, to).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []escrow.AllocationWithOrder{}, nil
	}

	paymentIDs := make([]uuid.UUID, 0, len(rows))
	seen := make(map[uuid.UUID]struct{}, len(rows))
	for i := range rows {
		if _, ok := seen[rows[i].PaymentID]; !ok {
			seen[rows[i].PaymentID] = struct{}{}
			paymentIDs = append(paymentIDs, rows[i].PaymentID)
		}
	}

	var payments []models.EscrowPaymentModel
	if err := r.db.WithContext(ctx).
		Where("id IN ?", paymentIDs).
		Find(&payments).Error; err != nil {
		return nil, err
	}
	orderByPayment := make(map[uuid.UUID]models.EscrowPaymentModel, len(payments))
	for i := range payments {
		orderByPayment[payments[i].ID] = payments[i]
	}

	result := make([]escrow.AllocationWithOrder, 0, len(rows))
	for i := range rows {
		payment, ok := orderByPayment[rows[i].PaymentID]
		if !ok {
			return nil, shared.ErrNotFound
		}
		result = append(result, escrow.AllocationWithOrder{
			Allocation:  *rows[i].ToDomain(),
			OrderID:     payment.OrderID,
			OrderNumber: payment.OrderNumber,
		})
	}
	return result, nil
}

// FindStoresWithAllocationsBetween lists stores with allocations created in [from, to)
func (r *GormEscrowRepository) FindStoresWithAllocationsBetween(ctx context.Context, from, to time.Time) ([]uuid.UUID, error) {
	var storeIDs []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.EscrowAllocationModel{}).
		Distinct("store_id").
		Where("created_at >= ? AND created_at < ?", from, to).
		Pluck("store_id", &storeIDs).Error; err != nil {
		return nil, err
	}
	return storeIDs, nil
}

func toDomainAllocations(rows []models.EscrowAllocationModel) []escrow.EscrowAllocation {
	allocations := make([]escrow.EscrowAllocation, len(rows))
	for i := range rows {
		allocations[i] = *rows[i].ToDomain()
	}
	return allocations
}

// Ensure GormEscrowRepository implements EscrowPaymentRepository
var _ escrow.EscrowPaymentRepository = (*GormEscrowRepository)(nil)
