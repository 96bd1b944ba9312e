package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/settlement"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/infrastructure/persistence/models"
)

// GormSettlementRepository implements settlement.Repository using GORM
type GormSettlementRepository struct {
	db *gorm.DB
}

// NewGormSettlementRepository creates a new GormSettlementRepository
func NewGormSettlementRepository(db *gorm.DB) *GormSettlementRepository {
	return &GormSettlementRepository{db: db}
}

// FindByID returns the settlement with items and adjustments loaded
func (r *GormSettlementRepository) FindByID(ctx context.Context, id uuid.UUID) (*settlement.Settlement, error) {
	var model models.SettlementModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Adjustments").
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindLatestVersion returns the highest-version settlement for a store and period
func (r *GormSettlementRepository) FindLatestVersion(ctx context.Context, storeID uuid.UUID, year, month int) (*settlement.Settlement, error) {
	var model models.SettlementModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Adjustments").
		Where("store_id = ? AND year = ? AND month = ?", storeID, year, month).
		Order("settlement_version DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByStoreAndPeriod returns all versions for a store and period, newest first
func (r *GormSettlementRepository) FindByStoreAndPeriod(ctx context.Context, storeID uuid.UUID, year, month int) ([]*settlement.Settlement, error) {
	var rows []models.SettlementModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Adjustments").
		Where("store_id = ? AND year = ? AND month = ?", storeID, year, month).
		Order("settlement_version DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainSettlements(rows), nil
}

// FindByPeriod returns the latest version per store for a period
func (r *GormSettlementRepository) FindByPeriod(ctx context.Context, year, month int) ([]*settlement.Settlement, error) {
	latest := r.db.
		Model(&models.SettlementModel{}).
		Select("store_id, MAX(settlement_version)").
		Where("year = ? AND month = ?", year, month).
		Group("store_id")

	var rows []models.SettlementModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Adjustments").
		Where("year = ? AND month = ?", year, month).
		Where("(store_id, settlement_version) IN (?)", latest).
		Order("store_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainSettlements(rows), nil
}

// FindByStore returns all settlements for a store, newest period first
func (r *GormSettlementRepository) FindByStore(ctx context.Context, storeID uuid.UUID, limit, offset int) ([]*settlement.Settlement, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.SettlementModel{}).
		Where("store_id = ?", storeID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Adjustments").
		Where("store_id = ?", storeID).
		Order("year DESC, month DESC, settlement_version DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []models.SettlementModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toDomainSettlements(rows), total, nil
}

// Save persists the settlement with items and adjustments. Creating a second
// settlement with the same (store_id, year, month, settlement_version) fails
// on the unique period index; updates carry an optimistic-lock version check.
func (r *GormSettlementRepository) Save(ctx context.Context, s *settlement.Settlement) error {
	model := models.SettlementModelFromDomain(s)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := model.Items
		adjustments := model.Adjustments
		model.Items = nil
		model.Adjustments = nil

		var count int64
		if err := tx.Model(&models.SettlementModel{}).
			Where("id = ?", model.ID).
			Count(&count).Error; err != nil {
			return err
		}

		if count == 0 {
			if err := tx.Create(model).Error; err != nil {
				return err
			}
		} else {
			// Item snapshots and period identity are immutable after
			// generation; only workflow state and adjustment totals change.
			result := tx.Model(&models.SettlementModel{}).
				Where("id = ? AND record_version = ?", model.ID, model.RecordVersion).
				Updates(map[string]interface{}{
					"status":            model.Status,
					"total_adjustments": model.TotalAdjustments,
					"net_payable":       model.NetPayable,
					"notes":             model.Notes,
					"approved_by":       model.ApprovedBy,
					"finalized_at":      model.FinalizedAt,
					"approved_at":       model.ApprovedAt,
					"exported_at":       model.ExportedAt,
					"record_version":    model.RecordVersion + 1,
					"updated_at":        time.Now(),
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return shared.ErrConcurrencyConflict
			}
			s.IncrementVersion()
		}

		if len(items) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoNothing: true,
			}).Create(&items).Error; err != nil {
				return err
			}
		}
		if len(adjustments) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				UpdateAll: true,
			}).Create(&adjustments).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func toDomainSettlements(rows []models.SettlementModel) []*settlement.Settlement {
	settlements := make([]*settlement.Settlement, len(rows))
	for i := range rows {
		settlements[i] = rows[i].ToDomain()
	}
	return settlements
}

// Ensure GormSettlementRepository implements Repository
var _ settlement.Repository = (*GormSettlementRepository)(nil)
