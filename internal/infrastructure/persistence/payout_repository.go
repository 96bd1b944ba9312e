package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/escrow"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/payout"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/infrastructure/persistence/models"
)

// GormPayoutRepository implements payout.Repository using GORM
type GormPayoutRepository struct {
	db *gorm.DB
}

// NewGormPayoutRepository creates a new GormPayoutRepository
func NewGormPayoutRepository(db *gorm.DB) *GormPayoutRepository {
	return &GormPayoutRepository{db: db}
}

// FindByID finds a payout with its items
func (r *GormPayoutRepository) FindByID(ctx context.Context, id uuid.UUID) (*payout.SellerPayout, error) {
	var model models.SellerPayoutModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindScheduledForStore finds the store's open Scheduled payout
func (r *GormPayoutRepository) FindScheduledForStore(ctx context.Context, storeID uuid.UUID) (*payout.SellerPayout, error) {
	var model models.SellerPayoutModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("store_id = ? AND status = ?", storeID, string(payout.StatusScheduled)).
		Order("created_at ASC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindDue returns Scheduled payouts due on or before the given date
func (r *GormPayoutRepository) FindDue(ctx context.Context, date time.Time) ([]payout.SellerPayout, error) {
	var rows []models.SellerPayoutModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("status = ? AND scheduled_date <= ?", string(payout.StatusScheduled), date).
		Order("scheduled_date ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainPayouts(rows), nil
}

// FindRetryable returns Failed payouts with retries remaining that are due a retry
func (r *GormPayoutRepository) FindRetryable(ctx context.Context, at time.Time) ([]payout.SellerPayout, error) {
	var rows []models.SellerPayoutModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("status = ? AND retry_count < max_retries AND next_retry_at IS NOT NULL AND next_retry_at <= ?",
			string(payout.StatusFailed), at).
		Order("next_retry_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainPayouts(rows), nil
}

// FindStalledProcessing returns Processing payouts untouched since the given time
func (r *GormPayoutRepository) FindStalledProcessing(ctx context.Context, updatedBefore time.Time) ([]payout.SellerPayout, error) {
	var rows []models.SellerPayoutModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("status = ? AND updated_at < ?", string(payout.StatusProcessing), updatedBefore).
		Order("updated_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainPayouts(rows), nil
}

// FindByStore returns the store's payouts, newest first
func (r *GormPayoutRepository) FindByStore(ctx context.Context, storeID uuid.UUID, limit int) ([]payout.SellerPayout, error) {
	query := r.db.WithContext(ctx).
		Preload("Items").
		Where("store_id = ?", storeID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.SellerPayoutModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainPayouts(rows), nil
}

// Save persists the payout and its items
func (r *GormPayoutRepository) Save(ctx context.Context, p *payout.SellerPayout) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return savePayout(tx, p)
	})
}

// SavePaidWithReleases persists a Paid payout together with the released
// allocations in one transaction
func (r *GormPayoutRepository) SavePaidWithReleases(ctx context.Context, p *payout.SellerPayout, allocations []*escrow.EscrowAllocation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := savePayout(tx, p); err != nil {
			return err
		}
		for _, allocation := range allocations {
			model := models.EscrowAllocationModelFromDomain(allocation)
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				UpdateAll: true,
			}).Create(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// savePayout persists the payout row with an optimistic-lock version check,
// then upserts its items. Items carry the claimed flag derived from the
// payout's status, so the partial unique index on (allocation_id) WHERE
// claimed rejects an allocation held by two live payouts.
func savePayout(tx *gorm.DB, p *payout.SellerPayout) error {
	model := models.SellerPayoutModelFromDomain(p)
	items := model.Items
	model.Items = nil

	var count int64
	if err := tx.Model(&models.SellerPayoutModel{}).
		Where("id = ?", model.ID).
		Count(&count).Error; err != nil {
		return err
	}

	if count == 0 {
		if err := tx.Create(model).Error; err != nil {
			return err
		}
	} else {
		result := tx.Model(&models.SellerPayoutModel{}).
			Where("id = ? AND version = ?", model.ID, model.Version).
			Updates(map[string]interface{}{
				"total_amount":     model.TotalAmount,
				"status":           model.Status,
				"scheduled_date":   model.ScheduledDate,
				"payout_method":    model.PayoutMethod,
				"payout_reference": model.PayoutReference,
				"error_reference":  model.ErrorReference,
				"error_message":    model.ErrorMessage,
				"retry_count":      model.RetryCount,
				"max_retries":      model.MaxRetries,
				"next_retry_at":    model.NextRetryAt,
				"version":          model.Version + 1,
				"updated_at":       time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		p.IncrementVersion()
	}

	if len(items) == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&items).Error
}

func toDomainPayouts(rows []models.SellerPayoutModel) []payout.SellerPayout {
	payouts := make([]payout.SellerPayout, len(rows))
	for i := range rows {
		payouts[i] = *rows[i].ToDomain()
	}
	return payouts
}

// Ensure GormPayoutRepository implements Repository
var _ payout.Repository = (*GormPayoutRepository)(nil)
