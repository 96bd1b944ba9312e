package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/payout"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/infrastructure/persistence/models"
)

// GormPayoutSettingsReader implements payout.SettingsReader over the
// payout_settings table owned by seller onboarding
type GormPayoutSettingsReader struct {
	db *gorm.DB
}

// NewGormPayoutSettingsReader creates a new GormPayoutSettingsReader
func NewGormPayoutSettingsReader(db *gorm.DB) *GormPayoutSettingsReader {
	return &GormPayoutSettingsReader{db: db}
}

// FindByStore returns the store's payout settings
func (r *GormPayoutSettingsReader) FindByStore(ctx context.Context, storeID uuid.UUID) (*payout.Settings, error) {
	var model models.PayoutSettingsModel
	if err := r.db.WithContext(ctx).First(&model, "store_id = ?", storeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Ensure GormPayoutSettingsReader implements SettingsReader
var _ payout.SettingsReader = (*GormPayoutSettingsReader)(nil)
