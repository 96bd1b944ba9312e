package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/trade"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/infrastructure/persistence/models"
)

// GormOrderReader implements trade.OrderReader over the order domain's tables
type GormOrderReader struct {
	db *gorm.DB
}

// NewGormOrderReader creates a new GormOrderReader
func NewGormOrderReader(db *gorm.DB) *GormOrderReader {
	return &GormOrderReader{db: db}
}

// FindOrder returns an order with its shipments
func (r *GormOrderReader) FindOrder(ctx context.Context, orderID uuid.UUID) (*trade.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Shipments").
		First(&model, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindOrderNumbers resolves order numbers for a set of order IDs
func (r *GormOrderReader) FindOrderNumbers(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	result := make(map[uuid.UUID]string, len(orderIDs))
	if len(orderIDs) == 0 {
		return result, nil
	}
	var rows []models.OrderModel
	if err := r.db.WithContext(ctx).
		Select("id", "order_number").
		Where("id IN ?", orderIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		result[rows[i].ID] = rows[i].OrderNumber
	}
	return result, nil
}

// GormStoreDirectory implements trade.StoreDirectory over the store table
type GormStoreDirectory struct {
	db *gorm.DB
}

// NewGormStoreDirectory creates a new GormStoreDirectory
func NewGormStoreDirectory(db *gorm.DB) *GormStoreDirectory {
	return &GormStoreDirectory{db: db}
}

// FindStore returns store identity data
func (r *GormStoreDirectory) FindStore(ctx context.Context, storeID uuid.UUID) (*trade.StoreInfo, error) {
	var model models.StoreModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", storeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	info := model.ToDomain()
	return &info, nil
}

// FindStores resolves identity data for a set of store IDs
func (r *GormStoreDirectory) FindStores(ctx context.Context, storeIDs []uuid.UUID) (map[uuid.UUID]trade.StoreInfo, error) {
	result := make(map[uuid.UUID]trade.StoreInfo, len(storeIDs))
	if len(storeIDs) == 0 {
		return result, nil
	}
	var rows []models.StoreModel
	if err := r.db.WithContext(ctx).
		Where("id IN ?", storeIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		result[rows[i].ID] = rows[i].ToDomain()
	}
	return result, nil
}

// Ensure the readers implement the trade contracts
var (
	_ trade.OrderReader    = (*GormOrderReader)(nil)
	_ trade.StoreDirectory = (*GormStoreDirectory)(nil)
)
