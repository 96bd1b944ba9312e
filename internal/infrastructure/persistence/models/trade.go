package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared/valueobject"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/trade"
)

// OrderModel is the read-only view of a marketplace order. The table is owned
// by the order domain; funds administration never writes it.
type OrderModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderNumber string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_orders_number"`
	BuyerID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Currency    string          `gorm:"type:varchar(3);not null"`
	PaidAt      *time.Time      `gorm:"index"`
	Shipments   []ShipmentModel `gorm:"foreignKey:OrderID;references:ID"`
	CreatedAt   time.Time       `gorm:"not null"`
	UpdatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the read model to the domain Order view
func (m *OrderModel) ToDomain() *trade.Order {
	order := &trade.Order{
		ID:          m.ID,
		OrderNumber: m.OrderNumber,
		BuyerID:     m.BuyerID,
		TotalAmount: m.TotalAmount,
		Currency:    valueobject.Currency(m.Currency),
		PaidAt:      m.PaidAt,
		Shipments:   make([]trade.Shipment, len(m.Shipments)),
	}
	for i := range m.Shipments {
		order.Shipments[i] = *m.Shipments[i].ToDomain()
	}
	return order
}

// ShipmentModel is the read-only view of one seller's shipment within an order
type ShipmentModel struct {
	ID           uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	StoreID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	SellerID     uuid.UUID       `gorm:"type:uuid;not null"`
	Subtotal     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ShippingCost decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	CategoryIDs  pq.StringArray  `gorm:"type:text[]"`
	Status       string          `gorm:"type:varchar(20);not null"`
	DeliveredAt  *time.Time
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ShipmentModel) TableName() string {
	return "shipments"
}

// ToDomain converts the read model to the domain Shipment view. Category IDs
// that fail to parse are skipped rather than failing the whole read.
func (m *ShipmentModel) ToDomain() *trade.Shipment {
	categoryIDs := make([]uuid.UUID, 0, len(m.CategoryIDs))
	for _, raw := range m.CategoryIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		categoryIDs = append(categoryIDs, id)
	}
	return &trade.Shipment{
		ID:           m.ID,
		OrderID:      m.OrderID,
		StoreID:      m.StoreID,
		SellerID:     m.SellerID,
		Subtotal:     m.Subtotal,
		ShippingCost: m.ShippingCost,
		CategoryIDs:  categoryIDs,
		Status:       trade.ShipmentStatus(m.Status),
		DeliveredAt:  m.DeliveredAt,
	}
}

// StoreModel is the read-only view of a store and its owning seller
type StoreModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	SellerID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"type:varchar(200);not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StoreModel) TableName() string {
	return "stores"
}

// ToDomain converts the read model to the domain StoreInfo view
func (m *StoreModel) ToDomain() trade.StoreInfo {
	return trade.StoreInfo{
		StoreID:   m.ID,
		SellerID:  m.SellerID,
		StoreName: m.Name,
	}
}
