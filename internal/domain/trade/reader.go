// Package trade exposes the read-only view of the order domain that the
// funds-administration core depends on. Orders, shipments and stores are
// owned elsewhere; this package only defines the collaborator contracts.
package trade

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared/valueobject"
)

// ShipmentStatus represents the fulfilment status of a shipment
type ShipmentStatus string

const (
	ShipmentStatusPending   ShipmentStatus = "PENDING"
	ShipmentStatusShipped   ShipmentStatus = "SHIPPED"
	ShipmentStatusDelivered ShipmentStatus = "DELIVERED"
	ShipmentStatusCancelled ShipmentStatus = "CANCELLED"
)

// Shipment is a read model of one seller's shipment within an order
type Shipment struct {
	ID           uuid.UUID
	OrderID      uuid.UUID
	StoreID      uuid.UUID
	SellerID     uuid.UUID
	Subtotal     decimal.Decimal
	ShippingCost decimal.Decimal
	// CategoryIDs are the product categories of the shipment's items,
	// used for category-scoped commission rules
	CategoryIDs []uuid.UUID
	Status      ShipmentStatus
	DeliveredAt *time.Time
}

// Order is a read model of a paid marketplace order
type Order struct {
	ID          uuid.UUID
	OrderNumber string
	BuyerID     uuid.UUID
	TotalAmount decimal.Decimal
	Currency    valueobject.Currency
	PaidAt      *time.Time
	Shipments   []Shipment
}

// OrderReader provides read-only access to orders and shipments
type OrderReader interface {
	// FindOrder returns an order with its shipments, or nil if not found
	FindOrder(ctx context.Context, orderID uuid.UUID) (*Order, error)
	// FindOrderNumbers resolves order numbers for a set of order IDs
	FindOrderNumbers(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID]string, error)
}

// StoreInfo is a read model of a store and its owning seller
type StoreInfo struct {
	StoreID   uuid.UUID
	SellerID  uuid.UUID
	StoreName string
}

// StoreDirectory provides read-only access to store/seller identity
type StoreDirectory interface {
	// FindStore returns store identity data, or nil if not found
	FindStore(ctx context.Context, storeID uuid.UUID) (*StoreInfo, error)
	// FindStores resolves identity data for a set of store IDs
	FindStores(ctx context.Context, storeIDs []uuid.UUID) (map[uuid.UUID]StoreInfo, error)
}
