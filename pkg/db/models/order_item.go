package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/farmmarket-backend/pkg/enums"
)

// OrderItem is one product line of an order. FarmerID is copied from the
// product so farmer-side queries never join through products, and the name,
// category and price are snapshots taken at order time. ProductID goes null
// when the listing is later deleted.
type OrderItem struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID   *uuid.UUID            `gorm:"column:product_id;type:uuid;index"`
	FarmerID    uuid.UUID             `gorm:"column:farmer_id;type:uuid;not null;index"`
	ProductName string                `gorm:"column:product_name;not null"`
	Category    enums.ProductCategory `gorm:"column:category;type:text;not null"`
	UnitPrice   decimal.Decimal       `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity    decimal.Decimal       `gorm:"column:quantity;type:numeric(12,3);not null"`
	LineTotal   decimal.Decimal       `gorm:"column:line_total;type:numeric(12,2);not null"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}
