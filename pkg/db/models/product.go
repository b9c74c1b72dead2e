package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/farmmarket-backend/pkg/enums"
)

// QuantityPlaces is the scale of every quantity column (numeric(12,3)).
const QuantityPlaces int32 = 3

// Product is a farmer listing. Price is per kg; Quantity is kg in stock.
type Product struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	FarmerID    uuid.UUID             `gorm:"column:farmer_id;type:uuid;not null;index"`
	Name        string                `gorm:"column:name;not null"`
	Category    enums.ProductCategory `gorm:"column:category;type:text;not null;index"`
	Description *string               `gorm:"column:description"`
	Price       decimal.Decimal       `gorm:"column:price;type:numeric(12,2);not null"`
	Quantity    decimal.Decimal       `gorm:"column:quantity;type:numeric(12,3);not null"`
	ImageURL    *string               `gorm:"column:image_url"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time             `gorm:"column:updated_at;autoUpdateTime"`

	Farmer *User `gorm:"foreignKey:FarmerID;constraint:OnDelete:CASCADE"`
}

// InStock reports whether any quantity remains.
func (p Product) InStock() bool {
	return p.Quantity.GreaterThan(decimal.Zero)
}
