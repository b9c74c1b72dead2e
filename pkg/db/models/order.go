package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/farmmarket-backend/pkg/enums"
)

// Order is a buyer purchase spanning one or more farmers' products.
// TotalAmount is fixed at creation.
type Order struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	BuyerID        uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null;index"`
	PaymentMode    enums.PaymentMode   `gorm:"column:payment_mode;type:text;not null"`
	PaymentStatus  enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:pending"`
	OrderStatus    enums.OrderStatus   `gorm:"column:order_status;type:text;not null;default:new"`
	TotalAmount    decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Currency       string              `gorm:"column:currency;type:text;not null;default:INR"`
	PaymentOrderID *string             `gorm:"column:payment_order_id;index"`
	PaymentID      *string             `gorm:"column:payment_id"`
	PaidAt         *time.Time          `gorm:"column:paid_at"`
	PackedAt       *time.Time          `gorm:"column:packed_at"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}
