package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/farmmarket-backend/pkg/db/models"
	"github.com/angelmondragon/farmmarket-backend/pkg/enums"
)

// Actor is the authenticated caller of an order operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// LineInput is one requested cart line.
type LineInput struct {
	ProductID uuid.UUID
	Quantity  decimal.Decimal
}

// CreateOrderInput captures a buyer checkout.
type CreateOrderInput struct {
	BuyerID     uuid.UUID
	Lines       []LineInput
	PaymentMode enums.PaymentMode
}

// OrderItemDTO is one line of an order as returned to clients.
type OrderItemDTO struct {
	ID          uuid.UUID             `json:"id"`
	ProductID   *uuid.UUID            `json:"product_id,omitempty"`
	FarmerID    uuid.UUID             `json:"farmer_id"`
	ProductName string                `json:"product_name"`
	Category    enums.ProductCategory `json:"category"`
	UnitPrice   decimal.Decimal       `json:"unit_price"`
	Quantity    decimal.Decimal       `json:"quantity"`
	LineTotal   decimal.Decimal       `json:"line_total"`
}

// PaymentIntentDTO carries what a client needs to open the provider checkout.
type PaymentIntentDTO struct {
	ProviderOrderID string `json:"provider_order_id"`
	AmountMinor     int64  `json:"amount_minor"`
	Currency        string `json:"currency"`
	KeyID           string `json:"key_id,omitempty"`
}

// OrderDTO is the buyer-facing order shape.
type OrderDTO struct {
	ID             uuid.UUID           `json:"id"`
	BuyerID        uuid.UUID           `json:"buyer_id"`
	PaymentMode    enums.PaymentMode   `json:"payment_mode"`
	PaymentStatus  enums.PaymentStatus `json:"payment_status"`
	OrderStatus    enums.OrderStatus   `json:"order_status"`
	TotalAmount    decimal.Decimal     `json:"total_amount"`
	Currency       string              `json:"currency"`
	PaymentOrderID *string             `json:"payment_order_id,omitempty"`
	PaymentID      *string             `json:"payment_id,omitempty"`
	PaidAt         *time.Time          `json:"paid_at,omitempty"`
	PackedAt       *time.Time          `json:"packed_at,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	Items          []OrderItemDTO      `json:"items"`
	Payment        *PaymentIntentDTO   `json:"payment,omitempty"`
}

// BuyerContact is what a farmer sees about the buyer of an order.
type BuyerContact struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Phone   string    `json:"phone,omitempty"`
	Address string    `json:"address,omitempty"`
	City    string    `json:"city,omitempty"`
	Pincode string    `json:"pincode,omitempty"`
}

// FarmerOrderDTO is one order seen by one farmer: only that farmer's lines
// and their subtotal.
type FarmerOrderDTO struct {
	OrderID       uuid.UUID           `json:"order_id"`
	Buyer         BuyerContact        `json:"buyer"`
	PaymentMode   enums.PaymentMode   `json:"payment_mode"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	OrderStatus   enums.OrderStatus   `json:"order_status"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	Items         []OrderItemDTO      `json:"items"`
	CreatedAt     time.Time           `json:"created_at"`
}

func toItemDTOs(items []models.OrderItem) []OrderItemDTO {
	out := make([]OrderItemDTO, len(items))
	for i, item := range items {
		out[i] = OrderItemDTO{
			ID:          item.ID,
			ProductID:   item.ProductID,
			FarmerID:    item.FarmerID,
			ProductName: item.ProductName,
			Category:    item.Category,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			LineTotal:   item.LineTotal,
		}
	}
	return out
}

// ToOrderDTO converts a loaded order (with items) to its API shape.
func ToOrderDTO(order models.Order) OrderDTO {
	return OrderDTO{
		ID:             order.ID,
		BuyerID:        order.BuyerID,
		PaymentMode:    order.PaymentMode,
		PaymentStatus:  order.PaymentStatus,
		OrderStatus:    order.OrderStatus,
		TotalAmount:    order.TotalAmount,
		Currency:       order.Currency,
		PaymentOrderID: order.PaymentOrderID,
		PaymentID:      order.PaymentID,
		PaidAt:         order.PaidAt,
		PackedAt:       order.PackedAt,
		CreatedAt:      order.CreatedAt,
		Items:          toItemDTOs(order.Items),
	}
}

func toBuyerContact(user *models.User) BuyerContact {
	if user == nil {
		return BuyerContact{}
	}
	contact := BuyerContact{ID: user.ID, Name: user.Name}
	if p := user.BuyerProfile; p != nil {
		contact.Phone = p.Phone
		contact.Address = p.Address
		contact.City = p.City
		contact.Pincode = p.Pincode
	}
	return contact
}
