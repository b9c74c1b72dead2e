package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/farmmarket-backend/pkg/enums"
)

// OrderCreatedEvent announces a placed order and the farmers it involves.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	BuyerID     uuid.UUID         `json:"buyer_id"`
	FarmerIDs   []uuid.UUID       `json:"farmer_ids"`
	PaymentMode enums.PaymentMode `json:"payment_mode"`
	TotalAmount string            `json:"total_amount"`
	Currency    string            `json:"currency"`
	ItemCount   int               `json:"item_count"`
}

// OrderPackedEvent is emitted when a farmer packs an order.
type OrderPackedEvent struct {
	OrderID  uuid.UUID `json:"order_id"`
	BuyerID  uuid.UUID `json:"buyer_id"`
	PackedBy uuid.UUID `json:"packed_by"`
	PackedAt time.Time `json:"packed_at"`
}

// PaymentVerifiedEvent is emitted once a provider callback signature checks out.
type PaymentVerifiedEvent struct {
	OrderID        uuid.UUID `json:"order_id"`
	BuyerID        uuid.UUID `json:"buyer_id"`
	PaymentOrderID string    `json:"payment_order_id"`
	PaymentID      string    `json:"payment_id"`
	Amount         string    `json:"amount"`
	PaidAt         time.Time `json:"paid_at"`
}

// FarmerApprovalChangedEvent reports an admin approval decision.
type FarmerApprovalChangedEvent struct {
	FarmerID  uuid.UUID `json:"farmer_id"`
	Approved  bool      `json:"approved"`
	DecidedBy uuid.UUID `json:"decided_by"`
}

// UserDeletedEvent reports an admin removing an account.
type UserDeletedEvent struct {
	UserID    uuid.UUID      `json:"user_id"`
	Role      enums.UserRole `json:"role"`
	DeletedBy uuid.UUID      `json:"deleted_by"`
}
