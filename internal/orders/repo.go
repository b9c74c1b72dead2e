package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/farmmarket-backend/pkg/db/models"
	"github.com/angelmondragon/farmmarket-backend/pkg/enums"
)

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error)
	ListByFarmer(ctx context.Context, farmerID uuid.UUID) ([]models.Order, error)
	FindBuyers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.User, error)
	HasFarmerItem(ctx context.Context, orderID, farmerID uuid.UUID) (bool, error)
	MarkPacked(ctx context.Context, orderID uuid.UUID, at time.Time) (bool, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID, providerOrderID, paymentID string, at time.Time) (bool, error)
	DeleteByBuyer(ctx context.Context, buyerID uuid.UUID) error
	Count(ctx context.Context) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order and its items.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&orders).Error
	return orders, err
}

// ListByFarmer returns orders containing at least one of the farmer's lines,
// newest first, with only that farmer's items preloaded.
func (r *repository) ListByFarmer(ctx context.Context, farmerID uuid.UUID) ([]models.Order, error) {
	db := r.db.WithContext(ctx)
	involved := db.Model(&models.OrderItem{}).
		Select("order_id").
		Where("farmer_id = ?", farmerID)

	var orders []models.Order
	err := db.
		Preload("Items", func(tx *gorm.DB) *gorm.DB {
			return tx.Where("farmer_id = ?", farmerID).Order("created_at ASC, id ASC")
		}).
		Where("id IN (?)", involved).
		Order("created_at DESC").
		Order("id DESC").
		Find(&orders).Error
	return orders, err
}

func (r *repository) FindBuyers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.User, error) {
	out := make(map[uuid.UUID]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := r.db.WithContext(ctx).
		Preload("BuyerProfile").
		Where("id IN ?", ids).
		Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (r *repository) HasFarmerItem(ctx context.Context, orderID, farmerID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("order_id = ? AND farmer_id = ?", orderID, farmerID).
		Count(&count).Error
	return count > 0, err
}

// MarkPacked moves a new order to packed. It reports false when the order was
// not in the new state.
func (r *repository) MarkPacked(ctx context.Context, orderID uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND order_status = ?", orderID, enums.OrderStatusNew).
		Updates(map[string]any{
			"order_status": enums.OrderStatusPacked,
			"packed_at":    at,
		})
	return result.RowsAffected > 0, result.Error
}

// MarkPaid settles a pending online order whose provider order id matches.
// It reports false when no pending row matched.
func (r *repository) MarkPaid(ctx context.Context, orderID uuid.UUID, providerOrderID, paymentID string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status = ? AND payment_order_id = ?", orderID, enums.PaymentStatusPending, providerOrderID).
		Updates(map[string]any{
			"payment_status": enums.PaymentStatusPaid,
			"payment_id":     paymentID,
			"paid_at":        at,
		})
	return result.RowsAffected > 0, result.Error
}

// DeleteByBuyer removes every order of buyerID together with its items.
func (r *repository) DeleteByBuyer(ctx context.Context, buyerID uuid.UUID) error {
	db := r.db.WithContext(ctx)
	owned := db.Model(&models.Order{}).Select("id").Where("buyer_id = ?", buyerID)
	if err := db.Where("order_id IN (?)", owned).Delete(&models.OrderItem{}).Error; err != nil {
		return err
	}
	return db.Where("buyer_id = ?", buyerID).Delete(&models.Order{}).Error
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Count(&count).Error
	return count, err
}
