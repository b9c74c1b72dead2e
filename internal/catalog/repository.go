package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/farmmarket-backend/pkg/db/models"
	"github.com/angelmondragon/farmmarket-backend/pkg/enums"
	"github.com/angelmondragon/farmmarket-backend/pkg/pagination"
)

// Repository persists products.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// ListVisible returns in-stock products of approved farmers, newest first,
// with the farmer and farm profile preloaded. Distance is not applied here.
func (r *Repository) ListVisible(ctx context.Context, category *enums.ProductCategory) ([]models.Product, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Select("products.*").
		Joins("JOIN users ON users.id = products.farmer_id").
		Where("users.role = ? AND users.approved = ?", enums.UserRoleFarmer, true).
		Where("products.quantity > 0")
	if category != nil {
		query = query.Where("products.category = ?", *category)
	}

	var products []models.Product
	err := query.
		Preload("Farmer").
		Preload("Farmer.FarmerProfile").
		Order("products.created_at DESC").
		Order("products.id DESC").
		Find(&products).Error
	return products, err
}

// ListByFarmer returns every product owned by farmerID, including sold out ones.
func (r *Repository) ListByFarmer(ctx context.Context, farmerID uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("farmer_id = ?", farmerID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&products).Error
	return products, err
}

// ListPage returns one cursor page across all products, newest first.
func (r *Repository) ListPage(ctx context.Context, limit int, cursor *pagination.Cursor) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{}).Preload("Farmer")
	var products []models.Product
	err := query.Scopes(pagination.Scope(limit, cursor)).Find(&products).Error
	return products, err
}

// FindByID loads the product without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDs loads products keyed by id.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var products []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

// Create inserts a new product row.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// Save writes every column of an existing product row.
func (r *Repository) Save(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

// Delete removes the product and detaches order items that reference it, so
// order history keeps its snapshots.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Model(&models.OrderItem{}).
		Where("product_id = ?", id).
		Update("product_id", nil).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", id).Delete(&models.Product{}).Error
}

// DeleteByFarmer removes all products of a farmer, detaching order items first.
func (r *Repository) DeleteByFarmer(ctx context.Context, farmerID uuid.UUID) error {
	tx := r.db.WithContext(ctx)
	owned := tx.Model(&models.Product{}).Select("id").Where("farmer_id = ?", farmerID)
	if err := tx.Model(&models.OrderItem{}).
		Where("product_id IN (?)", owned).
		Update("product_id", nil).Error; err != nil {
		return err
	}
	return tx.Where("farmer_id = ?", farmerID).Delete(&models.Product{}).Error
}

// Count returns the total number of products.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Count(&count).Error
	return count, err
}
