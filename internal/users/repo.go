package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/farmmarket-backend/pkg/db/models"
	"github.com/angelmondragon/farmmarket-backend/pkg/enums"
	"github.com/angelmondragon/farmmarket-backend/pkg/geo"
	"github.com/angelmondragon/farmmarket-backend/pkg/pagination"
)

// Repository exposes user and profile persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts the user together with whichever profile is attached.
func (r *Repository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByEmail retrieves the user matching the provided email, with profiles.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.withProfiles(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user with profiles.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.withProfiles(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// BuyerLocation returns the buyer's last stored GPS fix, or nil when none is
// recorded.
func (r *Repository) BuyerLocation(ctx context.Context, userID uuid.UUID) (*geo.Point, error) {
	var profile models.BuyerProfile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	point, ok := profile.Location()
	if !ok {
		return nil, nil
	}
	return &point, nil
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// UpdateBuyerLocation stores a fresh GPS fix on the buyer profile.
func (r *Repository) UpdateBuyerLocation(ctx context.Context, userID uuid.UUID, p geo.Point, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.BuyerProfile{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"latitude":            p.Lat,
			"longitude":           p.Lng,
			"location_updated_at": at,
		}).Error
}

// ListPendingFarmers returns unapproved farmers, oldest registration first.
func (r *Repository) ListPendingFarmers(ctx context.Context) ([]models.User, error) {
	var rows []models.User
	err := r.db.WithContext(ctx).
		Preload("FarmerProfile").
		Where("role = ? AND approved = ?", enums.UserRoleFarmer, false).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// SetApproved overwrites the approval flag.
func (r *Repository) SetApproved(ctx context.Context, id uuid.UUID, approved bool) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("approved", approved).Error
}

// ListPage returns one cursor page of users, newest first.
func (r *Repository) ListPage(ctx context.Context, limit int, cursor *pagination.Cursor) ([]models.User, error) {
	query := r.withProfiles(ctx).Model(&models.User{})
	var rows []models.User
	err := query.Scopes(pagination.Scope(limit, cursor)).Find(&rows).Error
	return rows, err
}

// Delete removes the user and both profile rows.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("user_id = ?", id).Delete(&models.FarmerProfile{}).Error; err != nil {
		return err
	}
	if err := db.Where("user_id = ?", id).Delete(&models.BuyerProfile{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&models.User{}).Error
}

// CountByRole counts users with role, optionally filtered by approval.
func (r *Repository) CountByRole(ctx context.Context, role enums.UserRole, approved *bool) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", role)
	if approved != nil {
		query = query.Where("approved = ?", *approved)
	}
	var count int64
	err := query.Count(&count).Error
	return count, err
}

func (r *Repository) withProfiles(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("FarmerProfile").Preload("BuyerProfile")
}
