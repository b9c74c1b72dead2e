package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/farmmarket-backend/pkg/db/models"
	"github.com/angelmondragon/farmmarket-backend/pkg/enums"
	"github.com/angelmondragon/farmmarket-backend/pkg/geo"
)

// MustCreateFarmer inserts a farmer with a profile at loc.
func MustCreateFarmer(t *testing.T, tx *gorm.DB, name string, loc geo.Point, approved bool) *models.User {
	t.Helper()
	user := &models.User{
		Name:         name,
		Email:        fmt.Sprintf("farmer_%s@example.com", uuid.NewString()),
		PasswordHash: "hash",
		Role:         enums.UserRoleFarmer,
		Approved:     approved,
	}
	if err := tx.Create(user).Error; err != nil {
		t.Fatalf("create farmer: %v", err)
	}
	lat, lng := loc.Lat, loc.Lng
	profile := &models.FarmerProfile{
		UserID:    user.ID,
		Phone:     "9876543210",
		Latitude:  &lat,
		Longitude: &lng,
	}
	if err := tx.Create(profile).Error; err != nil {
		t.Fatalf("create farmer profile: %v", err)
	}
	user.FarmerProfile = profile
	return user
}

// MustCreateBuyer inserts a buyer, with a location when loc is non-nil.
func MustCreateBuyer(t *testing.T, tx *gorm.DB, name string, loc *geo.Point) *models.User {
	t.Helper()
	user := &models.User{
		Name:         name,
		Email:        fmt.Sprintf("buyer_%s@example.com", uuid.NewString()),
		PasswordHash: "hash",
		Role:         enums.UserRoleBuyer,
		Approved:     true,
	}
	if err := tx.Create(user).Error; err != nil {
		t.Fatalf("create buyer: %v", err)
	}
	profile := &models.BuyerProfile{
		UserID:  user.ID,
		Phone:   "9123456780",
		Address: "12 Market Road",
		City:    "Mumbai",
		Pincode: "400001",
	}
	if loc != nil {
		lat, lng := loc.Lat, loc.Lng
		profile.Latitude = &lat
		profile.Longitude = &lng
	}
	if err := tx.Create(profile).Error; err != nil {
		t.Fatalf("create buyer profile: %v", err)
	}
	user.BuyerProfile = profile
	return user
}

// MustCreateAdmin inserts an approved admin.
func MustCreateAdmin(t *testing.T, tx *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{
		Name:         "Admin",
		Email:        fmt.Sprintf("admin_%s@example.com", uuid.NewString()),
		PasswordHash: "hash",
		Role:         enums.UserRoleAdmin,
		Approved:     true,
	}
	if err := tx.Create(user).Error; err != nil {
		t.Fatalf("create admin: %v", err)
	}
	return user
}

// MustCreateProduct inserts a product owned by farmerID.
func MustCreateProduct(t *testing.T, tx *gorm.DB, farmerID uuid.UUID, name string, category enums.ProductCategory, price, quantity int64) *models.Product {
	t.Helper()
	product := &models.Product{
		FarmerID: farmerID,
		Name:     name,
		Category: category,
		Price:    decimal.NewFromInt(price),
		Quantity: decimal.NewFromInt(quantity),
	}
	if err := tx.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

// MustReloadProduct reads the product back from the database.
func MustReloadProduct(t *testing.T, tx *gorm.DB, id uuid.UUID) models.Product {
	t.Helper()
	var product models.Product
	if err := tx.First(&product, "id = ?", id).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return product
}
