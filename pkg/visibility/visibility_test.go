package visibility

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/farmmarket-backend/pkg/db/models"
	"github.com/angelmondragon/farmmarket-backend/pkg/enums"
	"github.com/angelmondragon/farmmarket-backend/pkg/errors"
)

func baseListing() (*models.Product, *models.User) {
	farmer := &models.User{ID: uuid.New(), Role: enums.UserRoleFarmer, Approved: true}
	product := &models.Product{
		ID:       uuid.New(),
		FarmerID: farmer.ID,
		Name:     "Tomatoes",
		Category: enums.ProductCategoryVegetable,
		Price:    decimal.NewFromInt(40),
		Quantity: decimal.NewFromInt(50),
	}
	return product, farmer
}

func TestEnsureProductListed(t *testing.T) {
	t.Run("visible", func(t *testing.T) {
		product, farmer := baseListing()
		if err := EnsureProductListed(product, farmer); err != nil {
			t.Fatalf("expected visible, got %v", err)
		}
	})
	t.Run("product missing", func(t *testing.T) {
		_, farmer := baseListing()
		err := EnsureProductListed(nil, farmer)
		if errors.CodeOf(err) != errors.CodeNotFound {
			t.Fatalf("expected not found, got %v", err)
		}
	})
	t.Run("farmer mismatch", func(t *testing.T) {
		product, _ := baseListing()
		other := &models.User{ID: uuid.New(), Role: enums.UserRoleFarmer, Approved: true}
		err := EnsureProductListed(product, other)
		if errors.CodeOf(err) != errors.CodeNotFound {
			t.Fatalf("expected not found, got %v", err)
		}
	})
	t.Run("farmer unapproved", func(t *testing.T) {
		product, farmer := baseListing()
		farmer.Approved = false
		err := EnsureProductListed(product, farmer)
		if errors.CodeOf(err) != errors.CodeNotFound {
			t.Fatalf("expected not found, got %v", err)
		}
	})
	t.Run("owner not a farmer", func(t *testing.T) {
		product, farmer := baseListing()
		farmer.Role = enums.UserRoleBuyer
		if err := EnsureProductVisible(product, farmer); err == nil {
			t.Fatal("expected non-farmer owner to be hidden")
		}
	})
	t.Run("out of stock", func(t *testing.T) {
		product, farmer := baseListing()
		product.Quantity = decimal.Zero
		if err := EnsureProductListed(product, farmer); errors.CodeOf(err) != errors.CodeNotFound {
			t.Fatalf("expected not found, got %v", err)
		}
		if err := EnsureProductVisible(product, farmer); err != nil {
			t.Fatalf("visibility alone should ignore stock, got %v", err)
		}
	})
}
