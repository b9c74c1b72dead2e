package visibility

import (
	"github.com/angelmondragon/farmmarket-backend/pkg/db/models"
	"github.com/angelmondragon/farmmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/farmmarket-backend/pkg/errors"
)

// FarmerListable reports whether a farmer's products may be shown to buyers.
func FarmerListable(farmer *models.User) bool {
	return farmer != nil && farmer.Role == enums.UserRoleFarmer && farmer.Approved
}

// EnsureProductVisible enforces the buyer-facing rules so gated listings never
// leak through catalog or checkout paths. Stock is checked separately by the
// ledger, which reports the quantity it saw.
func EnsureProductVisible(product *models.Product, farmer *models.User) error {
	if product == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if farmer == nil || farmer.ID != product.FarmerID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
			WithDetails(map[string]any{"product_id": product.ID.String()})
	}
	if !FarmerListable(farmer) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not available").
			WithDetails(map[string]any{"product_id": product.ID.String()})
	}
	return nil
}

// EnsureProductListed is EnsureProductVisible plus the in-stock rule used by
// catalog reads.
func EnsureProductListed(product *models.Product, farmer *models.User) error {
	if err := EnsureProductVisible(product, farmer); err != nil {
		return err
	}
	if !product.InStock() {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product out of stock").
			WithDetails(map[string]any{"product_id": product.ID.String()})
	}
	return nil
}
