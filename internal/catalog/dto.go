package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/farmmarket-backend/pkg/db/models"
	"github.com/angelmondragon/farmmarket-backend/pkg/enums"
	"github.com/angelmondragon/farmmarket-backend/pkg/geo"
)

// Query selects the buyer-visible catalog.
type Query struct {
	Origin   *geo.Point
	Category *enums.ProductCategory
	// RequireOrigin makes a missing origin yield an empty catalog instead of
	// an unrestricted one.
	RequireOrigin bool
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name        string
	Category    enums.ProductCategory
	Description *string
	Price       decimal.Decimal
	Quantity    decimal.Decimal
	ImageURL    *string
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name        *string
	Category    *enums.ProductCategory
	Description *string
	Price       *decimal.Decimal
	Quantity    *decimal.Decimal
	ImageURL    *string
}

// FarmerSummary is the public view of a listing's owner.
type FarmerSummary struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	FarmName *string   `json:"farm_name,omitempty"`
	Phone    string    `json:"phone,omitempty"`
}

// ProductDTO is the API shape of a product.
type ProductDTO struct {
	ID          uuid.UUID             `json:"id"`
	FarmerID    uuid.UUID             `json:"farmer_id"`
	Farmer      *FarmerSummary        `json:"farmer,omitempty"`
	Name        string                `json:"name"`
	Category    enums.ProductCategory `json:"category"`
	Description *string               `json:"description,omitempty"`
	Price       decimal.Decimal       `json:"price"`
	Quantity    decimal.Decimal       `json:"quantity"`
	ImageURL    *string               `json:"image_url,omitempty"`
	DistanceKm  *float64              `json:"distance_km,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// ProductList is a cursor page of products.
type ProductList struct {
	Items  []ProductDTO `json:"items"`
	Cursor string       `json:"cursor,omitempty"`
}

func toProductDTO(p models.Product) ProductDTO {
	dto := ProductDTO{
		ID:          p.ID,
		FarmerID:    p.FarmerID,
		Name:        p.Name,
		Category:    p.Category,
		Description: p.Description,
		Price:       p.Price,
		Quantity:    p.Quantity,
		ImageURL:    p.ImageURL,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.Farmer != nil {
		summary := &FarmerSummary{ID: p.Farmer.ID, Name: p.Farmer.Name}
		if p.Farmer.FarmerProfile != nil {
			summary.FarmName = p.Farmer.FarmerProfile.FarmName
			summary.Phone = p.Farmer.FarmerProfile.Phone
		}
		dto.Farmer = summary
	}
	return dto
}

func toProductDTOs(products []models.Product) []ProductDTO {
	out := make([]ProductDTO, len(products))
	for i, p := range products {
		out[i] = toProductDTO(p)
	}
	return out
}
