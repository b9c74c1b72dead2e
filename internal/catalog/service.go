package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/farmmarket-backend/pkg/db"
	"github.com/angelmondragon/farmmarket-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/farmmarket-backend/pkg/errors"
	"github.com/angelmondragon/farmmarket-backend/pkg/geo"
	"github.com/angelmondragon/farmmarket-backend/pkg/pagination"
	"github.com/angelmondragon/farmmarket-backend/pkg/visibility"
)

// Service exposes catalog reads and farmer listing management.
type Service interface {
	ListProducts(ctx context.Context, q Query) ([]ProductDTO, error)
	ListMyProducts(ctx context.Context, farmerID uuid.UUID) ([]ProductDTO, error)
	CreateProduct(ctx context.Context, farmerID uuid.UUID, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, farmerID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, farmerID, productID uuid.UUID) error
	ListAllProducts(ctx context.Context, params pagination.Params) (*ProductList, error)
	AdminDeleteProduct(ctx context.Context, productID uuid.UUID) error
}

type service struct {
	repo     *Repository
	dbClient db.TxRunner
	radiusKm float64
}

// NewService constructs a catalog service. A non-positive radius falls back
// to DefaultRadiusKm.
func NewService(repo *Repository, dbClient db.TxRunner, radiusKm float64) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}
	return &service{repo: repo, dbClient: dbClient, radiusKm: radiusKm}, nil
}

func (s *service) ListProducts(ctx context.Context, q Query) ([]ProductDTO, error) {
	if q.Origin == nil && q.RequireOrigin {
		return []ProductDTO{}, nil
	}
	if q.Origin != nil && !q.Origin.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid coordinates")
	}
	if q.Category != nil && !q.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid category")
	}

	products, err := s.repo.ListVisible(ctx, q.Category)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	listings := make([]Listing, 0, len(products))
	for _, p := range products {
		if visibility.EnsureProductListed(&p, p.Farmer) != nil {
			continue
		}
		listings = append(listings, Listing{Product: p})
	}

	if q.Origin == nil {
		out := make([]ProductDTO, len(listings))
		for i, l := range listings {
			out[i] = toProductDTO(l.Product)
		}
		return out, nil
	}

	nearby := FilterWithinRadius(listings, *q.Origin, s.radiusKm)
	out := make([]ProductDTO, len(nearby))
	for i, l := range nearby {
		dto := toProductDTO(l.Product)
		if farm, ok := l.Location(); ok {
			d := roundKm(geo.Distance(*q.Origin, farm))
			dto.DistanceKm = &d
		}
		out[i] = dto
	}
	return out, nil
}

func (s *service) ListMyProducts(ctx context.Context, farmerID uuid.UUID) ([]ProductDTO, error) {
	if farmerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "farmer id required")
	}
	products, err := s.repo.ListByFarmer(ctx, farmerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list farmer products")
	}
	return toProductDTOs(products), nil
}

func (s *service) CreateProduct(ctx context.Context, farmerID uuid.UUID, input CreateProductInput) (*ProductDTO, error) {
	if farmerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "farmer id required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid category")
	}
	if err := validatePrice(input.Price); err != nil {
		return nil, err
	}
	if !input.Quantity.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}

	product := &models.Product{
		FarmerID:    farmerID,
		Name:        name,
		Category:    input.Category,
		Description: trimOptional(input.Description),
		Price:       input.Price.Round(2),
		Quantity:    input.Quantity.Round(models.QuantityPlaces),
		ImageURL:    trimOptional(input.ImageURL),
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
	}
	dto := toProductDTO(*product)
	return &dto, nil
}

func (s *service) UpdateProduct(ctx context.Context, farmerID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	var updated models.Product
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		product, err := s.loadOwned(ctx, txRepo, farmerID, productID)
		if err != nil {
			return err
		}
		if err := applyUpdate(product, input); err != nil {
			return err
		}
		if err := txRepo.Save(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
		}
		updated = *product
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := toProductDTO(updated)
	return &dto, nil
}

func (s *service) DeleteProduct(ctx context.Context, farmerID, productID uuid.UUID) error {
	return s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := s.loadOwned(ctx, txRepo, farmerID, productID); err != nil {
			return err
		}
		if err := txRepo.Delete(ctx, productID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete product")
		}
		return nil
	})
}

func (s *service) ListAllProducts(ctx context.Context, params pagination.Params) (*ProductList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListPage(ctx, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	rows, next := pagination.Split(rows, params.Limit, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return &ProductList{Items: toProductDTOs(rows), Cursor: next}, nil
}

func (s *service) AdminDeleteProduct(ctx context.Context, productID uuid.UUID) error {
	return s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := txRepo.FindByID(ctx, productID); err != nil {
			return mapLookupError(err)
		}
		if err := txRepo.Delete(ctx, productID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete product")
		}
		return nil
	})
}

func (s *service) loadOwned(ctx context.Context, repo *Repository, farmerID, productID uuid.UUID) (*models.Product, error) {
	product, err := repo.FindByID(ctx, productID)
	if err != nil {
		return nil, mapLookupError(err)
	}
	if product.FarmerID != farmerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product belongs to another farmer")
	}
	return product, nil
}

func applyUpdate(product *models.Product, input UpdateProductInput) error {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
		}
		product.Name = name
	}
	if input.Category != nil {
		if !input.Category.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid category")
		}
		product.Category = *input.Category
	}
	if input.Description != nil {
		product.Description = trimOptional(input.Description)
	}
	if input.Price != nil {
		if err := validatePrice(*input.Price); err != nil {
			return err
		}
		product.Price = input.Price.Round(2)
	}
	if input.Quantity != nil {
		if input.Quantity.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
		}
		product.Quantity = input.Quantity.Round(models.QuantityPlaces)
	}
	if input.ImageURL != nil {
		product.ImageURL = trimOptional(input.ImageURL)
	}
	return nil
}

func validatePrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be greater than zero")
	}
	return nil
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func roundKm(km float64) float64 {
	return decimal.NewFromFloat(km).Round(2).InexactFloat64()
}
