package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/farmmarket-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/farmmarket-backend/pkg/errors"
)

// Line is a requested quantity of one product.
type Line struct {
	ProductID uuid.UUID
	Quantity  decimal.Decimal
}

// Reservation is a validated line together with the product as read inside
// the transaction. Price and farmer come from this snapshot.
type Reservation struct {
	Product  models.Product
	Quantity decimal.Decimal
}

// LineTotal is price times quantity, rounded to paise.
func (r Reservation) LineTotal() decimal.Decimal {
	return r.Product.Price.Mul(r.Quantity).Round(2)
}

// Ledger validates and decrements product stock. Every method runs on the
// caller's transaction; nothing is committed here.
type Ledger interface {
	Check(ctx context.Context, tx *gorm.DB, lines []Line) ([]Reservation, error)
	Commit(ctx context.Context, tx *gorm.DB, reservations []Reservation) error
	Reserve(ctx context.Context, tx *gorm.DB, lines []Line) ([]Reservation, error)
}

type ledger struct{}

// NewLedger returns the stock ledger backed by the products table.
func NewLedger() Ledger {
	return ledger{}
}

// Check validates every line before anything is written. Repeated product ids
// are merged so a product is only decremented once per order.
func (ledger) Check(ctx context.Context, tx *gorm.DB, lines []Line) ([]Reservation, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	merged, err := MergeLines(lines)
	if err != nil {
		return nil, err
	}

	reservations := make([]Reservation, 0, len(merged))
	for _, line := range merged {
		var product models.Product
		err := tx.WithContext(ctx).First(&product, "id = ?", line.ProductID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": line.ProductID.String()})
		}
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if product.Quantity.LessThan(line.Quantity) {
			return nil, insufficientStock(product, line.Quantity)
		}
		reservations = append(reservations, Reservation{Product: product, Quantity: line.Quantity})
	}
	return reservations, nil
}

// Commit decrements stock for already checked reservations. The update is
// conditional on quantity still covering the request; a zero-row update means
// another order consumed the stock first.
func (ledger) Commit(ctx context.Context, tx *gorm.DB, reservations []Reservation) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	for _, res := range reservations {
		result := tx.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ? AND quantity >= ?", res.Product.ID, res.Quantity).
			Update("quantity", gorm.Expr("quantity - ?", res.Quantity))
		if result.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "decrement stock")
		}
		if result.RowsAffected == 0 {
			current := res.Product
			if err := tx.WithContext(ctx).Select("quantity").First(&current, "id = ?", res.Product.ID).Error; err != nil {
				current.Quantity = decimal.Zero
			}
			return insufficientStock(current, res.Quantity)
		}
	}
	return nil
}

// Reserve runs Check then Commit.
func (l ledger) Reserve(ctx context.Context, tx *gorm.DB, lines []Line) ([]Reservation, error) {
	reservations, err := l.Check(ctx, tx, lines)
	if err != nil {
		return nil, err
	}
	if err := l.Commit(ctx, tx, reservations); err != nil {
		return nil, err
	}
	return reservations, nil
}

// maxQuantity is the first value numeric(12,3) cannot hold.
var maxQuantity = decimal.New(1, 9)

// MergeLines folds repeated product ids together, keeping first-seen order.
// It rejects empty lines, non-positive quantities and quantities finer than
// the stored scale, so what is priced is exactly what is decremented.
func MergeLines(lines []Line) ([]Line, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line is required")
	}

	index := make(map[uuid.UUID]int, len(lines))
	merged := make([]Line, 0, len(lines))
	for i, line := range lines {
		if line.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: product id required", i))
		}
		if !line.Quantity.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: quantity must be positive", i))
		}
		if !line.Quantity.Equal(line.Quantity.Truncate(models.QuantityPlaces)) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: quantity allows at most %d decimal places", i, models.QuantityPlaces))
		}
		if pos, ok := index[line.ProductID]; ok {
			merged[pos].Quantity = merged[pos].Quantity.Add(line.Quantity)
			continue
		}
		index[line.ProductID] = len(merged)
		merged = append(merged, line)
	}
	for _, line := range merged {
		if !line.Quantity.LessThan(maxQuantity) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity for product %s is too large", line.ProductID))
		}
	}
	return merged, nil
}

func insufficientStock(product models.Product, requested decimal.Decimal) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("insufficient stock for %s", product.Name)).
		WithDetails(map[string]any{
			"product_id":   product.ID.String(),
			"product_name": product.Name,
			"available":    product.Quantity.String(),
			"requested":    requested.String(),
		})
}
