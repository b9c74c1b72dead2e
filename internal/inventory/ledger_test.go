package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/farmmarket-backend/pkg/db/dbtest"
	"github.com/angelmondragon/farmmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/farmmarket-backend/pkg/errors"
	"github.com/angelmondragon/farmmarket-backend/pkg/geo"
)

var farmLocation = geo.NewPoint(19.0820, 72.8850)

func kg(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestReserveDecrementsEveryLine(t *testing.T) {
	client := dbtest.Open(t, "ledger_reserve")
	ctx := context.Background()
	farmer := dbtest.MustCreateFarmer(t, client.DB(), "Asha", farmLocation, true)
	tomatoes := dbtest.MustCreateProduct(t, client.DB(), farmer.ID, "Tomatoes", enums.ProductCategoryVegetable, 40, 50)
	rice := dbtest.MustCreateProduct(t, client.DB(), farmer.ID, "Basmati", enums.ProductCategoryRice, 90, 20)

	var reservations []Reservation
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		reservations, err = NewLedger().Reserve(ctx, tx, []Line{
			{ProductID: tomatoes.ID, Quantity: kg(5)},
			{ProductID: rice.ID, Quantity: kg(2)},
		})
		return err
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if len(reservations) != 2 {
		t.Fatalf("expected 2 reservations, got %d", len(reservations))
	}
	if !reservations[0].LineTotal().Equal(kg(200)) {
		t.Fatalf("expected tomato line total 200, got %s", reservations[0].LineTotal())
	}

	if got := dbtest.MustReloadProduct(t, client.DB(), tomatoes.ID).Quantity; !got.Equal(kg(45)) {
		t.Fatalf("expected tomatoes at 45, got %s", got)
	}
	if got := dbtest.MustReloadProduct(t, client.DB(), rice.ID).Quantity; !got.Equal(kg(18)) {
		t.Fatalf("expected rice at 18, got %s", got)
	}
}

func TestReserveIsAllOrNothing(t *testing.T) {
	client := dbtest.Open(t, "ledger_atomic")
	ctx := context.Background()
	farmer := dbtest.MustCreateFarmer(t, client.DB(), "Asha", farmLocation, true)
	first := dbtest.MustCreateProduct(t, client.DB(), farmer.ID, "Onions", enums.ProductCategoryVegetable, 30, 10)
	second := dbtest.MustCreateProduct(t, client.DB(), farmer.ID, "Mangoes", enums.ProductCategoryFruit, 120, 1)

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := NewLedger().Reserve(ctx, tx, []Line{
			{ProductID: first.ID, Quantity: kg(4)},
			{ProductID: second.ID, Quantity: kg(3)},
		})
		return err
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	if !ok || details["product_id"] != second.ID.String() || details["available"] != "1" {
		t.Fatalf("unexpected details: %#v", pkgerrors.As(err).Details())
	}

	if got := dbtest.MustReloadProduct(t, client.DB(), first.ID).Quantity; !got.Equal(kg(10)) {
		t.Fatalf("expected first product untouched at 10, got %s", got)
	}
	if got := dbtest.MustReloadProduct(t, client.DB(), second.ID).Quantity; !got.Equal(kg(1)) {
		t.Fatalf("expected second product untouched at 1, got %s", got)
	}
}

func TestReserveUnknownProduct(t *testing.T) {
	client := dbtest.Open(t, "ledger_missing")
	ctx := context.Background()

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := NewLedger().Reserve(ctx, tx, []Line{{ProductID: uuid.New(), Quantity: kg(1)}})
		return err
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReserveMergesDuplicateLines(t *testing.T) {
	client := dbtest.Open(t, "ledger_merge")
	ctx := context.Background()
	farmer := dbtest.MustCreateFarmer(t, client.DB(), "Asha", farmLocation, true)
	wheat := dbtest.MustCreateProduct(t, client.DB(), farmer.ID, "Wheat", enums.ProductCategoryGrain, 25, 10)

	// 6 + 6 exceeds stock even though each line alone would fit.
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := NewLedger().Reserve(ctx, tx, []Line{
			{ProductID: wheat.ID, Quantity: kg(6)},
			{ProductID: wheat.ID, Quantity: kg(6)},
		})
		return err
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected merged lines to exceed stock, got %v", err)
	}

	var reservations []Reservation
	err = client.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		reservations, err = NewLedger().Reserve(ctx, tx, []Line{
			{ProductID: wheat.ID, Quantity: kg(3)},
			{ProductID: wheat.ID, Quantity: kg(4)},
		})
		return err
	})
	if err != nil {
		t.Fatalf("reserve merged: %v", err)
	}
	if len(reservations) != 1 || !reservations[0].Quantity.Equal(kg(7)) {
		t.Fatalf("expected one merged reservation of 7, got %+v", reservations)
	}
	if got := dbtest.MustReloadProduct(t, client.DB(), wheat.ID).Quantity; !got.Equal(kg(3)) {
		t.Fatalf("expected wheat at 3, got %s", got)
	}
}

func TestCommitRejectsStaleReservation(t *testing.T) {
	client := dbtest.Open(t, "ledger_stale")
	ctx := context.Background()
	farmer := dbtest.MustCreateFarmer(t, client.DB(), "Asha", farmLocation, true)
	grapes := dbtest.MustCreateProduct(t, client.DB(), farmer.ID, "Grapes", enums.ProductCategoryFruit, 80, 5)
	ledger := NewLedger()

	var stale []Reservation
	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		stale, err = ledger.Check(ctx, tx, []Line{{ProductID: grapes.ID, Quantity: kg(4)}})
		return err
	}); err != nil {
		t.Fatalf("check: %v", err)
	}

	// A competing order drains most of the stock after our check.
	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := ledger.Reserve(ctx, tx, []Line{{ProductID: grapes.ID, Quantity: kg(3)}})
		return err
	}); err != nil {
		t.Fatalf("competing reserve: %v", err)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return ledger.Commit(ctx, tx, stale)
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected stale commit to fail, got %v", err)
	}
	if got := dbtest.MustReloadProduct(t, client.DB(), grapes.ID).Quantity; !got.Equal(kg(2)) {
		t.Fatalf("expected grapes at 2, got %s", got)
	}
}

func TestStockNeverGoesNegative(t *testing.T) {
	client := dbtest.Open(t, "ledger_invariant")
	ctx := context.Background()
	farmer := dbtest.MustCreateFarmer(t, client.DB(), "Asha", farmLocation, true)
	potatoes := dbtest.MustCreateProduct(t, client.DB(), farmer.ID, "Potatoes", enums.ProductCategoryVegetable, 20, 10)

	consumed := decimal.Zero
	for i := 0; i < 8; i++ {
		err := client.WithTx(ctx, func(tx *gorm.DB) error {
			_, err := NewLedger().Reserve(ctx, tx, []Line{{ProductID: potatoes.ID, Quantity: kg(3)}})
			return err
		})
		if err == nil {
			consumed = consumed.Add(kg(3))
			continue
		}
		if !pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock) {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if !consumed.Equal(kg(9)) {
		t.Fatalf("expected 9kg consumed, got %s", consumed)
	}
	remaining := dbtest.MustReloadProduct(t, client.DB(), potatoes.ID).Quantity
	if remaining.IsNegative() || !remaining.Equal(kg(1)) {
		t.Fatalf("expected 1kg remaining, got %s", remaining)
	}
}

func TestMergeLinesValidation(t *testing.T) {
	if _, err := MergeLines(nil); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected empty lines to fail validation, got %v", err)
	}
	if _, err := MergeLines([]Line{{ProductID: uuid.New(), Quantity: decimal.Zero}}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected zero quantity to fail validation, got %v", err)
	}
	if _, err := MergeLines([]Line{{Quantity: kg(1)}}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected missing product id to fail validation, got %v", err)
	}
}

func TestMergeLinesRejectsQuantitiesFinerThanStorage(t *testing.T) {
	for _, raw := range []string{"0.0004", "0.0006", "2.1234"} {
		_, err := MergeLines([]Line{{ProductID: uuid.New(), Quantity: decimal.RequireFromString(raw)}})
		if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("expected %s kg to fail validation, got %v", raw, err)
		}
	}

	merged, err := MergeLines([]Line{{ProductID: uuid.New(), Quantity: decimal.RequireFromString("0.2500")}})
	if err != nil {
		t.Fatalf("expected trailing zeros within scale to pass, got %v", err)
	}
	if !merged[0].Quantity.Equal(decimal.RequireFromString("0.25")) {
		t.Fatalf("unexpected quantity %s", merged[0].Quantity)
	}
}

func TestMergeLinesRejectsOverflowingTotals(t *testing.T) {
	id := uuid.New()
	half := decimal.New(5, 8)
	if _, err := MergeLines([]Line{{ProductID: id, Quantity: half}, {ProductID: id, Quantity: half}}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected merged quantity beyond column range to fail, got %v", err)
	}
	if _, err := MergeLines([]Line{{ProductID: id, Quantity: half}}); err != nil {
		t.Fatalf("expected %s to pass, got %v", half, err)
	}
}
