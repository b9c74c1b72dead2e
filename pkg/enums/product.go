package enums

import (
	"fmt"
	"strings"
)

// ProductCategory represents the produce categories a farmer can list under.
type ProductCategory string

const (
	ProductCategoryFruit     ProductCategory = "Fruit"
	ProductCategoryVegetable ProductCategory = "Vegetable"
	ProductCategoryGrain     ProductCategory = "Grain"
	ProductCategoryRice      ProductCategory = "Rice"
)

var validProductCategories = []ProductCategory{
	ProductCategoryFruit,
	ProductCategoryVegetable,
	ProductCategoryGrain,
	ProductCategoryRice,
}

// ProductCategories returns the supported categories in display order.
func ProductCategories() []ProductCategory {
	out := make([]ProductCategory, len(validProductCategories))
	copy(out, validProductCategories)
	return out
}

// String implements fmt.Stringer.
func (c ProductCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ProductCategory.
func (c ProductCategory) IsValid() bool {
	for _, candidate := range validProductCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseProductCategory converts raw input into a ProductCategory. Matching
// ignores case so "vegetable" and "Vegetable" are equivalent.
func ParseProductCategory(value string) (ProductCategory, error) {
	trimmed := strings.TrimSpace(value)
	for _, candidate := range validProductCategories {
		if strings.EqualFold(string(candidate), trimmed) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product category %q", value)
}
