package catalog

import (
	"github.com/angelmondragon/farmmarket-backend/pkg/db/models"
	"github.com/angelmondragon/farmmarket-backend/pkg/geo"
)

// DefaultRadiusKm is the service radius around a buyer.
const DefaultRadiusKm = 10.0

// Located is anything with an optional position.
type Located interface {
	Location() (geo.Point, bool)
}

// FilterWithinRadius keeps the candidates that have a location no further than
// radiusKm from origin. Order is preserved and candidates without a location
// are dropped.
func FilterWithinRadius[T Located](candidates []T, origin geo.Point, radiusKm float64) []T {
	out := make([]T, 0, len(candidates))
	for _, c := range candidates {
		p, ok := c.Location()
		if !ok {
			continue
		}
		if geo.WithinRadius(origin, p, radiusKm) {
			out = append(out, c)
		}
	}
	return out
}

// Listing is a product together with its owning farmer, as loaded for
// catalog reads.
type Listing struct {
	Product models.Product
}

// Location is the farm location of the owning farmer.
func (l Listing) Location() (geo.Point, bool) {
	if l.Product.Farmer == nil {
		return geo.Point{}, false
	}
	return l.Product.Farmer.FarmerProfile.Location()
}
