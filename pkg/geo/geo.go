// Package geo provides great-circle distance and service-region checks over
// plain decimal-degree coordinates.
package geo

import (
	"fmt"
	"math"
)

// EarthRadiusKm is the mean Earth radius used by Distance.
const EarthRadiusKm = 6371.0

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// NewPoint builds a Point from a latitude/longitude pair.
func NewPoint(lat, lng float64) Point {
	return Point{Lat: lat, Lng: lng}
}

// Valid reports whether the point lies in the legal lat/lng ranges.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

func (p Point) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", p.Lat, p.Lng)
}

// Distance returns the Haversine distance between a and b in kilometres.
// Out-of-range inputs yield a number but not a meaningful one.
func Distance(a, b Point) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

// WithinRadius reports whether p is at most radiusKm from origin. The
// boundary is inclusive.
func WithinRadius(origin, p Point, radiusKm float64) bool {
	return Distance(origin, p) <= radiusKm
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Region is an axis-aligned lat/lng bounding box. It approximates an
// administrative boundary and will admit some points just outside it.
type Region struct {
	Name   string
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// DefaultRegion roughly covers Maharashtra.
var DefaultRegion = Region{
	Name:   "Maharashtra",
	MinLat: 15.6,
	MaxLat: 22.0,
	MinLng: 72.6,
	MaxLng: 80.9,
}

// Contains reports whether p lies inside the box, edges included.
func (r Region) Contains(p Point) bool {
	return p.Lat >= r.MinLat && p.Lat <= r.MaxLat && p.Lng >= r.MinLng && p.Lng <= r.MaxLng
}

// Validate rejects inverted or out-of-range bounds.
func (r Region) Validate() error {
	if r.MinLat > r.MaxLat {
		return fmt.Errorf("region %q: min lat %v exceeds max lat %v", r.Name, r.MinLat, r.MaxLat)
	}
	if r.MinLng > r.MaxLng {
		return fmt.Errorf("region %q: min lng %v exceeds max lng %v", r.Name, r.MinLng, r.MaxLng)
	}
	if !NewPoint(r.MinLat, r.MinLng).Valid() || !NewPoint(r.MaxLat, r.MaxLng).Valid() {
		return fmt.Errorf("region %q: bounds outside coordinate range", r.Name)
	}
	return nil
}

// DisplayName returns the region name, or a generic label when unset.
func (r Region) DisplayName() string {
	if r.Name == "" {
		return "the service region"
	}
	return r.Name
}
