package geo

import (
	"math"
	"testing"
)

// kmPerDegreeLat is the length of one degree along a meridian for EarthRadiusKm.
var kmPerDegreeLat = EarthRadiusKm * math.Pi / 180

func northOf(origin Point, km float64) Point {
	return Point{Lat: origin.Lat + km/kmPerDegreeLat, Lng: origin.Lng}
}

func TestDistanceSymmetric(t *testing.T) {
	pairs := [][2]Point{
		{NewPoint(19.0760, 72.8777), NewPoint(19.0820, 72.8850)},
		{NewPoint(18.5204, 73.8567), NewPoint(21.1458, 79.0882)},
		{NewPoint(-33.8688, 151.2093), NewPoint(51.5074, -0.1278)},
		{NewPoint(0, 179.9), NewPoint(0, -179.9)},
	}
	for _, pair := range pairs {
		ab := Distance(pair[0], pair[1])
		ba := Distance(pair[1], pair[0])
		if math.Abs(ab-ba) > 1e-9 {
			t.Fatalf("distance not symmetric for %v/%v: %v vs %v", pair[0], pair[1], ab, ba)
		}
	}
}

func TestDistanceZeroForSamePoint(t *testing.T) {
	p := NewPoint(19.0760, 72.8777)
	if d := Distance(p, p); d != 0 {
		t.Fatalf("expected zero distance, got %v", d)
	}
}

func TestDistanceMonotonic(t *testing.T) {
	origin := NewPoint(19.0, 73.0)
	prev := 0.0
	for _, km := range []float64{0.5, 1, 5, 10, 50, 200} {
		d := Distance(origin, northOf(origin, km))
		if d <= prev {
			t.Fatalf("expected distance to grow with separation, %v <= %v", d, prev)
		}
		if math.Abs(d-km) > 1e-6 {
			t.Fatalf("expected %vkm along meridian, got %v", km, d)
		}
		prev = d
	}
}

func TestDistanceKnownPair(t *testing.T) {
	buyer := NewPoint(19.0760, 72.8777)
	farmerA := NewPoint(19.0820, 72.8850)
	farmerB := NewPoint(19.3000, 73.2000)

	if d := Distance(buyer, farmerA); d < 0.5 || d > 1.5 {
		t.Fatalf("expected farmer A about 1km away, got %v", d)
	}
	if d := Distance(buyer, farmerB); d < 30 {
		t.Fatalf("expected farmer B well beyond 10km, got %v", d)
	}
}

func TestWithinRadiusBoundary(t *testing.T) {
	origin := NewPoint(19.0, 73.0)

	if !WithinRadius(origin, northOf(origin, 9.999), 10) {
		t.Fatal("expected 9.999km to be inside a 10km radius")
	}
	if WithinRadius(origin, northOf(origin, 10.001), 10) {
		t.Fatal("expected 10.001km to be outside a 10km radius")
	}
	if !WithinRadius(origin, origin, 0) {
		t.Fatal("expected origin to be inside a zero radius")
	}
}

func TestRegionContainsEdges(t *testing.T) {
	r := DefaultRegion
	inside := []Point{
		{Lat: r.MinLat, Lng: 75},
		{Lat: r.MaxLat, Lng: 75},
		{Lat: 18, Lng: r.MinLng},
		{Lat: 18, Lng: r.MaxLng},
		{Lat: r.MinLat, Lng: r.MinLng},
		{Lat: r.MaxLat, Lng: r.MaxLng},
	}
	for _, p := range inside {
		if !r.Contains(p) {
			t.Fatalf("expected edge point %v inside", p)
		}
	}

	outside := []Point{
		{Lat: r.MinLat - 0.01, Lng: 75},
		{Lat: r.MaxLat + 0.01, Lng: 75},
		{Lat: 18, Lng: r.MinLng - 0.01},
		{Lat: 18, Lng: r.MaxLng + 0.01},
	}
	for _, p := range outside {
		if r.Contains(p) {
			t.Fatalf("expected %v outside", p)
		}
	}
}

func TestRegionValidate(t *testing.T) {
	if err := DefaultRegion.Validate(); err != nil {
		t.Fatalf("default region should validate: %v", err)
	}
	inverted := Region{Name: "bad", MinLat: 20, MaxLat: 10, MinLng: 70, MaxLng: 80}
	if err := inverted.Validate(); err == nil {
		t.Fatal("expected inverted region to fail validation")
	}
	if (Region{}).DisplayName() == "" {
		t.Fatal("expected a fallback display name")
	}
}

func TestPointValid(t *testing.T) {
	if !NewPoint(19, 73).Valid() {
		t.Fatal("expected valid point")
	}
	for _, p := range []Point{{Lat: 91, Lng: 0}, {Lat: 0, Lng: -181}, {Lat: math.NaN(), Lng: 0}} {
		if p.Valid() {
			t.Fatalf("expected %v invalid", p)
		}
	}
}
