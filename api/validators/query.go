package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/angelmondragon/farmmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/farmmarket-backend/pkg/errors"
	"github.com/angelmondragon/farmmarket-backend/pkg/geo"
	"github.com/angelmondragon/farmmarket-backend/pkg/pagination"
)

func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

// ParseQueryPoint reads lat and lng from the query string. Both must be given
// together; a request with neither yields nil.
func ParseQueryPoint(r *http.Request) (*geo.Point, error) {
	rawLat := strings.TrimSpace(r.URL.Query().Get("lat"))
	rawLng := strings.TrimSpace(r.URL.Query().Get("lng"))
	if rawLat == "" && rawLng == "" {
		return nil, nil
	}
	if rawLat == "" || rawLng == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lat and lng must be provided together").WithDetails(map[string]any{"field": "lat,lng"})
	}
	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": "lat"})
	}
	lng, err := strconv.ParseFloat(rawLng, 64)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": "lng"})
	}
	point := geo.NewPoint(lat, lng)
	if !point.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid coordinates").WithDetails(map[string]any{"field": "lat,lng"})
	}
	return &point, nil
}

// ParseQueryCategory reads an optional category filter.
func ParseQueryCategory(r *http.Request) (*enums.ProductCategory, error) {
	raw := SanitizeString(r.URL.Query().Get("category"), 32)
	if raw == "" {
		return nil, nil
	}
	category, err := enums.ParseProductCategory(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category").WithDetails(map[string]any{"field": "category"})
	}
	return &category, nil
}

// ParsePagination reads limit and cursor for cursor-paginated listings.
func ParsePagination(r *http.Request) (pagination.Params, error) {
	limit, err := ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}
