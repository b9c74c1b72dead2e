package auth

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/farmmarket-backend/internal/users"
	"github.com/angelmondragon/farmmarket-backend/pkg/db"
	"github.com/angelmondragon/farmmarket-backend/pkg/db/models"
	"github.com/angelmondragon/farmmarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/farmmarket-backend/pkg/errors"
	"github.com/angelmondragon/farmmarket-backend/pkg/geo"
	"github.com/angelmondragon/farmmarket-backend/pkg/security"
	"github.com/angelmondragon/farmmarket-backend/pkg/validation"
)

// Register creates a buyer or farmer account. Buyers are approved at once and
// receive tokens; farmers wait for an admin.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	req.normalize()
	if err := req.validate(); err != nil {
		return nil, err
	}

	user := &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Role:     req.Role,
		Approved: req.Role.ApprovedOnCreate(),
	}
	switch req.Role {
	case enums.UserRoleFarmer:
		point := geo.NewPoint(*req.Latitude, *req.Longitude)
		if !point.Valid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "latitude or longitude out of range")
		}
		if !s.region.Contains(point) {
			return nil, regionRestricted(s.region)
		}
		lat, lng := point.Lat, point.Lng
		user.FarmerProfile = &models.FarmerProfile{
			Phone:     req.Phone,
			FarmName:  optional(req.FarmName),
			Address:   optional(req.Address),
			Latitude:  &lat,
			Longitude: &lng,
		}
	case enums.UserRoleBuyer:
		user.BuyerProfile = &models.BuyerProfile{
			Phone:   req.Phone,
			Address: req.Address,
			City:    req.City,
			Pincode: req.Pincode,
		}
	}

	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check user email")
	}

	hash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	user.PasswordHash = hash

	if err := s.users.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}

	if s.logg != nil {
		logCtx := s.logg.WithUserID(ctx, user.ID.String())
		logCtx = s.logg.WithActorRole(logCtx, string(user.Role))
		s.logg.Info(logCtx, "user registered")
	}

	resp := &AuthResponse{User: users.FromModel(user)}
	if !user.Approved {
		return resp, nil
	}
	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	resp.AccessToken = pair.AccessToken
	resp.RefreshToken = pair.RefreshToken
	return resp, nil
}

func (r *RegisterRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Role = enums.UserRole(strings.ToLower(strings.TrimSpace(string(r.Role))))
	r.Phone = strings.TrimSpace(r.Phone)
	r.Address = strings.TrimSpace(r.Address)
	r.City = strings.TrimSpace(r.City)
	r.Pincode = strings.TrimSpace(r.Pincode)
	r.FarmName = strings.TrimSpace(r.FarmName)
}

// validate runs the DTO tags, then the rules that depend on the role.
func (r RegisterRequest) validate() error {
	fields, err := validation.Fields(r)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid registration")
	}
	if fields == nil {
		fields = map[string]string{}
	}
	need := func(field string, missing bool) {
		if _, failed := fields[field]; !failed && missing {
			fields[field] = "is required"
		}
	}

	switch r.Role {
	case enums.UserRoleBuyer:
		need("address", r.Address == "")
		need("city", r.City == "")
		need("pincode", r.Pincode == "")
	case enums.UserRoleFarmer:
		need("latitude", r.Latitude == nil)
		need("longitude", r.Longitude == nil)
	}

	if len(fields) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid registration").WithDetails(fields)
	}
	return nil
}

func regionRestricted(region geo.Region) error {
	return pkgerrors.New(pkgerrors.CodeRegionRestricted, "service only available in "+region.DisplayName()).
		WithDetails(map[string]any{"region": region.DisplayName()})
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
