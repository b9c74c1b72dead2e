package auth

import (
	"github.com/angelmondragon/farmmarket-backend/internal/users"
	"github.com/angelmondragon/farmmarket-backend/pkg/enums"
)

// LoginRequest captures credentials plus an optional fresh GPS fix.
type LoginRequest struct {
	Email     string   `json:"email" validate:"required,email"`
	Password  string   `json:"password" validate:"required"`
	Latitude  *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
}

// RegisterRequest contains the onboarding payload for buyers and farmers.
type RegisterRequest struct {
	Name      string         `json:"name" validate:"required,min=2"`
	Email     string         `json:"email" validate:"required,email"`
	Password  string         `json:"password" validate:"required,min=6"`
	Role      enums.UserRole `json:"role" validate:"required,oneof=buyer farmer"`
	Phone     string         `json:"phone" validate:"required,phone10"`
	Address   string         `json:"address,omitempty"`
	City      string         `json:"city,omitempty"`
	Pincode   string         `json:"pincode,omitempty" validate:"omitempty,pincode6"`
	FarmName  string         `json:"farm_name,omitempty"`
	Latitude  *float64       `json:"latitude,omitempty"`
	Longitude *float64       `json:"longitude,omitempty"`
}

// RefreshRequest carries the last access token (it may be expired) and its refresh token.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenPair is a freshly minted access/refresh pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse is returned from register and login. Tokens are omitted for
// accounts that still wait for approval.
type AuthResponse struct {
	AccessToken  string         `json:"access_token,omitempty"`
	RefreshToken string         `json:"refresh_token,omitempty"`
	User         *users.UserDTO `json:"user"`
}
