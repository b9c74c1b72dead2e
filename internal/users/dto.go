package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/farmmarket-backend/pkg/db/models"
	"github.com/angelmondragon/farmmarket-backend/pkg/enums"
)

// UserDTO is the transport shape that omits credentials.
type UserDTO struct {
	ID            uuid.UUID         `json:"id"`
	Name          string            `json:"name"`
	Email         string            `json:"email"`
	Role          enums.UserRole    `json:"role"`
	Approved      bool              `json:"approved"`
	LastLoginAt   *time.Time        `json:"last_login_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	FarmerProfile *FarmerProfileDTO `json:"farmer_profile,omitempty"`
	BuyerProfile  *BuyerProfileDTO  `json:"buyer_profile,omitempty"`
}

type FarmerProfileDTO struct {
	Phone     string   `json:"phone"`
	FarmName  *string  `json:"farm_name,omitempty"`
	Address   *string  `json:"address,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

type BuyerProfileDTO struct {
	Phone     string   `json:"phone"`
	Address   string   `json:"address"`
	City      string   `json:"city"`
	Pincode   string   `json:"pincode"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// UserPage is a cursor page of users.
type UserPage struct {
	Items  []UserDTO `json:"items"`
	Cursor string    `json:"cursor,omitempty"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	dto := &UserDTO{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Role:        u.Role,
		Approved:    u.Approved,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
	if p := u.FarmerProfile; p != nil {
		dto.FarmerProfile = &FarmerProfileDTO{
			Phone:     p.Phone,
			FarmName:  p.FarmName,
			Address:   p.Address,
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
		}
	}
	if p := u.BuyerProfile; p != nil {
		dto.BuyerProfile = &BuyerProfileDTO{
			Phone:     p.Phone,
			Address:   p.Address,
			City:      p.City,
			Pincode:   p.Pincode,
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
		}
	}
	return dto
}

// FromModels converts a slice of users.
func FromModels(rows []models.User) []UserDTO {
	out := make([]UserDTO, len(rows))
	for i := range rows {
		out[i] = *FromModel(&rows[i])
	}
	return out
}
