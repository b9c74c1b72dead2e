package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/farmmarket-backend/pkg/geo"
)

// FarmerProfile holds the listed farm location. Coordinates are checked
// against the service region once, at registration.
type FarmerProfile struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Phone     string    `gorm:"column:phone;not null"`
	FarmName  *string   `gorm:"column:farm_name"`
	Address   *string   `gorm:"column:address"`
	Latitude  *float64  `gorm:"column:latitude"`
	Longitude *float64  `gorm:"column:longitude"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Location returns the farm coordinates when both are recorded.
func (f *FarmerProfile) Location() (geo.Point, bool) {
	if f == nil || f.Latitude == nil || f.Longitude == nil {
		return geo.Point{}, false
	}
	return geo.NewPoint(*f.Latitude, *f.Longitude), true
}
