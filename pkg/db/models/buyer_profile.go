package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/farmmarket-backend/pkg/geo"
)

// BuyerProfile holds delivery details and the last known GPS fix.
type BuyerProfile struct {
	ID                uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID            uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Phone             string     `gorm:"column:phone;not null"`
	Address           string     `gorm:"column:address;not null"`
	City              string     `gorm:"column:city;not null"`
	Pincode           string     `gorm:"column:pincode;not null"`
	Latitude          *float64   `gorm:"column:latitude"`
	Longitude         *float64   `gorm:"column:longitude"`
	LocationUpdatedAt *time.Time `gorm:"column:location_updated_at"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// Location returns the last known buyer coordinates when both are recorded.
func (b *BuyerProfile) Location() (geo.Point, bool) {
	if b == nil || b.Latitude == nil || b.Longitude == nil {
		return geo.Point{}, false
	}
	return geo.NewPoint(*b.Latitude, *b.Longitude), true
}
