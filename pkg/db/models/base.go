package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ensureID assigns a v4 id when the caller left it empty. Postgres also
// defaults ids server side; sqlite does not.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (u *User) BeforeCreate(*gorm.DB) error          { ensureID(&u.ID); return nil }
func (p *Product) BeforeCreate(*gorm.DB) error       { ensureID(&p.ID); return nil }
func (o *Order) BeforeCreate(*gorm.DB) error         { ensureID(&o.ID); return nil }
func (i *OrderItem) BeforeCreate(*gorm.DB) error     { ensureID(&i.ID); return nil }
func (e *OutboxEvent) BeforeCreate(*gorm.DB) error   { ensureID(&e.ID); return nil }
func (d *OutboxDLQ) BeforeCreate(*gorm.DB) error     { ensureID(&d.ID); return nil }
func (f *FarmerProfile) BeforeCreate(*gorm.DB) error { ensureID(&f.ID); return nil }
func (b *BuyerProfile) BeforeCreate(*gorm.DB) error  { ensureID(&b.ID); return nil }

// All lists every persisted model, in dependency order. Tests use it with
// AutoMigrate against sqlite.
func All() []any {
	return []any{
		&User{},
		&FarmerProfile{},
		&BuyerProfile{},
		&Product{},
		&Order{},
		&OrderItem{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
