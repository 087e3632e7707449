package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry. For serialized products (HasSerial=true) the
// Stock column is a cached projection of count(units where status=available);
// the units are the source of truth and the integrity checker reconciles the
// two. For bulk products Stock is the authoritative counter.
type Product struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Brand     string    `gorm:"not null"`
	Model     string    `gorm:"index;not null"`
	HasSerial bool      `gorm:"not null;default:false"`
	Stock     int       `gorm:"not null;default:0"`
	BasePrice decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	MinPrice  decimal.Decimal `gorm:"type:decimal(10,2)"`
	MaxPrice  decimal.Decimal `gorm:"type:decimal(10,2)"`
	SupplierID *uuid.UUID     `gorm:"type:uuid;index"`
	Active    bool            `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Units []ProductUnit `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

// DisplayName is the "brand model" label used in reports and log lines.
func (p *Product) DisplayName() string { return p.Brand + " " + p.Model }
