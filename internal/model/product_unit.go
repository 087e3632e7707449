package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductUnit statuses. A unit reaches "sold" only through a sale reference
// and goes back to "pending" when the acquisition item that created it is
// removed before completion.
const (
	UnitStatusPending   = "pending"
	UnitStatusAvailable = "available"
	UnitStatusSold      = "sold"
	UnitStatusReturned  = "returned"
)

// ProductUnit is one physical serialized item. The serial is unique within
// its product, which is what makes acquisition re-processing idempotent.
type ProductUnit struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_units_product_serial"`
	Serial    string    `gorm:"not null;uniqueIndex:idx_units_product_serial"`
	Status    string    `gorm:"not null;default:'pending';index"`

	PurchasePrice decimal.Decimal `gorm:"type:decimal(10,2)"`
	SellPrice     decimal.Decimal `gorm:"type:decimal(10,2)"`
	MinPrice      decimal.Decimal `gorm:"type:decimal(10,2)"`
	MaxPrice      decimal.Decimal `gorm:"type:decimal(10,2)"`

	Color        *string
	Storage      *string
	RAM          *string `gorm:"column:ram"`
	BatteryLevel *int

	CreatedAt time.Time
	UpdatedAt time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}
