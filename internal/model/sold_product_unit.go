package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SoldProductUnit is the append-only traceability record binding a sale line
// to the physical unit it sold. It is a projection of SaleItem state: created
// when a serialized line is committed, rewritten from the current line row if
// the serial or price changes before the sale is finalized, and deleted when
// the line is deleted or its serial cleared. Nothing else may write it.
type SoldProductUnit struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SaleID     uuid.UUID `gorm:"type:uuid;not null;index"`
	SaleItemID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	ProductID  uuid.UUID `gorm:"type:uuid;not null;index"`
	UnitID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	Serial     string    `gorm:"not null"`

	SoldPrice decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	SoldAt    time.Time       `gorm:"not null"`
	CreatedAt time.Time
}
