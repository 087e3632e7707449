package model

import (
	"time"

	"github.com/google/uuid"
)

// Stock movement types. Quantity is signed: positive = entry, negative = exit.
const (
	MovementSale                = "sale"
	MovementSaleReversal        = "sale_reversal"
	MovementAcquisition         = "acquisition"
	MovementAcquisitionReversal = "acquisition_reversal"
	MovementRepair              = "repair"
	MovementManual              = "manual"
)

// StockMovement records every change to a product's stock counter. Besides
// being the audit trail, it is the ledger the integrity checker sums to
// reconstruct the expected counter for non-serialized products.
type StockMovement struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Type        string    `gorm:"not null"`
	Quantity    int       `gorm:"not null"`
	StockBefore int       `gorm:"not null"`
	StockAfter  int       `gorm:"not null"`
	Reason      string
	ReferenceID *uuid.UUID `gorm:"type:uuid"`
	CreatedAt   time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}
