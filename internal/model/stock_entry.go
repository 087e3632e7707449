package model

import (
	"time"

	"github.com/google/uuid"
)

const SourceSupplierItem = "supplier_transaction_item"

// StockEntry is the synchronizer's idempotency ledger. One row per source
// (acquisition item) records the quantity already applied to the product's
// stock counter. A redelivered change event with an unchanged quantity yields
// a zero delta and is skipped; a changed quantity applies only the difference.
type StockEntry struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SourceType string    `gorm:"not null;uniqueIndex:idx_stock_entries_source"`
	SourceID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stock_entries_source"`
	ProductID  uuid.UUID `gorm:"type:uuid;not null;index"`

	AppliedQuantity int `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
