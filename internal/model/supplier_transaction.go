package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TransactionTypePurchase = "purchase"
	TransactionTypeReturn   = "return"
)

const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusCancelled = "cancelled"
)

// SupplierTransaction is a supplier acquisition (or return). Only completed
// purchase transactions drive inventory synchronization.
type SupplierTransaction struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SupplierID uuid.UUID `gorm:"type:uuid;not null;index"`
	Type       string    `gorm:"not null;default:'purchase'"`
	Status     string    `gorm:"not null;default:'pending';index"`
	Note       *string
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Items []SupplierTransactionItem `gorm:"foreignKey:TransactionID;constraint:OnDelete:CASCADE"`
}

// UnitEntry is a per-unit override carried on an acquisition line: pricing and
// physical attributes keyed by serial number. Entry pricing always wins over
// the line's flat unit cost.
type UnitEntry struct {
	Serial       string           `json:"serial"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	MinPrice     *decimal.Decimal `json:"min_price,omitempty"`
	MaxPrice     *decimal.Decimal `json:"max_price,omitempty"`
	Color        *string          `json:"color,omitempty"`
	Storage      *string          `json:"storage,omitempty"`
	RAM          *string          `json:"ram,omitempty"`
	BatteryLevel *int             `json:"battery_level,omitempty"`
}

// UnitEntryList is stored as a JSON column on the acquisition item.
type UnitEntryList []UnitEntry

// UUIDList records the identifiers of units already created from an item so
// that re-processing updates instead of duplicating.
type UUIDList []uuid.UUID

// SupplierTransactionItem is one acquisition line. Quantity drives the stock
// counter; UnitEntries drive serialized unit creation; CreatedUnitIDs is the
// write-back that keeps re-processing idempotent.
type SupplierTransactionItem struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TransactionID uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductID     uuid.UUID `gorm:"type:uuid;not null;index"`

	Quantity int             `gorm:"not null"`
	UnitCost decimal.Decimal `gorm:"type:decimal(10,2);not null"`

	UnitEntries    UnitEntryList `gorm:"serializer:json"`
	CreatedUnitIDs UUIDList      `gorm:"serializer:json"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Transaction *SupplierTransaction `gorm:"foreignKey:TransactionID"`
	Product     *Product             `gorm:"foreignKey:ProductID"`
}
