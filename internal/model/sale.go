package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	SaleStatusOpen      = "open"      // committed, still editable
	SaleStatusCompleted = "completed" // finalized — items and projections frozen
	SaleStatusCancelled = "cancelled"
)

const (
	PaymentCash         = "cash"
	PaymentCard         = "card"
	PaymentBankTransfer = "bank_transfer"
	PaymentHybrid       = "hybrid"
)

const (
	DiscountTypePercentage = "percentage"
	DiscountTypeAmount     = "amount"
)

// Sale persists a committed sale together with the financial summary computed
// by the ledger calculator at commit time. The split columns are meaningful
// only for hybrid payments.
type Sale struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Number   int       `gorm:"uniqueIndex;not null"`
	ClientID *uuid.UUID `gorm:"type:uuid;index"`

	PaymentMethod string `gorm:"not null;default:'cash'"`
	VATIncluded   bool   `gorm:"not null;default:true"`
	DiscountType  *string
	DiscountValue decimal.Decimal `gorm:"type:decimal(10,2)"`

	CashAmount         decimal.Decimal `gorm:"type:decimal(10,2)"`
	CardAmount         decimal.Decimal `gorm:"type:decimal(10,2)"`
	BankTransferAmount decimal.Decimal `gorm:"type:decimal(10,2)"`

	Subtotal       decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Total          decimal.Decimal `gorm:"type:decimal(10,2);not null"`

	Status    string `gorm:"not null;default:'open';index"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Items []SaleItem `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
}

// SaleItem is one sale line. Serialized lines carry UnitID+Serial and always
// have Quantity 1. NeedsReview marks lines the auto-repair engine flagged as
// having an unresolvable unit reference; flagged lines are excluded from the
// invalid-serial scan so repeated repairs stay idempotent.
type SaleItem struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SaleID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID  `gorm:"type:uuid;not null;index"`
	UnitID    *uuid.UUID `gorm:"type:uuid;index"`
	Serial    *string

	Quantity  int             `gorm:"not null;default:1"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(10,2);not null"`

	NeedsReview bool `gorm:"not null;default:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Sale    *Sale    `gorm:"foreignKey:SaleID"`
	Product *Product `gorm:"foreignKey:ProductID"`
}
