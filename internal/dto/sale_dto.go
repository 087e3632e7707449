package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// SaleLineRequest is one line of POST /v1/sales. Serial is required for
// serialized products; Quantity is forced to 1 for them regardless of input.
type SaleLineRequest struct {
	ProductID string           `json:"product_id" validate:"required,uuid"`
	Serial    *string          `json:"serial"     validate:"omitempty,min=1"`
	Quantity  int              `json:"quantity"   validate:"required,min=1"`
	UnitPrice *decimal.Decimal `json:"unit_price"` // nil = product base price
}

// DiscountSpec mirrors the discount configuration of the sale form.
// Percentage discounts apply to the pre-tax subtotal; amount discounts apply
// to the VAT-inclusive total.
type DiscountSpec struct {
	Type  string          `json:"type"  validate:"required,oneof=percentage amount"`
	Value decimal.Decimal `json:"value" validate:"required"`
}

// PaymentSplit carries the hybrid payment breakdown. The three parts must sum
// to the computed total within a 0.01 tolerance.
type PaymentSplit struct {
	Cash         decimal.Decimal `json:"cash"`
	Card         decimal.Decimal `json:"card"`
	BankTransfer decimal.Decimal `json:"bank_transfer"`
}

type CommitSaleRequest struct {
	ClientID      *string           `json:"client_id"      validate:"omitempty,uuid"`
	PaymentMethod string            `json:"payment_method" validate:"required,oneof=cash card bank_transfer hybrid"`
	VATIncluded   bool              `json:"vat_included"`
	Discount      *DiscountSpec     `json:"discount"       validate:"omitempty"`
	Split         *PaymentSplit     `json:"split"          validate:"omitempty"`
	Items         []SaleLineRequest `json:"items"          validate:"required,min=1,dive"`
}

// UpdateSaleItemRequest edits a line of a still-open sale. The sold-unit
// projection is re-derived from the updated row.
type UpdateSaleItemRequest struct {
	Serial    *string          `json:"serial"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SaleLineResponse struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Product   string          `json:"product"`
	Serial    *string         `json:"serial,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type SaleResponse struct {
	ID             string             `json:"id"`
	Number         int                `json:"number"`
	Items          []SaleLineResponse `json:"items"`
	Subtotal       decimal.Decimal    `json:"subtotal"`
	DiscountAmount decimal.Decimal    `json:"discount_amount"`
	TaxAmount      decimal.Decimal    `json:"tax_amount"`
	Total          decimal.Decimal    `json:"total"`
	Status         string             `json:"status"`
	CreatedAt      string             `json:"created_at"`
}
