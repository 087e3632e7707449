package service

import (
	"fmt"

	"github.com/tipatpati/golden-phone-management-sub010/internal/dto"
	"github.com/tipatpati/golden-phone-management-sub010/internal/model"

	"github.com/shopspring/decimal"
)

// Italian standard VAT rate, fixed for every sale.
var vatRate = decimal.NewFromFloat(0.22)

// splitTolerance is the maximum accepted gap between a hybrid payment split
// and the computed total.
var splitTolerance = decimal.NewFromFloat(0.01)

// LedgerLine is one sale line as seen by the calculator: pure data, stock is
// the cached value last fetched by the composition store.
type LedgerLine struct {
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	HasSerial   bool
	CachedStock int
}

// LedgerInput is everything the totals depend on.
type LedgerInput struct {
	Lines         []LedgerLine
	VATIncluded   bool
	Discount      *dto.DiscountSpec
	PaymentMethod string
	Split         *dto.PaymentSplit
}

// Totals is the validated financial summary of a sale. Validation problems
// are data, never errors: the calculator cannot fail.
type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	IsValid        bool            `json:"is_valid"`
	Errors         []string        `json:"errors"`
}

// ComputeTotals turns sale lines plus payment/discount configuration into a
// financial summary. Two deliberate business rules live here:
//
//   - percentage discounts apply to the pre-tax subtotal and VAT is recomputed
//     on the discounted base;
//   - amount discounts apply to the VAT-inclusive total and leave the
//     displayed subtotal/tax untouched.
func ComputeTotals(in LedgerInput) Totals {
	var errs []string

	itemsTotal := decimal.Zero
	for i, line := range in.Lines {
		if line.Quantity < 1 {
			errs = append(errs, fmt.Sprintf("item %d: quantity must be at least 1", i+1))
			continue
		}
		if line.UnitPrice.IsNegative() {
			errs = append(errs, fmt.Sprintf("item %d: unit price cannot be negative", i+1))
			continue
		}
		if !line.HasSerial && line.Quantity > line.CachedStock {
			errs = append(errs, fmt.Sprintf("%s: quantity %d exceeds available stock %d",
				line.Description, line.Quantity, line.CachedStock))
		}
		itemsTotal = itemsTotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	if len(in.Lines) == 0 {
		errs = append(errs, "sale must contain at least one item")
	}

	// VAT split of the raw items total.
	var baseSubtotal, tax, preDiscountTotal decimal.Decimal
	if in.VATIncluded {
		baseSubtotal = itemsTotal.Div(decimal.NewFromInt(1).Add(vatRate)).Round(2)
		tax = baseSubtotal.Mul(vatRate).Round(2)
		preDiscountTotal = itemsTotal
	} else {
		baseSubtotal = itemsTotal
		tax = baseSubtotal.Mul(vatRate).Round(2)
		preDiscountTotal = baseSubtotal.Add(tax)
	}

	subtotal := baseSubtotal
	discountAmount := decimal.Zero
	total := preDiscountTotal

	if in.Discount != nil {
		switch in.Discount.Type {
		case model.DiscountTypePercentage:
			pct := in.Discount.Value
			if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
				errs = append(errs, "percentage discount must be between 0 and 100")
				break
			}
			discountAmount = baseSubtotal.Mul(pct).Div(decimal.NewFromInt(100)).Round(2)
			discounted := baseSubtotal.Sub(discountAmount)
			tax = discounted.Mul(vatRate).Round(2)
			total = discounted.Add(tax)
		case model.DiscountTypeAmount:
			amount := in.Discount.Value
			if amount.IsNegative() {
				errs = append(errs, "amount discount cannot be negative")
				break
			}
			if amount.GreaterThan(preDiscountTotal) {
				errs = append(errs, "discount exceeds sale total")
			}
			discountAmount = decimal.Min(amount, preDiscountTotal)
			total = preDiscountTotal.Sub(discountAmount)
		default:
			errs = append(errs, fmt.Sprintf("unknown discount type %q", in.Discount.Type))
		}
	}

	if in.PaymentMethod == model.PaymentHybrid {
		if in.Split == nil {
			errs = append(errs, "hybrid payment requires a cash/card/bank split")
		} else {
			paid := in.Split.Cash.Add(in.Split.Card).Add(in.Split.BankTransfer)
			if paid.Sub(total).Abs().GreaterThan(splitTolerance) {
				errs = append(errs, fmt.Sprintf("hybrid payment split %s does not match total %s",
					paid.StringFixed(2), total.StringFixed(2)))
			}
		}
	}

	return Totals{
		Subtotal:       subtotal.Round(2),
		DiscountAmount: discountAmount.Round(2),
		TaxAmount:      tax.Round(2),
		TotalAmount:    total.Round(2),
		IsValid:        len(errs) == 0,
		Errors:         errs,
	}
}
