package quote

import (
	"github.com/quotedesk/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// excessiveDiscountRatio is the fraction of the base price below which a
// unit price is considered an excessive discount. Equality to the
// threshold is not excessive.
var excessiveDiscountRatio = decimal.RequireFromString("0.9")

// percentDivisor converts a percentage tax rate into a fraction.
var percentDivisor = decimal.NewFromInt(100)

// ItemDerived holds the derived fields of a quote item.
type ItemDerived struct {
	Total                decimal.Decimal
	HasExcessiveDiscount bool
}

// ComputeItemDerived derives the line total and the excessive-discount flag
// for a single item. It must run whenever an item is created or its
// quantity, unit price, or base price changes.
func ComputeItemDerived(quantity, unitPrice, basePrice decimal.Decimal) (ItemDerived, error) {
	if quantity.IsNegative() {
		return ItemDerived{}, shared.NewValidationError("Quantity cannot be negative")
	}
	if unitPrice.IsNegative() {
		return ItemDerived{}, shared.NewValidationError("Unit price cannot be negative")
	}
	if basePrice.IsNegative() {
		return ItemDerived{}, shared.NewValidationError("Base price cannot be negative")
	}

	return ItemDerived{
		Total:                quantity.Mul(unitPrice),
		HasExcessiveDiscount: unitPrice.LessThan(basePrice.Mul(excessiveDiscountRatio)),
	}, nil
}

// Financials is the wholly derived financial aggregate of a quote.
// It is never independently settable; only recomputed from the items,
// tax rate, and fees that produced it.
type Financials struct {
	Subtotal  decimal.Decimal
	TaxRate   decimal.Decimal
	TaxAmount decimal.Decimal
	Fees      decimal.Decimal
	Total     decimal.Decimal
}

// ComputeFinancials derives the quote-level financial totals from the item
// set. Pure and deterministic: subtotal is the sum of item totals, tax is
// subtotal * taxRate / 100, and the grand total adds fees. Full decimal
// precision is kept; rounding happens only at presentation boundaries.
func ComputeFinancials(items []QuoteItem, taxRate, fees decimal.Decimal) (Financials, error) {
	if taxRate.IsNegative() {
		return Financials{}, shared.NewValidationError("Tax rate cannot be negative")
	}
	if fees.IsNegative() {
		return Financials{}, shared.NewValidationError("Fees cannot be negative")
	}

	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Total)
	}

	taxAmount := subtotal.Mul(taxRate).Div(percentDivisor)

	return Financials{
		Subtotal:  subtotal,
		TaxRate:   taxRate,
		TaxAmount: taxAmount,
		Fees:      fees,
		Total:     subtotal.Add(taxAmount).Add(fees),
	}, nil
}
