// Package pricing computes customer-facing prices from a product base
// price and the customer's active subscription plan. Prices are never
// accepted from the client; every caller re-derives them here.
package pricing

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Quote is the result of pricing a single unit.
type Quote struct {
	BasePrice       decimal.Decimal
	FinalPrice      decimal.Decimal
	DiscountAmount  decimal.Decimal
	DiscountPercent decimal.Decimal
	HasDiscount     bool
	DiscountLabel   string // empty when HasDiscount is false
	PlanSlug        string
}

// QuoteWithPlan prices one unit of a product under the given plan terms.
// The caller is responsible for sourcing discountPercent from the plan row,
// never from client input. A nil-plan case is expressed with empty
// planName/planSlug and a zero percent.
//
// Rounding happens at each step (discount amount first, then final price),
// both to 2 decimals, so a single-product preview and a cart aggregation
// can never diverge.
func QuoteWithPlan(basePrice decimal.Decimal, planName, planSlug string, discountPercent decimal.Decimal) Quote {
	base := basePrice.Round(2)

	if discountPercent.LessThanOrEqual(decimal.Zero) {
		return Quote{
			BasePrice:       base,
			FinalPrice:      base,
			DiscountAmount:  decimal.Zero.Round(2),
			DiscountPercent: decimal.Zero,
			PlanSlug:        planSlug,
		}
	}

	if discountPercent.GreaterThan(hundred) {
		discountPercent = hundred
	}

	discount := base.Mul(discountPercent).Div(hundred).Round(2)
	final := base.Sub(discount).Round(2)

	return Quote{
		BasePrice:       base,
		FinalPrice:      final,
		DiscountAmount:  discount,
		DiscountPercent: discountPercent,
		HasDiscount:     true,
		DiscountLabel:   "Discount " + planName,
		PlanSlug:        planSlug,
	}
}

// NoDiscount prices one unit with no subscription in play.
func NoDiscount(basePrice decimal.Decimal) Quote {
	return QuoteWithPlan(basePrice, "", "", decimal.Zero)
}

// LineTotal prices a quantity of units, rounding the line to 2 decimals
// before it is summed into a cart or order total. Receipts reconcile
// line-by-line, so totals are sums of rounded lines, never a rounding of
// the raw sum.
func LineTotal(unit decimal.Decimal, quantity int) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}
