package core

import "github.com/shopspring/decimal"

// buyPremium is applied to the reference (best ask) price on the buy side to
// improve fill probability against a moving book.
var buyPremium = decimal.RequireFromString("1.01")

const (
	pricePrecision = 2
	qtyPrecision   = 2
)

// LimitPrice computes the final order price from a top-of-book reference.
// Buy pays a 1% premium; both sides truncate to 2 decimals, never round up.
func LimitPrice(side Side, ref decimal.Decimal) decimal.Decimal {
	if side == Buy {
		ref = ref.Mul(buyPremium)
	}
	return ref.Truncate(pricePrecision)
}

// OrderAmount resolves the order quantity: an explicit quantity wins,
// otherwise the free quote amount is spent at the final price. Truncated to
// 2 decimals in either case.
func OrderAmount(explicitQty, freeQuote, price decimal.Decimal) decimal.Decimal {
	if explicitQty.Cmp(decimal.Zero) > 0 {
		return explicitQty.Truncate(qtyPrecision)
	}
	if freeQuote.Cmp(decimal.Zero) > 0 && price.Cmp(decimal.Zero) > 0 {
		return freeQuote.Div(price).Truncate(qtyPrecision)
	}
	return decimal.Zero
}
