// Package pricing holds the pure promotion rules: eligibility evaluation,
// discount calculation and monetary rounding. Nothing here touches storage.
package pricing

import "github.com/shopspring/decimal"

// Round2 rounds to cents, half up. decimal rounds half away from zero,
// which is the same thing for the non-negative amounts used here.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Allocate splits amount across weights in proportion to each weight's share
// of the total. Every share except the last is rounded to cents; the last
// absorbs the remainder so the shares sum to amount exactly. Shares are kept
// non-negative by clamping each one to what is still unallocated. The order
// of weights is part of the result.
func Allocate(amount decimal.Decimal, weights []decimal.Decimal) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(weights))
	if len(weights) == 0 {
		return shares
	}
	total := decimal.Zero
	for _, w := range weights {
		total = total.Add(w)
	}
	if !total.IsPositive() || !amount.IsPositive() {
		for i := range shares {
			shares[i] = decimal.Zero
		}
		return shares
	}

	allocated := decimal.Zero
	last := len(weights) - 1
	for i, w := range weights[:last] {
		share := Round2(w.Mul(amount).Div(total))
		if remaining := amount.Sub(allocated); share.GreaterThan(remaining) {
			share = remaining
		}
		shares[i] = share
		allocated = allocated.Add(share)
	}
	shares[last] = amount.Sub(allocated)
	return shares
}

// NetTotal is max(0, round2(subtotal - discount)).
func NetTotal(subtotal, discount decimal.Decimal) decimal.Decimal {
	t := Round2(subtotal.Sub(discount))
	if t.IsNegative() {
		return decimal.Zero
	}
	return t
}
