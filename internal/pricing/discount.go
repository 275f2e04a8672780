package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/canteen-promo-service/internal/models"
)

// LineDiscount is the part of a discount attributed to one cart line.
type LineDiscount struct {
	ProductID  string
	Discounted decimal.Decimal
}

// Result is the outcome of applying a discount spec to applicable lines.
type Result struct {
	Discount decimal.Decimal
	Lines    []LineDiscount
}

var hundred = decimal.NewFromInt(100)

// Calculate applies spec to lines, which must already be filtered to the
// promotion's scope. ok is false when lines is empty.
//
// Every produced amount is rounded to cents; sums of rounded shares are not
// re-rounded.
func Calculate(spec models.DiscountSpec, lines []models.CartLine) (res Result, ok bool) {
	if len(lines) == 0 {
		return Result{}, false
	}

	switch s := spec.(type) {
	case models.Percentage:
		res = percentage(s, lines)
	case models.Fixed:
		res = fixed(s, lines)
	case models.Bogo:
		res = bogo(lines)
	case models.Free:
		res = free(lines)
	default:
		panic(fmt.Sprintf("pricing: unhandled discount spec %T", spec))
	}
	return res, true
}

func percentage(s models.Percentage, lines []models.CartLine) Result {
	res := Result{Discount: decimal.Zero, Lines: make([]LineDiscount, 0, len(lines))}
	for _, l := range lines {
		share := capToLine(Round2(l.Subtotal().Mul(s.Percent).Div(hundred)), l)
		res.Discount = res.Discount.Add(share)
		res.Lines = append(res.Lines, LineDiscount{ProductID: l.ProductID, Discounted: share})
	}
	return res
}

func fixed(s models.Fixed, lines []models.CartLine) Result {
	weights := make([]decimal.Decimal, len(lines))
	for i, l := range lines {
		weights[i] = l.Subtotal()
	}
	// Truncating the subtotal keeps the rounded cap from exceeding it.
	limit := decimal.Min(Round2(s.Amount), models.CartSubtotal(lines).Truncate(2))

	shares := Allocate(limit, weights)
	res := Result{Discount: decimal.Zero, Lines: make([]LineDiscount, 0, len(lines))}
	for i, l := range lines {
		res.Discount = res.Discount.Add(shares[i])
		res.Lines = append(res.Lines, LineDiscount{ProductID: l.ProductID, Discounted: shares[i]})
	}
	return res
}

func bogo(lines []models.CartLine) Result {
	res := Result{Discount: decimal.Zero, Lines: make([]LineDiscount, 0, len(lines))}
	for _, l := range lines {
		freeUnits := decimal.NewFromInt(int64(l.Quantity / 2))
		share := capToLine(Round2(freeUnits.Mul(l.UnitPrice)), l)
		res.Discount = res.Discount.Add(share)
		res.Lines = append(res.Lines, LineDiscount{ProductID: l.ProductID, Discounted: share})
	}
	return res
}

// free discounts one unit of the cheapest line; ties go to the first line.
func free(lines []models.CartLine) Result {
	cheapest := lines[0]
	for _, l := range lines[1:] {
		if l.UnitPrice.LessThan(cheapest.UnitPrice) {
			cheapest = l
		}
	}
	d := capToLine(Round2(cheapest.UnitPrice), cheapest)
	return Result{
		Discount: d,
		Lines:    []LineDiscount{{ProductID: cheapest.ProductID, Discounted: d}},
	}
}

// capToLine keeps a rounded share within the whole cents of its line, so
// rounding up a sub-cent price cannot discount more than the line costs.
func capToLine(share decimal.Decimal, l models.CartLine) decimal.Decimal {
	return decimal.Min(share, l.Subtotal().Truncate(2))
}
