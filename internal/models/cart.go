package models

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// CartLine is one product line of a cart or order session.
type CartLine struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Subtotal is quantity * unit price, unrounded.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartItem is the wire shape of a cart line.
type CartItem struct {
	ProductID string  `json:"productId"`
	Qty       float64 `json:"qty"`
	Price     float64 `json:"price"`
}

// Customer carries the segment attributes used by target-audience checks.
type Customer struct {
	IsNew      bool `json:"isNew"`
	OrderCount int  `json:"orderCount"`
	IsLoyalty  bool `json:"isLoyalty"`
	IsStudent  bool `json:"isStudent"`
	Age        int  `json:"age"`
}

// CartSubtotal sums the unrounded line subtotals.
func CartSubtotal(lines []CartLine) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Subtotal())
	}
	return sum
}

// ToCartLines validates wire items and converts them. Quantities must be
// whole numbers >= 1 and prices finite, non-negative and in whole cents.
func ToCartLines(items []CartItem) ([]CartLine, error) {
	lines := make([]CartLine, 0, len(items))
	for i, it := range items {
		field := fmt.Sprintf("items[%d]", i)
		if it.ProductID == "" {
			return nil, &ValidationError{Field: field + ".productId", Message: "required"}
		}
		if math.IsNaN(it.Qty) || math.IsInf(it.Qty, 0) || it.Qty < 1 || it.Qty != math.Trunc(it.Qty) || it.Qty > math.MaxInt32 {
			return nil, &ValidationError{Field: field + ".qty", Message: "must be a whole number >= 1"}
		}
		if err := CheckAmount(field+".price", it.Price); err != nil {
			return nil, err
		}
		price := decimal.NewFromFloat(it.Price)
		if !price.Equal(price.Truncate(2)) {
			return nil, &ValidationError{Field: field + ".price", Message: "must not have more than 2 decimal places"}
		}
		lines = append(lines, CartLine{
			ProductID: it.ProductID,
			Quantity:  int(it.Qty),
			UnitPrice: price,
		})
	}
	return lines, nil
}

// CheckAmount rejects NaN, infinities and negative values.
func CheckAmount(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return &ValidationError{Field: field, Message: "must be a finite non-negative number"}
	}
	return nil
}
