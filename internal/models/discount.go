package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
	DiscountBogo       DiscountType = "bogo"
	DiscountFree       DiscountType = "free"
)

// DiscountSpec is the discount rule of a promotion. The set of
// implementations is closed: Percentage, Fixed, Bogo and Free.
type DiscountSpec interface {
	Type() DiscountType
	// Value is the configured amount; zero for Bogo and Free.
	Value() decimal.Decimal
	sealed()
}

// Percentage takes Percent/100 off every applicable line.
type Percentage struct{ Percent decimal.Decimal }

// Fixed takes a flat Amount off the applicable lines, capped at their subtotal.
type Fixed struct{ Amount decimal.Decimal }

// Bogo makes every second unit of each applicable line free.
type Bogo struct{}

// Free makes one unit of the cheapest applicable line free.
type Free struct{}

func (Percentage) Type() DiscountType { return DiscountPercentage }
func (Fixed) Type() DiscountType      { return DiscountFixed }
func (Bogo) Type() DiscountType       { return DiscountBogo }
func (Free) Type() DiscountType       { return DiscountFree }

func (p Percentage) Value() decimal.Decimal { return p.Percent }
func (f Fixed) Value() decimal.Decimal      { return f.Amount }
func (Bogo) Value() decimal.Decimal         { return decimal.Zero }
func (Free) Value() decimal.Decimal         { return decimal.Zero }

func (Percentage) sealed() {}
func (Fixed) sealed()      {}
func (Bogo) sealed()       {}
func (Free) sealed()       {}

var hundred = decimal.NewFromInt(100)

// NewDiscountSpec builds a spec from its stored (type, value) pair.
// The value is ignored for bogo and free.
func NewDiscountSpec(t DiscountType, value decimal.Decimal) (DiscountSpec, error) {
	switch t {
	case DiscountPercentage:
		if value.IsNegative() || value.GreaterThan(hundred) {
			return nil, &ValidationError{Field: "discountValue", Message: "percentage must be between 0 and 100"}
		}
		return Percentage{Percent: value}, nil
	case DiscountFixed:
		if value.IsNegative() {
			return nil, &ValidationError{Field: "discountValue", Message: "fixed amount must not be negative"}
		}
		return Fixed{Amount: value}, nil
	case DiscountBogo:
		return Bogo{}, nil
	case DiscountFree:
		return Free{}, nil
	}
	return nil, &ValidationError{Field: "discountType", Message: fmt.Sprintf("unknown discount type %q", t)}
}
