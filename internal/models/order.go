package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderLine is a persisted line of an order session. TotalAmount is the
// line subtotal written at order placement; the remaining fields are
// written once by session finalization.
type OrderLine struct {
	ID          string
	UserID      string
	CanteenID   string
	SessionTs   int64
	ProductID   string
	ItemName    string
	Quantity    int
	UnitPrice   decimal.Decimal
	TotalAmount decimal.Decimal

	PromoCode       *string
	PromoDiscount   decimal.Decimal
	LineDiscount    decimal.Decimal
	LineTotal       decimal.Decimal
	SessionSubtotal decimal.Decimal
	SessionTotal    decimal.Decimal
	FinalizedAt     *time.Time

	CreatedAt time.Time
}

func (l OrderLine) CartLine() CartLine {
	return CartLine{ProductID: l.ProductID, Quantity: l.Quantity, UnitPrice: l.UnitPrice}
}

// LineUpdate holds the fields finalization writes to one order line.
type LineUpdate struct {
	PromoCode       *string
	PromoDiscount   decimal.Decimal
	LineDiscount    decimal.Decimal
	LineTotal       decimal.Decimal
	SessionSubtotal decimal.Decimal
	SessionTotal    decimal.Decimal
}
