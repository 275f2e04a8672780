package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/canteen-promo-service/internal/models"
)

// Quote is the priced outcome of one promotion against one cart.
type Quote struct {
	Reason   models.Reason
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	NewTotal decimal.Decimal
	Lines    []LineDiscount
}

func (q Quote) Eligible() bool { return q.Reason.OK() }

// QuoteCart evaluates p against cart and, when eligible, prices it.
// A rejected quote carries a zero discount and NewTotal equal to the
// rounded subtotal.
func QuoteCart(p *models.Promotion, now time.Time, c models.Customer, cart []models.CartLine) Quote {
	subtotal := models.CartSubtotal(cart)
	q := Quote{Subtotal: subtotal, Discount: decimal.Zero, NewTotal: NetTotal(subtotal, decimal.Zero)}

	if q.Reason = Evaluate(p, now, c, cart); !q.Reason.OK() {
		return q
	}
	res, ok := Calculate(p.Discount, ApplicableLines(p, cart))
	if !ok {
		q.Reason = models.ReasonNoMatchingProducts
		return q
	}
	q.Discount = res.Discount
	q.Lines = res.Lines
	q.NewTotal = NetTotal(subtotal, res.Discount)
	return q
}
