package pricing

import (
	"time"

	"github.com/Cheertaboi/canteen-promo-service/internal/models"
)

const seniorAge = 60

// Evaluate runs the eligibility checks in their fixed priority order and
// returns the first failing reason, or ReasonNone.
//
// Only the lifecycle part of the stored status is trusted. Whether the
// promotion has started or ended is always derived from its dates.
func Evaluate(p *models.Promotion, now time.Time, c models.Customer, cart []models.CartLine) models.Reason {
	if p == nil || p.Status == models.StatusPendingApproval || p.Status == models.StatusRejected {
		return models.ReasonNotFound
	}
	if p.Status == models.StatusPaused {
		return models.ReasonPaused
	}
	if now.Before(p.StartDate) {
		return models.ReasonNotStarted
	}
	if now.After(p.EndDate) || p.Status == models.StatusEnded {
		return models.ReasonExpired
	}
	if p.CapReached() {
		return models.ReasonMaxRedemptionsReached
	}
	if !PassesTarget(p.Target, c) {
		return models.ReasonNotEligibleTarget
	}
	if models.CartSubtotal(cart).LessThan(p.MinPurchase) {
		return models.ReasonMinPurchase
	}
	if len(ApplicableLines(p, cart)) == 0 {
		return models.ReasonNoMatchingProducts
	}
	return models.ReasonNone
}

// PassesTarget tests a customer against a target audience. Unknown targets
// never pass.
func PassesTarget(t models.Target, c models.Customer) bool {
	switch t {
	case models.TargetAll:
		return true
	case models.TargetNew:
		return c.IsNew || c.OrderCount == 0
	case models.TargetLoyalty:
		return c.IsLoyalty
	case models.TargetStudents:
		return c.IsStudent
	case models.TargetSeniors:
		return c.Age >= seniorAge
	}
	return false
}

// ApplicableLines returns the cart lines within the promotion's product
// scope, preserving input order.
func ApplicableLines(p *models.Promotion, cart []models.CartLine) []models.CartLine {
	if !p.Scoped() {
		return cart
	}
	out := make([]models.CartLine, 0, len(cart))
	for _, l := range cart {
		if p.AppliesTo(l.ProductID) {
			out = append(out, l)
		}
	}
	return out
}
