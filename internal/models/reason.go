package models

// Reason is a business-rule rejection code. An empty Reason means eligible.
type Reason string

const (
	ReasonNone                  Reason = ""
	ReasonNotFound              Reason = "NOT_FOUND"
	ReasonPaused                Reason = "PAUSED"
	ReasonNotStarted            Reason = "NOT_STARTED"
	ReasonExpired               Reason = "EXPIRED"
	ReasonMaxRedemptionsReached Reason = "MAX_REDEMPTIONS_REACHED"
	ReasonNotEligibleTarget     Reason = "NOT_ELIGIBLE_TARGET"
	ReasonMinPurchase           Reason = "MIN_PURCHASE"
	ReasonNoMatchingProducts    Reason = "NO_MATCHING_PRODUCTS"
)

func (r Reason) OK() bool { return r == ReasonNone }
