package models

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPendingApproval Status = "pending_approval"
	StatusScheduled       Status = "scheduled"
	StatusActive          Status = "active"
	StatusPaused          Status = "paused"
	StatusEnded           Status = "ended"
	StatusRejected        Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPendingApproval, StatusScheduled, StatusActive, StatusPaused, StatusEnded, StatusRejected:
		return true
	}
	return false
}

type Target string

const (
	TargetAll      Target = "all"
	TargetNew      Target = "new"
	TargetLoyalty  Target = "loyalty"
	TargetStudents Target = "students"
	TargetSeniors  Target = "seniors"
)

func (t Target) Valid() bool {
	switch t {
	case TargetAll, TargetNew, TargetLoyalty, TargetStudents, TargetSeniors:
		return true
	}
	return false
}

// Promotion is a canteen-scoped promo code together with its discount rule,
// eligibility gates and lifecycle state.
type Promotion struct {
	ID              string
	Code            string
	Name            string
	Description     string
	TermsConditions string

	CanteenID  string
	ProductIDs []string

	StartDate time.Time
	EndDate   time.Time

	Discount DiscountSpec

	Target         Target
	MinPurchase    decimal.Decimal
	MaxRedemptions int
	Redemptions    int

	Status       Status
	CreatedBy    string
	ApprovedBy   string
	ApprovedAt   *time.Time
	ApprovalNote string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Scoped reports whether the promotion is restricted to a product list.
func (p *Promotion) Scoped() bool {
	return len(p.ProductIDs) > 0
}

// AppliesTo reports whether a product falls within the promotion's scope.
func (p *Promotion) AppliesTo(productID string) bool {
	if !p.Scoped() {
		return true
	}
	for _, id := range p.ProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}

// CapReached is true once a capped promotion has been redeemed
// maxRedemptions times.
func (p *Promotion) CapReached() bool {
	return p.MaxRedemptions > 0 && p.Redemptions >= p.MaxRedemptions
}

// WindowStatus derives scheduled/active/ended from the promotion dates.
// The window is inclusive on both ends.
func WindowStatus(now, start, end time.Time) Status {
	if now.Before(start) {
		return StatusScheduled
	}
	if now.After(end) {
		return StatusEnded
	}
	return StatusActive
}

// NormalizeCode upper-cases a promo code and strips all whitespace.
func NormalizeCode(code string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, code)
}

// PromotionFilter selects a page of promotions. Zero fields match all.
type PromotionFilter struct {
	CanteenID string
	Status    Status
	// Query matches name or description, case-insensitively.
	Query string
	Page      int
	Limit     int
}

func (f PromotionFilter) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// StatusChange is a lifecycle transition. Approval fields are written only
// when Approval is set.
type StatusChange struct {
	To       Status
	At       time.Time
	Approval *Approval
}

type Approval struct {
	By   string
	At   time.Time
	Note string
}
