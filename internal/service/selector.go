package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/Cheertaboi/canteen-promo-service/internal/concurrency"
	"github.com/Cheertaboi/canteen-promo-service/internal/models"
	"github.com/Cheertaboi/canteen-promo-service/internal/pricing"
)

type ValidateResult struct {
	Valid          bool
	Reason         models.Reason
	Discount       decimal.Decimal
	NewTotal       decimal.Decimal
	Lines          []pricing.LineDiscount
	Target         models.Target
	MaxRedemptions int
	Redemptions    int
}

type BestResult struct {
	Found       bool
	PromotionID string
	Code        string
	Discount    decimal.Decimal
	NewTotal    decimal.Decimal
}

type Recommendation struct {
	PromoID     string
	Code        string
	Name        string
	Target      models.Target
	ExpiresAt   time.Time
	MinPurchase decimal.Decimal
	EstDiscount decimal.Decimal
	NewTotal    decimal.Decimal
	Reason      string
	ReasonCode  models.Reason
	AppliesTo   string
}

type RecommendResult struct {
	Subtotal        decimal.Decimal
	Recommendations []Recommendation
}

// Selector prices carts against the catalog. All of its operations are
// read-only.
type Selector struct {
	catalog  *Catalog
	clock    Clock
	workers  int
	currency string
	printer  *message.Printer
	log      *zap.Logger
}

func NewSelector(catalog *Catalog, clock Clock, workers int, currency string, log *zap.Logger) *Selector {
	if currency == "" {
		currency = "Rs."
	}
	return &Selector{
		catalog:  catalog,
		clock:    clock,
		workers:  workers,
		currency: currency,
		printer:  message.NewPrinter(language.English),
		log:      log,
	}
}

// Validate prices a cart against one promo code without consuming it.
func (s *Selector) Validate(ctx context.Context, code, canteenID string, cart []models.CartLine, cust models.Customer) (ValidateResult, error) {
	if models.NormalizeCode(code) == "" {
		return ValidateResult{}, &models.ValidationError{Field: "code", Message: "required"}
	}
	if canteenID == "" {
		return ValidateResult{}, &models.ValidationError{Field: "canteenId", Message: "required"}
	}

	p, err := s.catalog.FindByCode(ctx, code, canteenID)
	if err != nil {
		return ValidateResult{}, err
	}
	q := pricing.QuoteCart(p, s.clock.Now(), cust, cart)
	if !q.Eligible() {
		s.log.Debug("promo code rejected", zap.String("code", code), zap.String("reason", string(q.Reason)))
		return ValidateResult{Valid: false, Reason: q.Reason}, nil
	}
	return ValidateResult{
		Valid:          true,
		Discount:       q.Discount,
		NewTotal:       q.NewTotal,
		Lines:          q.Lines,
		Target:         p.Target,
		MaxRedemptions: p.MaxRedemptions,
		Redemptions:    p.Redemptions,
	}, nil
}

// Best returns the candidate with the greatest discount. Equal discounts go
// to the oldest promotion, then the smallest id.
func (s *Selector) Best(ctx context.Context, canteenID string, cart []models.CartLine, cust models.Customer) (BestResult, error) {
	cands, quotes, err := s.quoteCandidates(ctx, canteenID, cart, cust)
	if err != nil {
		return BestResult{}, err
	}

	best := -1
	for i, q := range quotes {
		if !q.Eligible() {
			continue
		}
		if best < 0 || q.Discount.GreaterThan(quotes[best].Discount) {
			best = i
		}
	}
	if best < 0 {
		return BestResult{Found: false}, nil
	}
	return BestResult{
		Found:       true,
		PromotionID: cands[best].ID,
		Code:        cands[best].Code,
		Discount:    quotes[best].Discount,
		NewTotal:    quotes[best].NewTotal,
	}, nil
}

// Recommend annotates every candidate with its estimated discount and a
// customer-facing reason, best savings first.
func (s *Selector) Recommend(ctx context.Context, canteenID string, cart []models.CartLine, cust models.Customer) (RecommendResult, error) {
	if len(cart) == 0 {
		return RecommendResult{}, &models.ValidationError{Field: "items", Message: "at least one item is required"}
	}
	cands, quotes, err := s.quoteCandidates(ctx, canteenID, cart, cust)
	if err != nil {
		return RecommendResult{}, err
	}

	subtotal := models.CartSubtotal(cart)
	out := make([]Recommendation, len(cands))
	for i, p := range cands {
		q := quotes[i]
		rec := Recommendation{
			PromoID:     p.ID,
			Code:        p.Code,
			Name:        p.Name,
			Target:      p.Target,
			ExpiresAt:   p.EndDate,
			MinPurchase: p.MinPurchase,
			EstDiscount: decimal.Zero,
			NewTotal:    subtotal,
			ReasonCode:  q.Reason,
			Reason:      s.describe(&p, q),
			AppliesTo:   "All items",
		}
		if p.Scoped() {
			rec.AppliesTo = "Selected items"
		}
		if q.Eligible() {
			rec.EstDiscount = q.Discount
			rec.NewTotal = q.NewTotal
		}
		out[i] = rec
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EstDiscount.GreaterThan(out[j].EstDiscount)
	})
	return RecommendResult{Subtotal: pricing.Round2(subtotal), Recommendations: out}, nil
}

func (s *Selector) describe(p *models.Promotion, q pricing.Quote) string {
	switch q.Reason {
	case models.ReasonNone:
		if q.Discount.IsPositive() {
			return "Eligible"
		}
		return "No savings for this cart"
	case models.ReasonPaused:
		return "Paused"
	case models.ReasonExpired:
		return "Expired"
	case models.ReasonNotStarted:
		return "Not started yet"
	case models.ReasonNotEligibleTarget:
		return "Not eligible for this audience"
	case models.ReasonMinPurchase:
		amount := s.printer.Sprint(number.Decimal(p.MinPurchase.InexactFloat64(), number.MaxFractionDigits(2)))
		return "Spend " + s.currency + " " + amount + " to use this"
	case models.ReasonNoMatchingProducts:
		return "No matching items in cart"
	}
	return "Unavailable"
}

// quoteCandidates prices every active candidate. Candidates come back in
// canonical order (oldest first, then by id) whatever order the store used.
func (s *Selector) quoteCandidates(ctx context.Context, canteenID string, cart []models.CartLine, cust models.Customer) ([]models.Promotion, []pricing.Quote, error) {
	if canteenID == "" {
		return nil, nil, &models.ValidationError{Field: "canteenId", Message: "required"}
	}
	now := s.clock.Now()
	cands, err := s.catalog.ListActiveCandidates(ctx, canteenID, now)
	if err != nil {
		return nil, nil, err
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if !cands[i].CreatedAt.Equal(cands[j].CreatedAt) {
			return cands[i].CreatedAt.Before(cands[j].CreatedAt)
		}
		return cands[i].ID < cands[j].ID
	})

	quotes := make([]pricing.Quote, len(cands))
	err = concurrency.ForEach(ctx, s.workers, len(cands), func(ctx context.Context, i int) error {
		quotes[i] = pricing.QuoteCart(&cands[i], now, cust, cart)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return cands, quotes, nil
}
