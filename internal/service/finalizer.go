package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Cheertaboi/canteen-promo-service/internal/cache"
	"github.com/Cheertaboi/canteen-promo-service/internal/models"
	"github.com/Cheertaboi/canteen-promo-service/internal/pricing"
	"github.com/Cheertaboi/canteen-promo-service/internal/repository"
)

type FinalizeInput struct {
	UserID    string
	CanteenID string
	SessionTs int64
	Code      string
	Customer  models.Customer
}

type FinalizeResult struct {
	Subtotal  decimal.Decimal
	Discount  decimal.Decimal
	Total     decimal.Decimal
	PromoCode *string
	// Reason explains why a supplied code was not applied.
	Reason models.Reason
	// AlreadyFinalized is set when the session had been finalized before
	// and the stored totals are returned unchanged.
	AlreadyFinalized bool
}

// Finalizer turns an order session into a single bill and redeems the
// applied promo code at most once per session.
type Finalizer struct {
	store repository.Store
	cache *cache.PromotionCache
	clock Clock
	log   *zap.Logger
}

func NewFinalizer(store repository.Store, c *cache.PromotionCache, clock Clock, log *zap.Logger) *Finalizer {
	if c == nil {
		c = cache.NewPromotionCache(0, nil)
	}
	return &Finalizer{store: store, cache: c, clock: clock, log: log}
}

func (f *Finalizer) Finalize(ctx context.Context, in FinalizeInput) (FinalizeResult, error) {
	if in.UserID == "" {
		return FinalizeResult{}, &models.ValidationError{Field: "userId", Message: "required"}
	}
	if in.CanteenID == "" {
		return FinalizeResult{}, &models.ValidationError{Field: "canteenId", Message: "required"}
	}
	if in.SessionTs <= 0 {
		return FinalizeResult{}, &models.ValidationError{Field: "sessionTs", Message: "must be a positive timestamp"}
	}
	code := models.NormalizeCode(in.Code)

	var (
		res      FinalizeResult
		redeemed *models.Promotion
	)
	err := f.store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		res, redeemed, err = f.finalize(ctx, tx, in, code)
		return err
	})
	if err != nil {
		return FinalizeResult{}, err
	}

	if redeemed != nil {
		f.cache.Invalidate(redeemed.CanteenID, redeemed.Code)
	}
	f.log.Info("session finalized",
		zap.String("user_id", in.UserID),
		zap.Int64("session_ts", in.SessionTs),
		zap.String("subtotal", res.Subtotal.StringFixed(2)),
		zap.String("discount", res.Discount.StringFixed(2)),
		zap.String("total", res.Total.StringFixed(2)),
		zap.Bool("already_finalized", res.AlreadyFinalized))
	return res, nil
}

func (f *Finalizer) finalize(ctx context.Context, tx repository.Tx, in FinalizeInput, code string) (FinalizeResult, *models.Promotion, error) {
	lines, err := tx.Orders().FindLinesBySession(ctx, in.UserID, in.SessionTs)
	if err != nil {
		return FinalizeResult{}, nil, err
	}
	if len(lines) == 0 {
		return FinalizeResult{}, nil, models.ErrNoSession
	}
	switch finalized := countFinalized(lines); {
	case finalized == len(lines):
		return storedResult(lines[0]), nil, nil
	case finalized > 0:
		// Lines placed after the session was billed cannot be merged into
		// the stored bill.
		f.log.Warn("session has lines placed after finalization",
			zap.String("user_id", in.UserID),
			zap.Int64("session_ts", in.SessionTs),
			zap.Int("finalized", finalized),
			zap.Int("lines", len(lines)))
		return FinalizeResult{}, nil, models.ErrSessionFinalized
	}

	now := f.clock.Now()
	claimed, err := tx.Orders().ClaimSession(ctx, in.UserID, in.SessionTs, now)
	if err != nil {
		return FinalizeResult{}, nil, err
	}
	if claimed != len(lines) {
		return FinalizeResult{}, nil, models.ErrSessionFinalized
	}

	subtotal := decimal.Zero
	cart := make([]models.CartLine, len(lines))
	weights := make([]decimal.Decimal, len(lines))
	for i, l := range lines {
		subtotal = subtotal.Add(l.TotalAmount)
		cart[i] = l.CartLine()
		weights[i] = l.TotalAmount
	}

	res := FinalizeResult{Subtotal: pricing.Round2(subtotal), Discount: decimal.Zero}
	var redeemed *models.Promotion
	if code != "" {
		p, err := tx.Promotions().FindByCode(ctx, code, in.CanteenID)
		if err != nil {
			return FinalizeResult{}, nil, err
		}
		q := pricing.QuoteCart(p, now, in.Customer, cart)
		res.Reason = q.Reason
		if q.Eligible() {
			res.PromoCode = &p.Code
		}
		// Only a positive discount consumes a redemption.
		if q.Eligible() && q.Discount.IsPositive() {
			switch err := tx.Promotions().IncrementRedemptions(ctx, p.ID); {
			case err == nil:
				res.Discount = q.Discount
				redeemed = p
			case errors.Is(err, models.ErrRedemptionCapReached):
				res.PromoCode = nil
				res.Reason = models.ReasonMaxRedemptionsReached
			default:
				return FinalizeResult{}, nil, err
			}
		}
	}
	res.Total = pricing.NetTotal(subtotal, res.Discount)

	shares := pricing.Allocate(res.Discount, weights)
	for i, l := range lines {
		u := models.LineUpdate{
			PromoCode:       res.PromoCode,
			PromoDiscount:   res.Discount,
			LineDiscount:    shares[i],
			LineTotal:       pricing.NetTotal(l.TotalAmount, shares[i]),
			SessionSubtotal: res.Subtotal,
			SessionTotal:    res.Total,
		}
		if err := tx.Orders().UpdateLine(ctx, l.ID, u); err != nil {
			return FinalizeResult{}, nil, err
		}
	}
	return res, redeemed, nil
}

func countFinalized(lines []models.OrderLine) int {
	n := 0
	for _, l := range lines {
		if l.FinalizedAt != nil {
			n++
		}
	}
	return n
}

func storedResult(l models.OrderLine) FinalizeResult {
	return FinalizeResult{
		Subtotal:         l.SessionSubtotal,
		Discount:         l.PromoDiscount,
		Total:            l.SessionTotal,
		PromoCode:        l.PromoCode,
		AlreadyFinalized: true,
	}
}
