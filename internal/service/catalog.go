package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Cheertaboi/canteen-promo-service/internal/cache"
	"github.com/Cheertaboi/canteen-promo-service/internal/models"
	"github.com/Cheertaboi/canteen-promo-service/internal/repository"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Clock supplies the evaluation time.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

type CreatePromotionInput struct {
	Name            string
	Description     string
	TermsConditions string
	Code            string
	CanteenID       string
	ProductIDs      []string
	StartDate       time.Time
	EndDate         time.Time
	DiscountType    models.DiscountType
	DiscountValue   float64
	Target          models.Target
	MinPurchase     float64
	MaxRedemptions  int
	CreatedBy       string
}

type PromotionPage struct {
	Items []models.Promotion
	Total int
	Page  int
	Pages int
}

// Catalog owns promotion records and their lifecycle.
type Catalog struct {
	store repository.Store
	cache *cache.PromotionCache
	clock Clock
	log   *zap.Logger
}

func NewCatalog(store repository.Store, c *cache.PromotionCache, clock Clock, log *zap.Logger) *Catalog {
	if c == nil {
		c = cache.NewPromotionCache(0, nil)
	}
	return &Catalog{store: store, cache: c, clock: clock, log: log}
}

func (c *Catalog) Create(ctx context.Context, in CreatePromotionInput) (*models.Promotion, error) {
	p, err := c.buildPromotion(in)
	if err != nil {
		return nil, err
	}
	if err := c.store.Promotions().Create(ctx, p); err != nil {
		return nil, err
	}
	c.cache.Invalidate(p.CanteenID, p.Code)
	c.log.Info("promotion submitted for approval",
		zap.String("promo_id", p.ID),
		zap.String("code", p.Code),
		zap.String("canteen_id", p.CanteenID))
	return p, nil
}

func (c *Catalog) buildPromotion(in CreatePromotionInput) (*models.Promotion, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, &models.ValidationError{Field: "name", Message: "required"}
	}
	code := models.NormalizeCode(in.Code)
	if code == "" {
		return nil, &models.ValidationError{Field: "promo_code", Message: "required"}
	}
	if in.CanteenID == "" {
		return nil, &models.ValidationError{Field: "canteenId", Message: "required"}
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return nil, &models.ValidationError{Field: "startDate", Message: "startDate and endDate are required"}
	}
	if in.EndDate.Before(in.StartDate) {
		return nil, &models.ValidationError{Field: "endDate", Message: "must not be before startDate"}
	}
	if err := models.CheckAmount("discountValue", in.DiscountValue); err != nil {
		return nil, err
	}
	spec, err := models.NewDiscountSpec(in.DiscountType, decimal.NewFromFloat(in.DiscountValue))
	if err != nil {
		return nil, err
	}
	target := in.Target
	if target == "" {
		target = models.TargetAll
	}
	if !target.Valid() {
		return nil, &models.ValidationError{Field: "target", Message: fmt.Sprintf("unknown target %q", target)}
	}
	if err := models.CheckAmount("minPurchase", in.MinPurchase); err != nil {
		return nil, err
	}
	if in.MaxRedemptions < 0 {
		return nil, &models.ValidationError{Field: "maxRedemptions", Message: "must not be negative"}
	}

	productIDs := make([]string, 0, len(in.ProductIDs))
	for _, id := range in.ProductIDs {
		if id = strings.TrimSpace(id); id != "" {
			productIDs = append(productIDs, id)
		}
	}

	now := c.clock.Now()
	return &models.Promotion{
		ID:              uuid.NewString(),
		Code:            code,
		Name:            strings.TrimSpace(in.Name),
		Description:     in.Description,
		TermsConditions: in.TermsConditions,
		CanteenID:       in.CanteenID,
		ProductIDs:      productIDs,
		StartDate:       in.StartDate,
		EndDate:         in.EndDate,
		Discount:        spec,
		Target:          target,
		MinPurchase:     decimal.NewFromFloat(in.MinPurchase),
		MaxRedemptions:  in.MaxRedemptions,
		Status:          models.StatusPendingApproval,
		CreatedBy:       in.CreatedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func (c *Catalog) Get(ctx context.Context, id string) (*models.Promotion, error) {
	p, err := c.store.Promotions().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, models.ErrPromotionNotFound
	}
	return p, nil
}

func (c *Catalog) List(ctx context.Context, f models.PromotionFilter) (PromotionPage, error) {
	if f.Status != "" && !f.Status.Valid() {
		return PromotionPage{}, &models.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", f.Status)}
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	items, total, err := c.store.Promotions().List(ctx, f)
	if err != nil {
		return PromotionPage{}, err
	}
	pages := (total + f.Limit - 1) / f.Limit
	if pages < 1 {
		pages = 1
	}
	return PromotionPage{Items: items, Total: total, Page: f.Page, Pages: pages}, nil
}

// Pending lists the promotions of a canteen awaiting manager approval.
func (c *Catalog) Pending(ctx context.Context, canteenID string) ([]models.Promotion, error) {
	if canteenID == "" {
		return nil, &models.ValidationError{Field: "canteenId", Message: "required"}
	}
	items, _, err := c.store.Promotions().List(ctx, models.PromotionFilter{
		CanteenID: canteenID,
		Status:    models.StatusPendingApproval,
	})
	return items, err
}

// Stats returns the most recently created promotions with their redemption
// counters.
func (c *Catalog) Stats(ctx context.Context, limit int) ([]models.Promotion, error) {
	if limit < 1 || limit > maxPageSize {
		limit = 20
	}
	items, _, err := c.store.Promotions().List(ctx, models.PromotionFilter{Page: 1, Limit: limit})
	return items, err
}

// FindByCode resolves a promo code within a canteen. (nil, nil) means no
// such promotion.
func (c *Catalog) FindByCode(ctx context.Context, code, canteenID string) (*models.Promotion, error) {
	code = models.NormalizeCode(code)
	if p, ok := c.cache.Get(canteenID, code); ok {
		return p, nil
	}
	p, err := c.store.Promotions().FindByCode(ctx, code, canteenID)
	if err != nil {
		return nil, err
	}
	c.cache.Set(canteenID, code, p)
	return p, nil
}

func (c *Catalog) ListActiveCandidates(ctx context.Context, canteenID string, now time.Time) ([]models.Promotion, error) {
	return c.store.Promotions().FindActiveCandidates(ctx, canteenID, now)
}

// Delete removes a promotion in any status.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	p, err := c.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := c.store.Promotions().Delete(ctx, id); err != nil {
		return err
	}
	c.cache.Invalidate(p.CanteenID, p.Code)
	c.log.Info("promotion deleted",
		zap.String("promo_id", id),
		zap.String("code", p.Code),
		zap.String("canteen_id", p.CanteenID))
	return nil
}

// Approve moves a pending promotion to the status its window implies.
func (c *Catalog) Approve(ctx context.Context, id, approver, note string) (*models.Promotion, error) {
	return c.transition(ctx, id, "approve", func(p *models.Promotion, now time.Time) (models.StatusChange, bool) {
		if p.Status != models.StatusPendingApproval {
			return models.StatusChange{}, false
		}
		return models.StatusChange{
			To:       models.WindowStatus(now, p.StartDate, p.EndDate),
			At:       now,
			Approval: &models.Approval{By: approver, At: now, Note: note},
		}, true
	})
}

func (c *Catalog) Reject(ctx context.Context, id, approver, note string) (*models.Promotion, error) {
	return c.transition(ctx, id, "reject", func(p *models.Promotion, now time.Time) (models.StatusChange, bool) {
		if p.Status != models.StatusPendingApproval {
			return models.StatusChange{}, false
		}
		return models.StatusChange{
			To:       models.StatusRejected,
			At:       now,
			Approval: &models.Approval{By: approver, At: now, Note: note},
		}, true
	})
}

func (c *Catalog) Publish(ctx context.Context, id string) (*models.Promotion, error) {
	return c.force(ctx, id, "publish", models.StatusActive, models.StatusPaused)
}

func (c *Catalog) Pause(ctx context.Context, id string) (*models.Promotion, error) {
	return c.force(ctx, id, "pause", models.StatusPaused, models.StatusScheduled, models.StatusActive)
}

func (c *Catalog) End(ctx context.Context, id string) (*models.Promotion, error) {
	return c.force(ctx, id, "end", models.StatusEnded, models.StatusScheduled, models.StatusActive, models.StatusPaused)
}

func (c *Catalog) force(ctx context.Context, id, action string, to models.Status, from ...models.Status) (*models.Promotion, error) {
	return c.transition(ctx, id, action, func(p *models.Promotion, now time.Time) (models.StatusChange, bool) {
		for _, s := range from {
			if p.Status == s {
				return models.StatusChange{To: to, At: now}, true
			}
		}
		return models.StatusChange{}, false
	})
}

type transitionFn func(p *models.Promotion, now time.Time) (models.StatusChange, bool)

func (c *Catalog) transition(ctx context.Context, id, action string, next transitionFn) (*models.Promotion, error) {
	p, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	change, ok := next(p, c.clock.Now())
	if !ok {
		return nil, fmt.Errorf("%s from %s: %w", action, p.Status, models.ErrInvalidTransition)
	}
	from := p.Status
	if err := c.store.Promotions().Transition(ctx, id, from, change); err != nil {
		return nil, err
	}
	c.cache.Invalidate(p.CanteenID, p.Code)

	p.Status = change.To
	p.UpdatedAt = change.At
	if a := change.Approval; a != nil {
		at := a.At
		p.ApprovedBy, p.ApprovedAt, p.ApprovalNote = a.By, &at, a.Note
	}
	c.log.Info("promotion status changed",
		zap.String("promo_id", id),
		zap.String("action", action),
		zap.String("from", string(from)),
		zap.String("to", string(change.To)))
	return p, nil
}
