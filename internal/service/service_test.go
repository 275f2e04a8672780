package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Cheertaboi/canteen-promo-service/internal/cache"
	"github.com/Cheertaboi/canteen-promo-service/internal/models"
	"github.com/Cheertaboi/canteen-promo-service/internal/repository"
)

type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

var testNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store     *repository.MemoryStore
	clock     *fixedClock
	cache     *cache.PromotionCache
	catalog   *Catalog
	selector  *Selector
	finalizer *Finalizer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	clock := &fixedClock{t: testNow}
	c := cache.NewPromotionCache(time.Minute, clock.Now)
	log := zap.NewNop()
	catalog := NewCatalog(store, c, clock, log)
	return &fixture{
		store:     store,
		clock:     clock,
		cache:     c,
		catalog:   catalog,
		selector:  NewSelector(catalog, clock, 4, "Rs.", log),
		finalizer: NewFinalizer(store, c, clock, log),
	}
}

// seed stores an approved promotion directly, bypassing the approval flow.
func (f *fixture) seed(t *testing.T, p models.Promotion) *models.Promotion {
	t.Helper()
	if p.ID == "" {
		p.ID = p.Code
	}
	if p.CanteenID == "" {
		p.CanteenID = "c-1"
	}
	if p.Target == "" {
		p.Target = models.TargetAll
	}
	if p.Status == "" {
		p.Status = models.StatusActive
	}
	if p.StartDate.IsZero() {
		p.StartDate = testNow.Add(-24 * time.Hour)
	}
	if p.EndDate.IsZero() {
		p.EndDate = testNow.Add(24 * time.Hour)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = testNow.Add(-48 * time.Hour)
	}
	require.NoError(t, f.store.Promotions().Create(context.Background(), &p))
	return &p
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func cartLine(id string, qty int, price string) models.CartLine {
	return models.CartLine{ProductID: id, Quantity: qty, UnitPrice: dec(price)}
}

func requireDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, got.Equal(dec(want)), "want %s, got %s", want, got.String())
}
