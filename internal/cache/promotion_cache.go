package cache

import (
	"sync"
	"time"

	"github.com/Cheertaboi/canteen-promo-service/internal/models"
)

type entry struct {
	promo     *models.Promotion
	expiresAt time.Time
}

// PromotionCache memoizes code lookups for the read-only promo endpoints.
// Entries expire after ttl and are invalidated whenever the promotion
// changes in this process. A zero ttl disables caching.
type PromotionCache struct {
	mu    sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
	store map[string]entry
}

func NewPromotionCache(ttl time.Duration, now func() time.Time) *PromotionCache {
	if now == nil {
		now = time.Now
	}
	return &PromotionCache{
		ttl:   ttl,
		now:   now,
		store: make(map[string]entry),
	}
}

func key(canteenID, code string) string {
	return canteenID + "\x00" + code
}

// Get returns a copy of the cached promotion. A cached miss is reported as
// (nil, true).
func (c *PromotionCache) Get(canteenID, code string) (*models.Promotion, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.store[key(canteenID, code)]
	if !ok || c.now().After(e.expiresAt) {
		return nil, false
	}
	if e.promo == nil {
		return nil, true
	}
	p := *e.promo
	return &p, true
}

func (c *PromotionCache) Set(canteenID, code string, p *models.Promotion) {
	if c.ttl <= 0 {
		return
	}
	var stored *models.Promotion
	if p != nil {
		cp := *p
		stored = &cp
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key(canteenID, code)] = entry{promo: stored, expiresAt: c.now().Add(c.ttl)}
}

func (c *PromotionCache) Invalidate(canteenID, code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key(canteenID, code))
}
