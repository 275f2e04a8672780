package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Cheertaboi/canteen-promo-service/internal/models"
)

// MemoryStore is an in-process Store. Transactions hold the store lock for
// their whole duration and restore a snapshot when they fail.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
}

type memState struct {
	promotions map[string]models.Promotion
	lines      map[string]models.OrderLine
	lineOrder  []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memState{
		promotions: make(map[string]models.Promotion),
		lines:      make(map[string]models.OrderLine),
	}}
}

func (s *MemoryStore) Promotions() PromotionStore { return memPromotions{st: s.state, mu: &s.mu} }
func (s *MemoryStore) Orders() OrderStore         { return memOrders{st: s.state, mu: &s.mu} }

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(memTx{st: s.state}); err != nil {
		*s.state = *snapshot
		return err
	}
	return nil
}

// AddLine places an order line. It stands in for the ordering service that
// owns line creation.
func (s *MemoryStore) AddLine(l models.OrderLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.lines[l.ID]; !ok {
		s.state.lineOrder = append(s.state.lineOrder, l.ID)
	}
	s.state.lines[l.ID] = copyLine(l)
}

// Line returns a copy of a stored order line.
func (s *MemoryStore) Line(id string) (models.OrderLine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.state.lines[id]
	return copyLine(l), ok
}

func (st *memState) clone() *memState {
	c := &memState{
		promotions: make(map[string]models.Promotion, len(st.promotions)),
		lines:      make(map[string]models.OrderLine, len(st.lines)),
		lineOrder:  append([]string(nil), st.lineOrder...),
	}
	for k, v := range st.promotions {
		c.promotions[k] = copyPromotion(v)
	}
	for k, v := range st.lines {
		c.lines[k] = copyLine(v)
	}
	return c
}

type memTx struct{ st *memState }

func (t memTx) Promotions() PromotionStore { return memPromotions{st: t.st, mu: noLock{}} }
func (t memTx) Orders() OrderStore         { return memOrders{st: t.st, mu: noLock{}} }

type noLock struct{}

func (noLock) Lock()   {}
func (noLock) Unlock() {}

type memPromotions struct {
	st *memState
	mu sync.Locker
}

func (m memPromotions) Create(ctx context.Context, p *models.Promotion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.st.promotions {
		if existing.CanteenID == p.CanteenID && existing.Code == p.Code {
			return models.ErrDuplicateCode
		}
	}
	m.st.promotions[p.ID] = copyPromotion(*p)
	return nil
}

func (m memPromotions) Get(ctx context.Context, id string) (*models.Promotion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.st.promotions[id]
	if !ok {
		return nil, nil
	}
	c := copyPromotion(p)
	return &c, nil
}

func (m memPromotions) FindByCode(ctx context.Context, code, canteenID string) (*models.Promotion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.st.promotions {
		if p.Code == code && p.CanteenID == canteenID {
			c := copyPromotion(p)
			return &c, nil
		}
	}
	return nil, nil
}

func (m memPromotions) FindActiveCandidates(ctx context.Context, canteenID string, now time.Time) ([]models.Promotion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Promotion
	for _, p := range m.st.promotions {
		if p.CanteenID != canteenID {
			continue
		}
		if p.Status != models.StatusScheduled && p.Status != models.StatusActive {
			continue
		}
		if now.Before(p.StartDate) || now.After(p.EndDate) {
			continue
		}
		out = append(out, copyPromotion(p))
	}
	sort.Slice(out, func(i, j int) bool { return createdBefore(out[i], out[j]) })
	return out, nil
}

func (m memPromotions) List(ctx context.Context, f models.PromotionFilter) ([]models.Promotion, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := strings.ToLower(strings.TrimSpace(f.Query))
	var all []models.Promotion
	for _, p := range m.st.promotions {
		if f.CanteenID != "" && p.CanteenID != f.CanteenID {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.Description), q) {
			continue
		}
		all = append(all, copyPromotion(p))
	}
	// newest first
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	total := len(all)
	if f.Limit > 0 {
		start := f.Offset()
		if start > total {
			start = total
		}
		end := start + f.Limit
		if end > total {
			end = total
		}
		all = all[start:end]
	}
	return all, total, nil
}

func (m memPromotions) Transition(ctx context.Context, id string, from models.Status, c models.StatusChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.st.promotions[id]
	if !ok || p.Status != from {
		return models.ErrInvalidTransition
	}
	p.Status = c.To
	p.UpdatedAt = c.At
	if c.Approval != nil {
		at := c.Approval.At
		p.ApprovedBy = c.Approval.By
		p.ApprovedAt = &at
		p.ApprovalNote = c.Approval.Note
	}
	m.st.promotions[id] = p
	return nil
}

func (m memPromotions) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.st.promotions[id]; !ok {
		return models.ErrPromotionNotFound
	}
	delete(m.st.promotions, id)
	return nil
}

func (m memPromotions) IncrementRedemptions(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.st.promotions[id]
	if !ok || p.CapReached() {
		return models.ErrRedemptionCapReached
	}
	p.Redemptions++
	m.st.promotions[id] = p
	return nil
}

type memOrders struct {
	st *memState
	mu sync.Locker
}

func (m memOrders) FindLinesBySession(ctx context.Context, userID string, sessionTs int64) ([]models.OrderLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.OrderLine
	for _, id := range m.st.lineOrder {
		l := m.st.lines[id]
		if l.UserID == userID && l.SessionTs == sessionTs {
			out = append(out, copyLine(l))
		}
	}
	return out, nil
}

func (m memOrders) ClaimSession(ctx context.Context, userID string, sessionTs int64, at time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, l := range m.st.lines {
		if l.UserID != userID || l.SessionTs != sessionTs || l.FinalizedAt != nil {
			continue
		}
		t := at
		l.FinalizedAt = &t
		m.st.lines[id] = l
		n++
	}
	return n, nil
}

func (m memOrders) UpdateLine(ctx context.Context, lineID string, u models.LineUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.st.lines[lineID]
	if !ok {
		return fmt.Errorf("update order line %s: %w", lineID, models.ErrOrderLineNotFound)
	}
	if u.PromoCode != nil {
		code := *u.PromoCode
		l.PromoCode = &code
	} else {
		l.PromoCode = nil
	}
	l.PromoDiscount = u.PromoDiscount
	l.LineDiscount = u.LineDiscount
	l.LineTotal = u.LineTotal
	l.SessionSubtotal = u.SessionSubtotal
	l.SessionTotal = u.SessionTotal
	m.st.lines[lineID] = l
	return nil
}

func createdBefore(a, b models.Promotion) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func copyPromotion(p models.Promotion) models.Promotion {
	if p.ProductIDs != nil {
		p.ProductIDs = append([]string(nil), p.ProductIDs...)
	}
	if p.ApprovedAt != nil {
		t := *p.ApprovedAt
		p.ApprovedAt = &t
	}
	return p
}

func copyLine(l models.OrderLine) models.OrderLine {
	if l.PromoCode != nil {
		c := *l.PromoCode
		l.PromoCode = &c
	}
	if l.FinalizedAt != nil {
		t := *l.FinalizedAt
		l.FinalizedAt = &t
	}
	return l
}
