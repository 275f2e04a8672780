package repository

import (
	"context"
	"time"

	"github.com/Cheertaboi/canteen-promo-service/internal/models"
)

// PromotionStore persists promotions.
//
// Get and FindByCode return (nil, nil) when nothing matches.
type PromotionStore interface {
	Create(ctx context.Context, p *models.Promotion) error
	Get(ctx context.Context, id string) (*models.Promotion, error)
	FindByCode(ctx context.Context, code, canteenID string) (*models.Promotion, error)
	// FindActiveCandidates returns scheduled/active promotions of a canteen
	// whose window contains now, oldest first.
	FindActiveCandidates(ctx context.Context, canteenID string, now time.Time) ([]models.Promotion, error)
	List(ctx context.Context, f models.PromotionFilter) ([]models.Promotion, int, error)
	// Transition moves a promotion out of status from. It fails with
	// models.ErrInvalidTransition when the stored status is no longer from.
	Transition(ctx context.Context, id string, from models.Status, c models.StatusChange) error
	// Delete removes a promotion. It returns models.ErrPromotionNotFound
	// when no row matches.
	Delete(ctx context.Context, id string) error
	// IncrementRedemptions adds one redemption unless the cap is reached,
	// in which case it returns models.ErrRedemptionCapReached.
	IncrementRedemptions(ctx context.Context, id string) error
}

// OrderStore reads and finalizes order session lines.
type OrderStore interface {
	// FindLinesBySession returns the session's lines in placement order.
	FindLinesBySession(ctx context.Context, userID string, sessionTs int64) ([]models.OrderLine, error)
	// ClaimSession sets finalized_at on every unfinalized line of the
	// session and reports how many lines it claimed.
	ClaimSession(ctx context.Context, userID string, sessionTs int64, at time.Time) (int, error)
	UpdateLine(ctx context.Context, lineID string, u models.LineUpdate) error
}

// Tx exposes stores bound to one transaction.
type Tx interface {
	Promotions() PromotionStore
	Orders() OrderStore
}

// Store is the storage root used by the services.
type Store interface {
	Tx
	// WithinTx runs fn in a transaction that commits when fn returns nil
	// and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}
