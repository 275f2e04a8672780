package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Cheertaboi/canteen-promo-service/internal/models"
)

type OrderRepo struct {
	db dbtx
	// lock adds FOR UPDATE to session reads; set for transaction-bound repos.
	lock bool
}

func NewOrderRepo(db dbtx) *OrderRepo {
	return &OrderRepo{db: db}
}

func (r *OrderRepo) FindLinesBySession(ctx context.Context, userID string, sessionTs int64) ([]models.OrderLine, error) {
	query := `
		SELECT id, user_id, canteen_id, session_ts, product_id, item_name,
		       quantity, unit_price, total_amount,
		       promo_code, promo_discount, line_discount, line_total,
		       session_subtotal, session_total, finalized_at, created_at
		FROM order_lines
		WHERE user_id = $1 AND session_ts = $2
		ORDER BY created_at, id
	`
	if r.lock {
		query += " FOR UPDATE"
	}

	rows, err := r.db.QueryContext(ctx, query, userID, sessionTs)
	if err != nil {
		return nil, fmt.Errorf("query session lines: %w", err)
	}
	defer rows.Close()

	var lines []models.OrderLine
	for rows.Next() {
		var (
			l           models.OrderLine
			promoCode   sql.NullString
			finalizedAt sql.NullTime
		)
		if err := rows.Scan(
			&l.ID,
			&l.UserID,
			&l.CanteenID,
			&l.SessionTs,
			&l.ProductID,
			&l.ItemName,
			&l.Quantity,
			&l.UnitPrice,
			&l.TotalAmount,
			&promoCode,
			&l.PromoDiscount,
			&l.LineDiscount,
			&l.LineTotal,
			&l.SessionSubtotal,
			&l.SessionTotal,
			&finalizedAt,
			&l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan session line: %w", err)
		}
		if promoCode.Valid {
			code := promoCode.String
			l.PromoCode = &code
		}
		if finalizedAt.Valid {
			t := finalizedAt.Time
			l.FinalizedAt = &t
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session lines: %w", err)
	}
	return lines, nil
}

func (r *OrderRepo) ClaimSession(ctx context.Context, userID string, sessionTs int64, at time.Time) (int, error) {
	query := `
		UPDATE order_lines
		SET finalized_at = $3
		WHERE user_id = $1 AND session_ts = $2 AND finalized_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, userID, sessionTs, at)
	if err != nil {
		return 0, fmt.Errorf("claim session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("claim session: %w", err)
	}
	return int(n), nil
}

func (r *OrderRepo) UpdateLine(ctx context.Context, lineID string, u models.LineUpdate) error {
	query := `
		UPDATE order_lines
		SET promo_code = $2,
		    promo_discount = $3,
		    line_discount = $4,
		    line_total = $5,
		    session_subtotal = $6,
		    session_total = $7
		WHERE id = $1
	`
	var promoCode sql.NullString
	if u.PromoCode != nil {
		promoCode = sql.NullString{String: *u.PromoCode, Valid: true}
	}
	res, err := r.db.ExecContext(ctx, query, lineID, promoCode,
		u.PromoDiscount, u.LineDiscount, u.LineTotal, u.SessionSubtotal, u.SessionTotal)
	if err != nil {
		return fmt.Errorf("update order line %s: %w", lineID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order line %s: %w", lineID, err)
	}
	if n == 0 {
		return fmt.Errorf("update order line %s: %w", lineID, models.ErrOrderLineNotFound)
	}
	return nil
}
