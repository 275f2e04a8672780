package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/canteen-promo-service/internal/models"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

const uniqueViolation = "23505"

// likeEscaper quotes LIKE wildcards using the default backslash escape.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

const promotionColumns = `id, promo_code, name, description, terms_conditions,
		canteen_id, product_ids, start_date, end_date,
		discount_type, discount_value, target, min_purchase,
		max_redemptions, redemptions, status,
		created_by, approved_by, approved_at, approval_note,
		created_at, updated_at`

type PromotionRepo struct {
	db dbtx
}

func NewPromotionRepo(db dbtx) *PromotionRepo {
	return &PromotionRepo{db: db}
}

func (r *PromotionRepo) Create(ctx context.Context, p *models.Promotion) error {
	query := `
		INSERT INTO promotions
		(id, promo_code, name, description, terms_conditions,
		 canteen_id, product_ids, start_date, end_date,
		 discount_type, discount_value, target, min_purchase,
		 max_redemptions, redemptions, status, created_by, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
	`
	productIDs := p.ProductIDs
	if productIDs == nil {
		productIDs = []string{}
	}
	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.Code,
		p.Name,
		p.Description,
		p.TermsConditions,
		p.CanteenID,
		pq.Array(productIDs),
		p.StartDate,
		p.EndDate,
		string(p.Discount.Type()),
		p.Discount.Value(),
		string(p.Target),
		p.MinPurchase,
		p.MaxRedemptions,
		p.Redemptions,
		string(p.Status),
		p.CreatedBy,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return models.ErrDuplicateCode
		}
		return fmt.Errorf("insert promotion: %w", err)
	}
	return nil
}

func (r *PromotionRepo) Get(ctx context.Context, id string) (*models.Promotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotions WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *PromotionRepo) FindByCode(ctx context.Context, code, canteenID string) (*models.Promotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotions WHERE promo_code = $1 AND canteen_id = $2`
	return r.getOne(ctx, query, code, canteenID)
}

func (r *PromotionRepo) getOne(ctx context.Context, query string, args ...any) (*models.Promotion, error) {
	p, err := scanPromotion(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get promotion: %w", err)
	}
	return p, nil
}

func (r *PromotionRepo) FindActiveCandidates(ctx context.Context, canteenID string, now time.Time) ([]models.Promotion, error) {
	query := `
		SELECT ` + promotionColumns + `
		FROM promotions
		WHERE canteen_id = $1
		  AND status IN ('scheduled', 'active')
		  AND start_date <= $2 AND end_date >= $2
		ORDER BY created_at, id
	`
	return r.query(ctx, query, canteenID, now)
}

func (r *PromotionRepo) List(ctx context.Context, f models.PromotionFilter) ([]models.Promotion, int, error) {
	var (
		where    []string
		args     []any
		argIndex = 1
	)
	if f.CanteenID != "" {
		where = append(where, fmt.Sprintf("canteen_id = $%d", argIndex))
		args = append(args, f.CanteenID)
		argIndex++
	}
	if f.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, string(f.Status))
		argIndex++
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+likeEscaper.Replace(q)+"%")
		argIndex++
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM promotions`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count promotions: %w", err)
	}

	query := `SELECT ` + promotionColumns + ` FROM promotions` + clause + ` ORDER BY created_at DESC, id`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
		args = append(args, f.Limit, f.Offset())
	}
	items, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *PromotionRepo) Transition(ctx context.Context, id string, from models.Status, c models.StatusChange) error {
	var (
		res sql.Result
		err error
	)
	if c.Approval != nil {
		query := `
			UPDATE promotions
			SET status = $3, approved_by = $4, approved_at = $5, approval_note = $6, updated_at = $7
			WHERE id = $1 AND status = $2
		`
		res, err = r.db.ExecContext(ctx, query, id, string(from), string(c.To),
			c.Approval.By, c.Approval.At, c.Approval.Note, c.At)
	} else {
		query := `UPDATE promotions SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`
		res, err = r.db.ExecContext(ctx, query, id, string(from), string(c.To), c.At)
	}
	if err != nil {
		return fmt.Errorf("update promotion status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update promotion status: %w", err)
	}
	if n == 0 {
		return models.ErrInvalidTransition
	}
	return nil
}

func (r *PromotionRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM promotions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete promotion: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete promotion: %w", err)
	}
	if n == 0 {
		return models.ErrPromotionNotFound
	}
	return nil
}

// IncrementRedemptions checks the cap and increments in a single statement,
// so concurrent finalizations cannot overshoot max_redemptions.
func (r *PromotionRepo) IncrementRedemptions(ctx context.Context, id string) error {
	query := `
		UPDATE promotions
		SET redemptions = redemptions + 1,
		    updated_at = NOW()
		WHERE id = $1 AND (max_redemptions = 0 OR redemptions < max_redemptions)
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("increment redemptions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment redemptions: %w", err)
	}
	if n == 0 {
		return models.ErrRedemptionCapReached
	}
	return nil
}

func (r *PromotionRepo) query(ctx context.Context, query string, args ...any) ([]models.Promotion, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query promotions: %w", err)
	}
	defer rows.Close()

	var out []models.Promotion
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan promotion: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate promotions: %w", err)
	}
	return out, nil
}

func scanPromotion(row rowScanner) (*models.Promotion, error) {
	var (
		p             models.Promotion
		productIDs    []string
		discountType  string
		discountValue decimal.Decimal
		target        string
		status        string
		approvedAt    sql.NullTime
	)
	err := row.Scan(
		&p.ID,
		&p.Code,
		&p.Name,
		&p.Description,
		&p.TermsConditions,
		&p.CanteenID,
		pq.Array(&productIDs),
		&p.StartDate,
		&p.EndDate,
		&discountType,
		&discountValue,
		&target,
		&p.MinPurchase,
		&p.MaxRedemptions,
		&p.Redemptions,
		&status,
		&p.CreatedBy,
		&p.ApprovedBy,
		&approvedAt,
		&p.ApprovalNote,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	spec, err := models.NewDiscountSpec(models.DiscountType(discountType), discountValue)
	if err != nil {
		return nil, fmt.Errorf("promotion %s: %w", p.ID, err)
	}
	p.Discount = spec
	p.ProductIDs = productIDs
	p.Target = models.Target(target)
	p.Status = models.Status(status)
	if approvedAt.Valid {
		t := approvedAt.Time
		p.ApprovedAt = &t
	}
	return &p, nil
}
