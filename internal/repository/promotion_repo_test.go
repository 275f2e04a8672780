package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cheertaboi/canteen-promo-service/internal/models"
)

var promotionRowColumns = []string{
	"id", "promo_code", "name", "description", "terms_conditions",
	"canteen_id", "product_ids", "start_date", "end_date",
	"discount_type", "discount_value", "target", "min_purchase",
	"max_redemptions", "redemptions", "status",
	"created_by", "approved_by", "approved_at", "approval_note",
	"created_at", "updated_at",
}

func TestPromotionRepo_FindByCode(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPromotionRepo(db)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	rows := sqlmock.NewRows(promotionRowColumns).
		AddRow("p-1", "SAVE10", "Ten off", "", "", "c-1", "{prod-1,prod-2}", start, end,
			"percentage", "10.00", "all", "50.00", 5, 2, "active",
			"officer-1", "manager-1", start, "ok", start, start)

	mock.ExpectQuery(regexp.QuoteMeta("FROM promotions WHERE promo_code = $1 AND canteen_id = $2")).
		WithArgs("SAVE10", "c-1").
		WillReturnRows(rows)

	p, err := repo.FindByCode(context.Background(), "SAVE10", "c-1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "p-1", p.ID)
	assert.Equal(t, []string{"prod-1", "prod-2"}, p.ProductIDs)
	assert.Equal(t, models.StatusActive, p.Status)
	assert.Equal(t, models.Percentage{Percent: decimal.RequireFromString("10.00")}, p.Discount)
	assert.True(t, p.MinPurchase.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, 5, p.MaxRedemptions)
	require.NotNil(t, p.ApprovedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromotionRepo_FindByCodeMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM promotions WHERE promo_code = $1")).
		WithArgs("NOPE", "c-1").
		WillReturnRows(sqlmock.NewRows(promotionRowColumns))

	p, err := NewPromotionRepo(db).FindByCode(context.Background(), "NOPE", "c-1")
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestPromotionRepo_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	p := &models.Promotion{
		ID: "p-1", Code: "FREEBIE", Name: "Free item", CanteenID: "c-1",
		StartDate: now, EndDate: now, Discount: models.Free{},
		Target: models.TargetAll, MinPurchase: decimal.Zero,
		Status: models.StatusPendingApproval, CreatedAt: now, UpdatedAt: now,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO promotions")).
		WithArgs("p-1", "FREEBIE", "Free item", "", "", "c-1", sqlmock.AnyArg(), now, now,
			"free", sqlmock.AnyArg(), "all", sqlmock.AnyArg(), 0, 0, "pending_approval", "", now, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, NewPromotionRepo(db).Create(context.Background(), p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromotionRepo_CreateDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO promotions")).
		WillReturnError(&pq.Error{Code: uniqueViolation})

	err = NewPromotionRepo(db).Create(context.Background(), &models.Promotion{Discount: models.Bogo{}})
	assert.ErrorIs(t, err, models.ErrDuplicateCode)
}

func TestPromotionRepo_IncrementRedemptions(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPromotionRepo(db)
	query := regexp.QuoteMeta("WHERE id = $1 AND (max_redemptions = 0 OR redemptions < max_redemptions)")

	mock.ExpectExec(query).WithArgs("p-1").WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.IncrementRedemptions(context.Background(), "p-1"))

	mock.ExpectExec(query).WithArgs("p-1").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.IncrementRedemptions(context.Background(), "p-1"), models.ErrRedemptionCapReached)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromotionRepo_TransitionLostRace(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE promotions SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2")).
		WithArgs("p-1", "active", "paused", at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewPromotionRepo(db).Transition(context.Background(), "p-1", models.StatusActive,
		models.StatusChange{To: models.StatusPaused, At: at})
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestPromotionRepo_ListPaged(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM promotions WHERE canteen_id = $1 AND status = $2")).
		WithArgs("c-1", "pending_approval").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC, id LIMIT $3 OFFSET $4")).
		WithArgs("c-1", "pending_approval", 5, 10).
		WillReturnRows(sqlmock.NewRows(promotionRowColumns))

	items, total, err := NewPromotionRepo(db).List(context.Background(), models.PromotionFilter{
		CanteenID: "c-1", Status: models.StatusPendingApproval, Page: 3, Limit: 5,
	})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 12, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromotionRepo_ListSearchesNameAndDescription(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM promotions WHERE status = $1 AND (name ILIKE $2 OR description ILIKE $2)")).
		WithArgs("active", `%50\%\_off%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("(name ILIKE $2 OR description ILIKE $2) ORDER BY created_at DESC, id")).
		WithArgs("active", `%50\%\_off%`).
		WillReturnRows(sqlmock.NewRows(promotionRowColumns))

	_, total, err := NewPromotionRepo(db).List(context.Background(), models.PromotionFilter{
		Status: models.StatusActive, Query: " 50%_off ",
	})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromotionRepo_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM promotions WHERE id = $1")).
		WithArgs("p-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM promotions WHERE id = $1")).
		WithArgs("p-2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewPromotionRepo(db)
	require.NoError(t, repo.Delete(context.Background(), "p-1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "p-2"), models.ErrPromotionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
