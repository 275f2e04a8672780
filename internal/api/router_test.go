package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Cheertaboi/canteen-promo-service/internal/api/middleware"
	"github.com/Cheertaboi/canteen-promo-service/internal/cache"
	"github.com/Cheertaboi/canteen-promo-service/internal/models"
	"github.com/Cheertaboi/canteen-promo-service/internal/repository"
	"github.com/Cheertaboi/canteen-promo-service/internal/service"
)

var testNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

type fixedClock struct{}

func (fixedClock) Now() time.Time { return testNow }

type testServer struct {
	store   *repository.MemoryStore
	handler http.Handler
}

func newTestServer(t *testing.T, limiter *middleware.RateLimiter) *testServer {
	t.Helper()
	store := repository.NewMemoryStore()
	log := zap.NewNop()
	c := cache.NewPromotionCache(time.Minute, fixedClock{}.Now)
	catalog := service.NewCatalog(store, c, fixedClock{}, log)
	return &testServer{
		store: store,
		handler: NewRouter(Deps{
			Catalog:   catalog,
			Selector:  service.NewSelector(catalog, fixedClock{}, 2, "Rs.", log),
			Finalizer: service.NewFinalizer(store, c, fixedClock{}, log),
			Limiter:   limiter,
			Log:       log,
		}),
	}
}

func (s *testServer) seedPromotion(t *testing.T, code string, spec models.DiscountSpec) {
	t.Helper()
	require.NoError(t, s.store.Promotions().Create(context.Background(), &models.Promotion{
		ID:        "id-" + code,
		Code:      code,
		Name:      code,
		CanteenID: "c-1",
		StartDate: testNow.Add(-time.Hour),
		EndDate:   testNow.Add(time.Hour),
		Discount:  spec,
		Target:    models.TargetAll,
		Status:    models.StatusActive,
		CreatedAt: testNow.Add(-time.Hour),
	}))
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestValidateEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	s.seedPromotion(t, "PCT10", models.Percentage{Percent: decimal.NewFromInt(10)})

	rec := s.do(t, http.MethodPost, "/promocode/validate",
		`{"code":"pct10","canteenId":"c-1","items":[{"productId":"p1","qty":2,"price":100}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"discount":20.00`)
	assert.Contains(t, rec.Body.String(), `"newTotal":180.00`)

	body := decode(t, rec)
	assert.Equal(t, true, body["valid"])
	lines := body["lines"].([]interface{})
	require.Len(t, lines, 1)

	rec = s.do(t, http.MethodPost, "/promocode/validate",
		`{"code":"NOPE","canteenId":"c-1","items":[{"productId":"p1","qty":2,"price":100}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, "NOT_FOUND", body["reason"])
	assert.NotContains(t, body, "discount")
}

func TestValidateEndpointRejectsBadInput(t *testing.T) {
	s := newTestServer(t, nil)
	tests := map[string]string{
		"fractional qty": `{"code":"X","canteenId":"c-1","items":[{"productId":"p1","qty":1.5,"price":10}]}`,
		"negative price": `{"code":"X","canteenId":"c-1","items":[{"productId":"p1","qty":1,"price":-1}]}`,
		"missing code":   `{"canteenId":"c-1","items":[]}`,
		"malformed":      `{"code":`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/promocode/validate", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decode(t, rec), "error")
		})
	}
}

func TestBestAndRecommendEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	s.seedPromotion(t, "PCT10", models.Percentage{Percent: decimal.NewFromInt(10)})
	s.seedPromotion(t, "FIX5", models.Fixed{Amount: decimal.NewFromInt(5)})
	cart := `{"canteenId":"c-1","items":[{"productId":"p1","qty":1,"price":80}]}`

	rec := s.do(t, http.MethodPost, "/promocode/best", cart)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["found"])
	assert.Equal(t, "PCT10", body["code"])
	assert.Equal(t, 8.0, body["discount"])

	rec = s.do(t, http.MethodPost, "/promocode/recommend", cart)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, 80.0, body["subtotal"])
	recs := body["recommendations"].([]interface{})
	require.Len(t, recs, 2)
	first := recs[0].(map[string]interface{})
	assert.Equal(t, "PCT10", first["code"])
	assert.Equal(t, "Eligible", first["reason"])
	assert.Equal(t, "All items", first["appliesTo"])

	rec = s.do(t, http.MethodPost, "/promocode/recommend", `{"canteenId":"c-1","items":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPromotionLifecycleEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, http.MethodPost, "/admin/promotions", `{
		"name": "Lunch",
		"promoCode": "lunch 5",
		"canteenId": "c-1",
		"startDate": "2026-06-01",
		"endDate": "2026-06-30",
		"discountType": "FIXED",
		"discountValue": 5,
		"minPurchase": 20
	}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	assert.Equal(t, "LUNCH5", created["promoCode"])
	assert.Equal(t, "pending_approval", created["status"])
	assert.Equal(t, "2026-06-30T23:59:59Z", created["endDate"])
	id := created["id"].(string)

	rec = s.do(t, http.MethodPost, "/admin/promotions", `{"name":"Dup","promoCode":"LUNCH5","canteenId":"c-1","startDate":"2026-06-01","endDate":"2026-06-30","discountType":"fixed","discountValue":1}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, "/manager/promotions/pending?canteenId=c-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["items"], 1)

	rec = s.do(t, http.MethodPost, "/manager/promotions/"+id+"/approve", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/manager/promotions/"+id+"/approve", `{"approvedBy":"manager-1","note":"ok"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	approved := decode(t, rec)
	assert.Equal(t, "active", approved["status"])
	assert.Equal(t, "manager-1", approved["approvedBy"])

	rec = s.do(t, http.MethodPost, "/admin/promotions/"+id+"/publish", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/admin/promotions/"+id+"/pause", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "paused", decode(t, rec)["status"])

	rec = s.do(t, http.MethodGet, "/admin/promotions/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "paused", decode(t, rec)["status"])

	rec = s.do(t, http.MethodGet, "/admin/promotions?canteenId=c-1&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode(t, rec)
	assert.Equal(t, 1.0, list["total"])
	assert.Equal(t, 1.0, list["pages"])

	rec = s.do(t, http.MethodGet, "/admin/promotions/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["promotions"], 1)

	rec = s.do(t, http.MethodGet, "/admin/promotions/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/admin/promotions?page=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/admin/promotions?q=lunch", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, decode(t, rec)["total"])
	rec = s.do(t, http.MethodGet, "/admin/promotions?q=dinner", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.0, decode(t, rec)["total"])

	rec = s.do(t, http.MethodDelete, "/admin/promotions/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "deleted", decode(t, rec)["message"])
	rec = s.do(t, http.MethodGet, "/admin/promotions/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(t, http.MethodDelete, "/admin/promotions/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFinalizeEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	s.seedPromotion(t, "FIX10", models.Fixed{Amount: decimal.NewFromInt(10)})

	rec := s.do(t, http.MethodPost, "/orders/session/finalize", `{"userId":"u-1","canteenId":"c-1","sessionTs":1}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NO_SESSION_FOUND", decode(t, rec)["error"])

	for i, price := range []int64{10, 10, 10} {
		s.store.AddLine(models.OrderLine{
			ID:          "line-" + string(rune('a'+i)),
			UserID:      "u-1",
			CanteenID:   "c-1",
			SessionTs:   1,
			ProductID:   "p",
			Quantity:    1,
			UnitPrice:   decimal.NewFromInt(price),
			TotalAmount: decimal.NewFromInt(price),
		})
	}

	rec = s.do(t, http.MethodPost, "/orders/session/finalize", `{"userId":"u-1","canteenId":"c-1","sessionTs":1,"code":"fix10"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, strings.Contains(rec.Body.String(), `"total":20.00`), rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "FIX10", body["promoCode"])
	assert.Equal(t, 10.0, body["discount"])

	last, ok := s.store.Line("line-c")
	require.True(t, ok)
	assert.Equal(t, "3.34", last.LineDiscount.StringFixed(2))

	rec = s.do(t, http.MethodPost, "/orders/session/finalize", `{"userId":"u-1","canteenId":"c-1","sessionTs":1,"code":"fix10"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["alreadyFinalized"])
}

func TestPromoRoutesAreRateLimited(t *testing.T) {
	s := newTestServer(t, middleware.NewRateLimiter(0.001, 1))
	cart := `{"canteenId":"c-1","items":[{"productId":"p1","qty":1,"price":10}]}`

	rec := s.do(t, http.MethodPost, "/promocode/best", cart)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodPost, "/promocode/best", cart)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code, "only promo-code routes are limited")
}
