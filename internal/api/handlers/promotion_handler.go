package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Cheertaboi/canteen-promo-service/internal/models"
	"github.com/Cheertaboi/canteen-promo-service/internal/service"
)

const dateLayout = "2006-01-02"

// --- Request / Response DTOs ---

type CreatePromotionRequest struct {
	Name            string   `json:"name"`
	Description     string   `json:"description,omitempty"`
	TermsConditions string   `json:"termsConditions,omitempty"`
	PromoCode       string   `json:"promoCode"`
	CanteenID       string   `json:"canteenId"`
	ProductIDs      []string `json:"productIds,omitempty"`
	StartDate       string   `json:"startDate"` // RFC3339 or YYYY-MM-DD
	EndDate         string   `json:"endDate"`   // RFC3339 or YYYY-MM-DD
	DiscountType    string   `json:"discountType"`
	DiscountValue   float64  `json:"discountValue"`
	Target          string   `json:"target,omitempty"`
	MinPurchase     float64  `json:"minPurchase"`
	MaxRedemptions  int      `json:"maxRedemptions"`
	CreatedBy       string   `json:"createdBy,omitempty"`
}

type DecisionRequest struct {
	ApprovedBy string `json:"approvedBy"`
	Note       string `json:"note,omitempty"`
}

type PromotionResponse struct {
	ID              string        `json:"id"`
	PromoCode       string        `json:"promoCode"`
	Name            string        `json:"name"`
	Description     string        `json:"description,omitempty"`
	TermsConditions string        `json:"termsConditions,omitempty"`
	CanteenID       string        `json:"canteenId"`
	ProductIDs      []string      `json:"productIds"`
	StartDate       string        `json:"startDate"`
	EndDate         string        `json:"endDate"`
	DiscountType    string        `json:"discountType"`
	DiscountValue   money         `json:"discountValue"`
	Target          models.Target `json:"target"`
	MinPurchase     money         `json:"minPurchase"`
	MaxRedemptions  int           `json:"maxRedemptions"`
	Redemptions     int           `json:"redemptions"`
	Status          models.Status `json:"status"`
	CreatedBy       string        `json:"createdBy,omitempty"`
	ApprovedBy      string        `json:"approvedBy,omitempty"`
	ApprovedAt      *string       `json:"approvedAt,omitempty"`
	ApprovalNote    string        `json:"approvalNote,omitempty"`
	CreatedAt       string        `json:"createdAt"`
	UpdatedAt       string        `json:"updatedAt"`
}

type PromotionListResponse struct {
	Items []PromotionResponse `json:"items"`
	Total int                 `json:"total"`
	Page  int                 `json:"page"`
	Pages int                 `json:"pages"`
}

type promotionStat struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	PromoCode      string `json:"promoCode"`
	Redemptions    int    `json:"redemptions"`
	MaxRedemptions int    `json:"maxRedemptions"`
}

// PromotionHandler serves the officer and manager promotion endpoints.
type PromotionHandler struct {
	catalog *service.Catalog
	log     *zap.Logger
}

func NewPromotionHandler(catalog *service.Catalog, log *zap.Logger) *PromotionHandler {
	return &PromotionHandler{catalog: catalog, log: log}
}

func toPromotionResponse(p *models.Promotion) PromotionResponse {
	productIDs := p.ProductIDs
	if productIDs == nil {
		productIDs = []string{}
	}
	return PromotionResponse{
		ID:              p.ID,
		PromoCode:       p.Code,
		Name:            p.Name,
		Description:     p.Description,
		TermsConditions: p.TermsConditions,
		CanteenID:       p.CanteenID,
		ProductIDs:      productIDs,
		StartDate:       formatTime(p.StartDate),
		EndDate:         formatTime(p.EndDate),
		DiscountType:    string(p.Discount.Type()),
		DiscountValue:   money(p.Discount.Value()),
		Target:          p.Target,
		MinPurchase:     money(p.MinPurchase),
		MaxRedemptions:  p.MaxRedemptions,
		Redemptions:     p.Redemptions,
		Status:          p.Status,
		CreatedBy:       p.CreatedBy,
		ApprovedBy:      p.ApprovedBy,
		ApprovedAt:      formatTimePtr(p.ApprovedAt),
		ApprovalNote:    p.ApprovalNote,
		CreatedAt:       formatTime(p.CreatedAt),
		UpdatedAt:       formatTime(p.UpdatedAt),
	}
}

func toPromotionResponses(items []models.Promotion) []PromotionResponse {
	out := make([]PromotionResponse, 0, len(items))
	for i := range items {
		out = append(out, toPromotionResponse(&items[i]))
	}
	return out
}

// parseDate accepts RFC3339 or a bare date. A bare end date covers the
// whole day.
func parseDate(field, s string, endOfDay bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, &models.ValidationError{Field: field, Message: "use RFC3339 or YYYY-MM-DD"}
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Second)
	}
	return t, nil
}

// Create handles POST /admin/promotions
func (h *PromotionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePromotionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	start, err := parseDate("startDate", req.StartDate, false)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	end, err := parseDate("endDate", req.EndDate, true)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}

	p, err := h.catalog.Create(r.Context(), service.CreatePromotionInput{
		Name:            req.Name,
		Description:     req.Description,
		TermsConditions: req.TermsConditions,
		Code:            req.PromoCode,
		CanteenID:       req.CanteenID,
		ProductIDs:      req.ProductIDs,
		StartDate:       start,
		EndDate:         end,
		DiscountType:    models.DiscountType(strings.ToLower(req.DiscountType)),
		DiscountValue:   req.DiscountValue,
		Target:          models.Target(strings.ToLower(req.Target)),
		MinPurchase:     req.MinPurchase,
		MaxRedemptions:  req.MaxRedemptions,
		CreatedBy:       req.CreatedBy,
	})
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPromotionResponse(p))
}

// List handles GET /admin/promotions
func (h *PromotionHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.PromotionFilter{
		CanteenID: q.Get("canteenId"),
		Status:    models.Status(q.Get("status")),
		Query:     q.Get("q"),
	}
	var err error
	if f.Page, err = queryInt(q.Get("page")); err != nil {
		fail(w, r, h.log, &models.ValidationError{Field: "page", Message: "must be a number"})
		return
	}
	if f.Limit, err = queryInt(q.Get("limit")); err != nil {
		fail(w, r, h.log, &models.ValidationError{Field: "limit", Message: "must be a number"})
		return
	}

	page, err := h.catalog.List(r.Context(), f)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, PromotionListResponse{
		Items: toPromotionResponses(page.Items),
		Total: page.Total,
		Page:  page.Page,
		Pages: page.Pages,
	})
}

// Stats handles GET /admin/promotions/stats
func (h *PromotionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r.URL.Query().Get("limit"))
	if err != nil {
		fail(w, r, h.log, &models.ValidationError{Field: "limit", Message: "must be a number"})
		return
	}
	items, err := h.catalog.Stats(r.Context(), limit)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	stats := make([]promotionStat, 0, len(items))
	for _, p := range items {
		stats = append(stats, promotionStat{
			ID:             p.ID,
			Name:           p.Name,
			PromoCode:      p.Code,
			Redemptions:    p.Redemptions,
			MaxRedemptions: p.MaxRedemptions,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"promotions": stats})
}

// Get handles GET /admin/promotions/{id}
func (h *PromotionHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toPromotionResponse(p))
}

// Delete handles DELETE /admin/promotions/{id}
func (h *PromotionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

func (h *PromotionHandler) Publish(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.catalog.Publish)
}

func (h *PromotionHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.catalog.Pause)
}

func (h *PromotionHandler) End(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.catalog.End)
}

func (h *PromotionHandler) lifecycle(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, id string) (*models.Promotion, error)) {
	p, err := action(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toPromotionResponse(p))
}

// Pending handles GET /manager/promotions/pending
func (h *PromotionHandler) Pending(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.Pending(r.Context(), r.URL.Query().Get("canteenId"))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": toPromotionResponses(items)})
}

// Approve handles POST /manager/promotions/{id}/approve
func (h *PromotionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.catalog.Approve)
}

// Reject handles POST /manager/promotions/{id}/reject
func (h *PromotionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.catalog.Reject)
}

func (h *PromotionHandler) decide(w http.ResponseWriter, r *http.Request, decision func(ctx context.Context, id, approver, note string) (*models.Promotion, error)) {
	var req DecisionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ApprovedBy) == "" {
		fail(w, r, h.log, &models.ValidationError{Field: "approvedBy", Message: "required"})
		return
	}
	p, err := decision(r.Context(), chi.URLParam(r, "id"), req.ApprovedBy, req.Note)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toPromotionResponse(p))
}

func queryInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
