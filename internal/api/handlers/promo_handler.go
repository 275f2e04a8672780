package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/Cheertaboi/canteen-promo-service/internal/models"
	"github.com/Cheertaboi/canteen-promo-service/internal/service"
)

// --- Request / Response DTOs ---

type ValidateRequest struct {
	Code      string            `json:"code"`
	CanteenID string            `json:"canteenId"`
	Items     []models.CartItem `json:"items"`
	Customer  models.Customer   `json:"customer"`
}

type CartRequest struct {
	CanteenID string            `json:"canteenId"`
	Items     []models.CartItem `json:"items"`
	Customer  models.Customer   `json:"customer"`
}

type lineDiscountResponse struct {
	ProductID  string `json:"productId"`
	Discounted money  `json:"discounted"`
}

type ValidateResponse struct {
	Valid          bool                   `json:"valid"`
	Reason         models.Reason          `json:"reason,omitempty"`
	Discount       *money                 `json:"discount,omitempty"`
	NewTotal       *money                 `json:"newTotal,omitempty"`
	Lines          []lineDiscountResponse `json:"lines,omitempty"`
	Target         models.Target          `json:"target,omitempty"`
	MaxRedemptions *int                   `json:"maxRedemptions,omitempty"`
	Redemptions    *int                   `json:"redemptions,omitempty"`
}

type BestResponse struct {
	Found       bool   `json:"found"`
	PromotionID string `json:"promotionId,omitempty"`
	Code        string `json:"code,omitempty"`
	Discount    *money `json:"discount,omitempty"`
	NewTotal    *money `json:"newTotal,omitempty"`
}

type recommendationResponse struct {
	PromoID     string        `json:"promoId"`
	Code        string        `json:"code"`
	Name        string        `json:"name"`
	Target      models.Target `json:"target"`
	ExpiresAt   string        `json:"expiresAt"`
	MinPurchase money         `json:"minPurchase"`
	EstDiscount money         `json:"estDiscount"`
	NewTotal    money         `json:"newTotal"`
	Reason      string        `json:"reason"`
	ReasonCode  models.Reason `json:"reasonCode,omitempty"`
	AppliesTo   string        `json:"appliesTo"`
}

type RecommendResponse struct {
	Subtotal        money                    `json:"subtotal"`
	Recommendations []recommendationResponse `json:"recommendations"`
}

// PromoHandler serves the read-only promo-code endpoints.
type PromoHandler struct {
	selector *service.Selector
	log      *zap.Logger
}

func NewPromoHandler(selector *service.Selector, log *zap.Logger) *PromoHandler {
	return &PromoHandler{selector: selector, log: log}
}

// Validate handles POST /promocode/validate
func (h *PromoHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cart, err := models.ToCartLines(req.Items)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}

	res, err := h.selector.Validate(r.Context(), req.Code, req.CanteenID, cart, req.Customer)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	if !res.Valid {
		writeJSON(w, http.StatusOK, ValidateResponse{Valid: false, Reason: res.Reason})
		return
	}

	discount, total := money(res.Discount), money(res.NewTotal)
	lines := make([]lineDiscountResponse, 0, len(res.Lines))
	for _, l := range res.Lines {
		lines = append(lines, lineDiscountResponse{ProductID: l.ProductID, Discounted: money(l.Discounted)})
	}
	writeJSON(w, http.StatusOK, ValidateResponse{
		Valid:          true,
		Discount:       &discount,
		NewTotal:       &total,
		Lines:          lines,
		Target:         res.Target,
		MaxRedemptions: &res.MaxRedemptions,
		Redemptions:    &res.Redemptions,
	})
}

// Best handles POST /promocode/best
func (h *PromoHandler) Best(w http.ResponseWriter, r *http.Request) {
	var req CartRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cart, err := models.ToCartLines(req.Items)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}

	res, err := h.selector.Best(r.Context(), req.CanteenID, cart, req.Customer)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	if !res.Found {
		writeJSON(w, http.StatusOK, BestResponse{Found: false})
		return
	}
	discount, total := money(res.Discount), money(res.NewTotal)
	writeJSON(w, http.StatusOK, BestResponse{
		Found:       true,
		PromotionID: res.PromotionID,
		Code:        res.Code,
		Discount:    &discount,
		NewTotal:    &total,
	})
}

// Recommend handles POST /promocode/recommend
func (h *PromoHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req CartRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cart, err := models.ToCartLines(req.Items)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}

	res, err := h.selector.Recommend(r.Context(), req.CanteenID, cart, req.Customer)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	recs := make([]recommendationResponse, 0, len(res.Recommendations))
	for _, rec := range res.Recommendations {
		recs = append(recs, recommendationResponse{
			PromoID:     rec.PromoID,
			Code:        rec.Code,
			Name:        rec.Name,
			Target:      rec.Target,
			ExpiresAt:   formatTime(rec.ExpiresAt),
			MinPurchase: money(rec.MinPurchase),
			EstDiscount: money(rec.EstDiscount),
			NewTotal:    money(rec.NewTotal),
			Reason:      rec.Reason,
			ReasonCode:  rec.ReasonCode,
			AppliesTo:   rec.AppliesTo,
		})
	}
	writeJSON(w, http.StatusOK, RecommendResponse{Subtotal: money(res.Subtotal), Recommendations: recs})
}
