package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/Cheertaboi/canteen-promo-service/internal/models"
	"github.com/Cheertaboi/canteen-promo-service/internal/service"
)

type FinalizeRequest struct {
	UserID    string          `json:"userId"`
	CanteenID string          `json:"canteenId"`
	SessionTs int64           `json:"sessionTs"`
	Code      string          `json:"code"`
	Customer  models.Customer `json:"customer"`
}

type FinalizeResponse struct {
	Subtotal         money         `json:"subtotal"`
	Discount         money         `json:"discount"`
	Total            money         `json:"total"`
	PromoCode        *string       `json:"promoCode"`
	Reason           models.Reason `json:"reason,omitempty"`
	AlreadyFinalized bool          `json:"alreadyFinalized,omitempty"`
}

type SessionHandler struct {
	finalizer *service.Finalizer
	log       *zap.Logger
}

func NewSessionHandler(finalizer *service.Finalizer, log *zap.Logger) *SessionHandler {
	return &SessionHandler{finalizer: finalizer, log: log}
}

// Finalize handles POST /orders/session/finalize
func (h *SessionHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	var req FinalizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.finalizer.Finalize(r.Context(), service.FinalizeInput{
		UserID:    req.UserID,
		CanteenID: req.CanteenID,
		SessionTs: req.SessionTs,
		Code:      req.Code,
		Customer:  req.Customer,
	})
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, FinalizeResponse{
		Subtotal:         money(res.Subtotal),
		Discount:         money(res.Discount),
		Total:            money(res.Total),
		PromoCode:        res.PromoCode,
		Reason:           res.Reason,
		AlreadyFinalized: res.AlreadyFinalized,
	})
}
