package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/fraudlab/cardsim-backend/internal/api/httpx"
	"github.com/fraudlab/cardsim-backend/internal/middleware"
	"github.com/fraudlab/cardsim-backend/internal/models"
	"github.com/fraudlab/cardsim-backend/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// CreditHandler groups the cardholder-facing and admin card endpoints.
type CreditHandler struct {
	Cards *services.CardService
	Otp   *services.OtpService
}

func NewCreditHandler(cs *services.CardService, os *services.OtpService) *CreditHandler {
	return &CreditHandler{Cards: cs, Otp: os}
}

func actor(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid, ok := middleware.UserID(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing identity", nil)
	}
	return uid, ok
}

func (h *CreditHandler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	uid, ok := actor(w, r)
	if !ok {
		return
	}
	var req struct {
		services.ProfileInput
		MonthlyIncome int64 `json:"monthly_income"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body", nil)
		return
	}
	cr, err := h.Cards.SubmitRequest(r.Context(), uid, req.ProfileInput, req.MonthlyIncome)
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, cr)
}

func (h *CreditHandler) MyRequests(w http.ResponseWriter, r *http.Request) {
	uid, ok := actor(w, r)
	if !ok {
		return
	}
	out, err := h.Cards.ListRequestsByUser(r.Context(), uid)
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *CreditHandler) MyCards(w http.ResponseWriter, r *http.Request) {
	uid, ok := actor(w, r)
	if !ok {
		return
	}
	out, err := h.Cards.ListCardsByUser(r.Context(), uid)
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *CreditHandler) Approve(w http.ResponseWriter, r *http.Request) {
	uid, ok := actor(w, r)
	if !ok {
		return
	}
	var req struct {
		CreditLimit decimal.Decimal `json:"credit_limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body", nil)
		return
	}
	card, err := h.Cards.Approve(r.Context(), uid, chi.URLParam(r, "id"), req.CreditLimit)
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, card)
}

func (h *CreditHandler) Reject(w http.ResponseWriter, r *http.Request) {
	uid, ok := actor(w, r)
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	cr, err := h.Cards.Reject(r.Context(), uid, chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, cr)
}

func (h *CreditHandler) Leak(w http.ResponseWriter, r *http.Request) {
	uid, ok := actor(w, r)
	if !ok {
		return
	}
	var req struct {
		Note string `json:"note"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	card, err := h.Cards.Leak(r.Context(), uid, chi.URLParam(r, "id"), req.Note)
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, card)
}

func (h *CreditHandler) PendingOtp(w http.ResponseWriter, r *http.Request) {
	uid, ok := actor(w, r)
	if !ok {
		return
	}
	out, err := h.Otp.PendingForUser(r.Context(), uid)
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *CreditHandler) ShareOtp(w http.ResponseWriter, r *http.Request) {
	uid, ok := actor(w, r)
	if !ok {
		return
	}
	var req struct {
		SessionID string `json:"session_id"`
		Code      string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body", nil)
		return
	}
	sess, err := h.Otp.Share(r.Context(), uid, req.SessionID, req.Code)
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sess)
}

func (h *CreditHandler) ReportOtp(w http.ResponseWriter, r *http.Request) {
	uid, ok := actor(w, r)
	if !ok {
		return
	}
	var req struct {
		SessionID string `json:"session_id"`
		Reason    string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body", nil)
		return
	}
	sess, err := h.Otp.Report(r.Context(), uid, req.SessionID, req.Reason)
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sess)
}

// GetCard returns one card. Someone else's card id reads as unknown
// unless the caller is an admin.
func (h *CreditHandler) GetCard(w http.ResponseWriter, r *http.Request) {
	uid, ok := actor(w, r)
	if !ok {
		return
	}
	card, err := h.Cards.GetCard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	if role, _ := middleware.Role(r.Context()); card.UserID != uid && role != models.RoleAdmin {
		httpx.WriteError(w, http.StatusNotFound, "card_not_found", "unknown card", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, card)
}
