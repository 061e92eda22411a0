package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/fraudlab/cardsim-backend/internal/api/httpx"
	"github.com/fraudlab/cardsim-backend/internal/services"
	"github.com/shopspring/decimal"
)

// FraudHandler exposes the attacker-script side of the simulation.
type FraudHandler struct {
	Otp   *services.OtpService
	Fraud *services.FraudService
}

func NewFraudHandler(os *services.OtpService, fs *services.FraudService) *FraudHandler {
	return &FraudHandler{Otp: os, Fraud: fs}
}

func (h *FraudHandler) InitiateOtp(w http.ResponseWriter, r *http.Request) {
	uid, ok := actor(w, r)
	if !ok {
		return
	}
	var req struct {
		CardID       string          `json:"card_id"`
		Merchant     string          `json:"merchant"`
		AmountTarget decimal.Decimal `json:"amount_target"`
		Note         string          `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CardID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body", nil)
		return
	}
	sess, err := h.Otp.Initiate(r.Context(), uid, req.CardID, req.Merchant, req.AmountTarget, req.Note)
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, sess)
}

func (h *FraudHandler) Payment(w http.ResponseWriter, r *http.Request) {
	uid, ok := actor(w, r)
	if !ok {
		return
	}
	var req struct {
		SessionID   string           `json:"session_id"`
		Code        string           `json:"code"`
		Merchant    string           `json:"merchant"`
		Amount      *decimal.Decimal `json:"amount"`
		Description string           `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body", nil)
		return
	}
	res, err := h.Fraud.Pay(r.Context(), uid, req.SessionID, req.Code, req.Merchant, req.Amount, req.Description)
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *FraudHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	if sid := r.URL.Query().Get("session_id"); sid != "" {
		out, err := h.Fraud.ListBySession(r.Context(), sid)
		if err != nil {
			httpx.WriteAppError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, out)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	out, err := h.Fraud.ListTransactions(r.Context(), limit, offset)
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
