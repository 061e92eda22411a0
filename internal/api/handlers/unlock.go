package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/fraudlab/cardsim-backend/internal/api/httpx"
	"github.com/fraudlab/cardsim-backend/internal/services"
)

type UnlockHandler struct {
	Unlock *services.UnlockService
}

func NewUnlockHandler(us *services.UnlockService) *UnlockHandler {
	return &UnlockHandler{Unlock: us}
}

func (h *UnlockHandler) Request(w http.ResponseWriter, r *http.Request) {
	uid, ok := actor(w, r)
	if !ok {
		return
	}
	var req struct {
		CardID string `json:"card_id"`
		services.ProfileInput
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CardID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body", nil)
		return
	}
	out, err := h.Unlock.Request(r.Context(), uid, req.CardID, req.ProfileInput)
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, out)
}

func (h *UnlockHandler) Verify(w http.ResponseWriter, r *http.Request) {
	uid, ok := actor(w, r)
	if !ok {
		return
	}
	var req struct {
		RequestID string `json:"request_id"`
		Code      string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RequestID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body", nil)
		return
	}
	out, err := h.Unlock.Verify(r.Context(), uid, req.RequestID, req.Code)
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *UnlockHandler) Status(w http.ResponseWriter, r *http.Request) {
	uid, ok := actor(w, r)
	if !ok {
		return
	}
	cardID := r.URL.Query().Get("card_id")
	if cardID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "card_id required", nil)
		return
	}
	out, err := h.Unlock.Status(r.Context(), uid, cardID)
	if err != nil {
		httpx.WriteAppError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
