package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fraudlab/cardsim-backend/internal/apperr"
)

type APIError struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, code, msg string, details interface{}) {
	WriteJSON(w, status, APIError{
		Error:   msg,
		Code:    code,
		Details: details,
	})
}

// WriteAppError maps a service failure onto the wire. Internal failures
// are logged with their cause and surfaced as a generic body.
func WriteAppError(w http.ResponseWriter, err error) {
	ae := apperr.From(err)
	if ae.Kind == apperr.KindInternal {
		slog.Error("internal error", "err", ae.Err)
	}
	WriteError(w, ae.Kind.HTTPStatus(), ae.Code, ae.Msg, nil)
}
