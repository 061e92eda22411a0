package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraudlab/cardsim-backend/internal/apperr"
)

func TestWriteAppError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", apperr.Validation("invalid_input", "merchant required"), http.StatusBadRequest, "invalid_input"},
		{"not found", apperr.NotFound("card_not_found", "unknown card"), http.StatusNotFound, "card_not_found"},
		{"conflict", apperr.Conflict("otp_expired", "otp session expired"), http.StatusConflict, "otp_expired"},
		{"unauthorized", apperr.Unauthorized("otp_mismatch", "wrong otp code"), http.StatusUnauthorized, "otp_mismatch"},
		{"forbidden", apperr.Forbidden("not_owner", "nope"), http.StatusForbidden, "not_owner"},
		{"internal cause never leaks", errors.New("pq: connection reset"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteAppError(rec, tc.err)
			assert.Equal(t, tc.wantStatus, rec.Code)

			var body APIError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.wantCode, body.Code)
			assert.NotContains(t, body.Error, "pq:")
		})
	}
}
