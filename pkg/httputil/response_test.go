package httputil

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celldb/celldb/pkg/errs"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteJSON(rec, http.StatusOK, map[string]string{"hello": "world"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"hello":"world"}`, rec.Body.String())
}

func TestWriteErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"validation", errs.Validation("bad input"), http.StatusBadRequest, `{"error":"bad input"}`},
		{"authentication", errs.Authentication("no session"), http.StatusUnauthorized, `{"error":"no session"}`},
		{"permission", errs.Permission("denied"), http.StatusForbidden, `{"error":"denied"}`},
		{"not found", errs.NotFound("gone"), http.StatusNotFound, `{"error":"gone"}`},
		{"conflict", errs.Conflict("duplicate"), http.StatusConflict, `{"error":"duplicate"}`},
		{"upstream", errs.Upstream(errors.New("boom"), "store failed"), http.StatusBadGateway, `{"error":"store failed: boom"}`},
		{"unclassified", errors.New("secret detail"), http.StatusInternalServerError, `{"error":"internal server error"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tt.err)
			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestWriteNoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteNoContent(rec)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}
