package httpjson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/programme-lv/ojcore/srvcerror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) JsonResponse {
	t.Helper()
	var resp JsonResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestHandleServiceError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/records/x", nil)
	err := fmt.Errorf("submit: %w", srvcerror.NotFound("record_not_found", "no such record"))
	HandleError(slog.Default(), rec, req, err)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "record_not_found", resp.ErrCode)
	assert.Equal(t, "no such record", resp.ErrMsg)
}

func TestHandlePlainErrorHidesDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	HandleError(slog.Default(), rec, req, errors.New("dynamodb: throttled"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "internal", resp.ErrCode)
	assert.NotContains(t, resp.ErrMsg, "dynamodb")
}

func TestErrorEchoesRequestID(t *testing.T) {
	h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HandleError(slog.Default(), w, r, srvcerror.Validation("invalid_id", "invalid rid"))
	}))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "req-42", decode(t, rec).RequestID)
}

func TestWriteSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccessJson(rec, map[string]int{"n": 1})
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	resp := decode(t, rec)
	assert.Equal(t, "success", resp.Status)
}

func TestDecodeBody(t *testing.T) {
	var v struct {
		Lang string `json:"lang"`
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"lang":"cc"}`))
	require.True(t, DecodeBody(rec, req, &v))
	assert.Equal(t, "cc", v.Lang)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"lang":`))
	require.False(t, DecodeBody(rec, req, &v))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_request", decode(t, rec).ErrCode)

	big := append([]byte(`{"lang":"`), bytes.Repeat([]byte("a"), MaxBodyBytes)...)
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(append(big, '"', '}')))
	require.False(t, DecodeBody(rec, req, &v))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
