package httpjson

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/programme-lv/ojcore/srvcerror"
)

// MaxBodyBytes caps request bodies. Submitted source code is the largest.
const MaxBodyBytes = 1 << 20

const (
	statusSuccess = "success"
	statusError   = "error"
)

type JsonResponse struct {
	Status    string `json:"status"`
	Data      any    `json:"data,omitempty"`
	ErrCode   string `json:"code,omitempty"`
	ErrMsg    string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJson(w http.ResponseWriter, statusCode int, resp JsonResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

func WriteSuccessJson(w http.ResponseWriter, data any) {
	writeJson(w, http.StatusOK, JsonResponse{Status: statusSuccess, Data: data})
}

// WriteError answers with the service error's code and status. The request id
// from chi's RequestID middleware is echoed so operators can find the log line.
func WriteError(w http.ResponseWriter, r *http.Request, err *srvcerror.Error) {
	writeJson(w, err.HttpStatusCode(), JsonResponse{
		Status:    statusError,
		ErrCode:   err.ErrorCode(),
		ErrMsg:    err.Error(),
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func errBadBody() *srvcerror.Error {
	return srvcerror.Validation("bad_request", "malformed request body")
}

func errBodyTooLarge() *srvcerror.Error {
	return srvcerror.New("body_too_large", "request body too large").
		SetHttpStatusCode(http.StatusRequestEntityTooLarge)
}

// DecodeBody reads a JSON request body into v. On failure the error response
// is already written and false is returned.
func DecodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	err := json.NewDecoder(body).Decode(v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		WriteError(w, r, errBodyTooLarge())
	} else {
		WriteError(w, r, errBadBody().SetDebug(err))
	}
	return false
}

// HandleError maps err onto a JSON error response. Errors that are not
// service errors never leak their message.
func HandleError(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	srvcErr := &srvcerror.Error{}
	if !errors.As(err, &srvcErr) {
		logger.Error("internal server error", "error", err)
		WriteError(w, r, srvcerror.New("internal", http.StatusText(http.StatusInternalServerError)))
		return
	}

	attrs := []any{"error", err, "code", srvcErr.ErrorCode()}
	if srvcErr.DebugInfo() != nil {
		attrs = append(attrs, "debug", srvcErr.DebugInfo())
	}
	switch status := srvcErr.HttpStatusCode(); {
	case status >= http.StatusInternalServerError:
		logger.Error("service error", attrs...)
	default:
		logger.Info("request refused", attrs...)
	}
	WriteError(w, r, srvcErr)
}
