package srvcerror

import (
	"errors"
	"net/http"
)

// Kind groups error codes into the classes callers branch on.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindUnavailable
)

type Error struct {
	errorCode  string
	msgToUser  string // public
	dbgInfoErr error  // private, for debugging

	kind       Kind
	httpStatus int // optional, for HTTP responses
}

func (e *Error) Error() string {
	return e.msgToUser
}

func (e *Error) ErrorCode() string {
	return e.errorCode
}

func (e *Error) Kind() Kind {
	return e.kind
}

func (e *Error) DebugInfo() error {
	return e.dbgInfoErr
}

// Unwrap exposes the debug cause to errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.dbgInfoErr
}

// Is matches another *Error by code so that sentinel-style comparisons
// against freshly constructed errors work.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.errorCode == e.errorCode
}

func (e *Error) SetDebug(err error) *Error {
	e.dbgInfoErr = err
	return e
}

func (e *Error) HttpStatusCode() int {
	if e.httpStatus == 0 {
		return http.StatusInternalServerError
	}
	return e.httpStatus
}

func (e *Error) SetHttpStatusCode(code int) *Error {
	e.httpStatus = code
	return e
}

func New(errorCode string, msgToUser string) *Error {
	return &Error{
		errorCode: errorCode,
		msgToUser: msgToUser,
	}
}

// Validation builds a 400 error for malformed input rejected before any mutation.
func Validation(errorCode string, msgToUser string) *Error {
	e := New(errorCode, msgToUser).SetHttpStatusCode(http.StatusBadRequest)
	e.kind = KindValidation
	return e
}

// NotFound builds a 404 error for a missing record, contest, problem or contestant.
func NotFound(errorCode string, msgToUser string) *Error {
	e := New(errorCode, msgToUser).SetHttpStatusCode(http.StatusNotFound)
	e.kind = KindNotFound
	return e
}

func Forbidden(errorCode string, msgToUser string) *Error {
	e := New(errorCode, msgToUser).SetHttpStatusCode(http.StatusForbidden)
	e.kind = KindForbidden
	return e
}

func Unavailable(errorCode string, msgToUser string) *Error {
	e := New(errorCode, msgToUser).SetHttpStatusCode(http.StatusServiceUnavailable)
	e.kind = KindUnavailable
	return e
}

func kindOf(err error) (Kind, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return KindInternal, false
	}
	return e.kind, true
}

func IsNotFound(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindNotFound
}

func IsValidation(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindValidation
}

const ErrCodeInternalServerError = "internal_server_error"

func ErrInternalSE() *Error {
	return New(
		ErrCodeInternalServerError,
		"internal server error",
	).SetHttpStatusCode(http.StatusInternalServerError)
}

const ErrCodeBrokerUnavailable = "broker_unavailable"

func ErrBrokerUnavailable() *Error {
	return Unavailable(
		ErrCodeBrokerUnavailable,
		"message broker is unavailable",
	)
}

func IsBrokerUnavailable(err error) bool {
	return errors.Is(err, ErrBrokerUnavailable())
}
