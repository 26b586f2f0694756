package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
)

const (
	CodeNotPrimed    = "NOT_PRIMED"
	CodeNotFound     = "NOT_FOUND"
	CodeInvalidInput = "INVALID_INPUT"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NotPrimed() *AppError {
	return &AppError{
		Code:       CodeNotPrimed,
		Message:    "catalog has not been refreshed yet",
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

func InvalidInput(message string) *AppError {
	return &AppError{Code: CodeInvalidInput, Message: message, HTTPStatus: http.StatusBadRequest}
}

func Conflict(message string, err error) *AppError {
	return &AppError{Code: CodeConflict, Message: message, HTTPStatus: http.StatusConflict, Err: err}
}

// Internal exposes the root cause message; the API has no public callers.
func Internal(err error) *AppError {
	return &AppError{Code: CodeInternal, Message: err.Error(), HTTPStatus: http.StatusInternalServerError, Err: err}
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func WriteError(w http.ResponseWriter, err error) {
	appErr := AsAppError(err)
	WriteJSON(w, appErr.HTTPStatus, ErrorResponse{Code: appErr.Code, Message: appErr.Message})
}
