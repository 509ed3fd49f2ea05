package common

import (
	"errors"
	"net/http"
)

// AppError carries the HTTP status and machine readable code an error renders as.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// Unauthorized is the error every rejected bearer token maps to.
func Unauthorized(message string, err error) *AppError {
	return NewAppError("UNAUTHORIZED", message, http.StatusUnauthorized, err)
}

// WriteError renders err. AppErrors keep their code and status; anything else
// becomes fallbackStatus with a generic message so internals do not leak.
func WriteError(w http.ResponseWriter, err error, fallbackStatus int, fallbackMessage string) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = fallbackStatus
		}
		JSONError(w, status, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	code := "INTERNAL"
	if fallbackStatus == http.StatusUnauthorized {
		code = "UNAUTHORIZED"
	}
	JSONError(w, fallbackStatus, code, fallbackMessage, nil)
}
