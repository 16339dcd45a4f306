package apierr

import (
	"errors"
	"fmt"
	"net/http"

	domainerrors "github.com/yungbote/dreamworld-backend/internal/pkg/errors"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// FromError maps a domain error onto an HTTP status and a stable error code.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	switch {
	case errors.Is(err, domainerrors.ErrValidation):
		return New(http.StatusBadRequest, "validation_error", err)
	case errors.Is(err, domainerrors.ErrNotFound):
		return New(http.StatusNotFound, "not_found", err)
	case errors.Is(err, domainerrors.ErrPersistence):
		return New(http.StatusServiceUnavailable, "persistence_error", err)
	default:
		return New(http.StatusInternalServerError, "internal_error", err)
	}
}
