package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error carries an explicit HTTP status for failures that do not belong to
// the aggregate error taxonomy (upload limits, media type, role gates).
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

func Forbidden(msg string) *Error {
	return New(http.StatusForbidden, "forbidden", errors.New(msg))
}

func PayloadTooLarge(msg string) *Error {
	return New(http.StatusRequestEntityTooLarge, "payload_too_large", errors.New(msg))
}

func UnsupportedMediaType(msg string) *Error {
	return New(http.StatusUnsupportedMediaType, "unsupported_media_type", errors.New(msg))
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr != nil {
		return apiErr, true
	}
	return nil, false
}
