package aggregates

import (
	"errors"
	"strings"
)

type ErrorCode string

const (
	CodeValidation         ErrorCode = "validation"
	CodeUnauthorized       ErrorCode = "unauthorized"
	CodeNotFound           ErrorCode = "not_found"
	CodeConflict           ErrorCode = "conflict"
	CodeInvariantViolation ErrorCode = "invariant_violation"
	CodePreconditionFailed ErrorCode = "precondition_failed"
	CodeRetryable          ErrorCode = "retryable"
	CodeInternal           ErrorCode = "internal"
)

// CallerFault reports whether the code describes a request that can never
// succeed as sent.
func (c ErrorCode) CallerFault() bool {
	switch c {
	case CodeValidation, CodeUnauthorized, CodeNotFound,
		CodeConflict, CodeInvariantViolation, CodePreconditionFailed:
		return true
	}
	return false
}

// Error is what every exchange write returns on failure. Message is safe to
// show to clients; Cause is not.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
	}
	if e.Message != "" {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(e.Message)
	}
	if b.Len() == 0 {
		return string(e.Code)
	}
	b.WriteString(" (")
	b.WriteString(string(e.Code))
	b.WriteString(")")
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap tags err with code, reusing its text as the message. nil stays nil.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

func asError(err error) (*Error, bool) {
	var target *Error
	ok := errors.As(err, &target)
	return target, ok && target != nil
}

func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// CodeOf is empty for errors that never passed through this package.
func CodeOf(err error) ErrorCode {
	if e, ok := asError(err); ok {
		return e.Code
	}
	return ""
}

// MessageOf prefers the public message of an aggregate error.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := asError(err); ok && e.Message != "" {
		return e.Message
	}
	return err.Error()
}
