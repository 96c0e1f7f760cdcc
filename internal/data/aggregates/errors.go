package aggregates

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/truequecito-backend/internal/domain/aggregates"
)

// writeError is raised inside a transaction body. Its message becomes the
// public message of the mapped aggregate error.
type writeError struct {
	code domainagg.ErrorCode
	msg  string
}

func (e *writeError) Error() string { return e.msg }

func newWriteError(code domainagg.ErrorCode, msg string) error {
	return &writeError{code: code, msg: strings.TrimSpace(msg)}
}

func ValidationError(msg string) error { return newWriteError(domainagg.CodeValidation, msg) }

// UnauthorizedError tags an actor acting on an exchange it does not take part in.
func UnauthorizedError(msg string) error { return newWriteError(domainagg.CodeUnauthorized, msg) }

func InvariantError(msg string) error { return newWriteError(domainagg.CodeInvariantViolation, msg) }

func ConflictError(msg string) error { return newWriteError(domainagg.CodeConflict, msg) }

func RetryableError(msg string) error { return newWriteError(domainagg.CodeRetryable, msg) }

// Postgres SQLSTATEs with a fixed meaning for exchange writes.
var pgStateCodes = map[string]domainagg.ErrorCode{
	"23505": domainagg.CodeConflict,           // unique_violation
	"23503": domainagg.CodePreconditionFailed, // foreign_key_violation
	"40001": domainagg.CodeRetryable,          // serialization_failure
	"40P01": domainagg.CodeRetryable,          // deadlock_detected
	"55P03": domainagg.CodeRetryable,          // lock_not_available
}

// driverHints cover drivers without structured errors (sqlite in tests).
var driverHints = []struct {
	fragment string
	code     domainagg.ErrorCode
}{
	{"duplicate key", domainagg.CodeConflict},
	{"unique constraint", domainagg.CodeConflict},
	{"already exists", domainagg.CodeConflict},
	{"deadlock", domainagg.CodeRetryable},
	{"serialization", domainagg.CodeRetryable},
	{"database is locked", domainagg.CodeRetryable},
	{"timeout", domainagg.CodeRetryable},
	{"temporar", domainagg.CodeRetryable},
}

// MapError turns whatever a write produced into a *domainagg.Error. Errors
// that already carry a code pass through untouched.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var already *domainagg.Error
	if errors.As(err, &already) {
		return already
	}
	var we *writeError
	if errors.As(err, &we) {
		return domainagg.NewError(we.code, op, we.msg, err)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domainagg.NewError(domainagg.CodeNotFound, op, "exchange not found", err)
	}
	return domainagg.Wrap(classify(err), op, err)
}

func classify(err error) domainagg.ErrorCode {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domainagg.CodeRetryable
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if code, ok := pgStateCodes[strings.TrimSpace(pgErr.Code)]; ok {
			return code
		}
	}
	text := strings.ToLower(err.Error())
	for _, h := range driverHints {
		if strings.Contains(text, h.fragment) {
			return h.code
		}
	}
	return domainagg.CodeInternal
}
