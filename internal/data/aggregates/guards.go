package aggregates

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/truequecito-backend/internal/domain/exchange"
	"github.com/yungbote/truequecito-backend/internal/platform/dbctx"
)

// StatusGuard performs updates that only land while the row still holds one of
// the expected statuses. A lost race surfaces as a conflict, never as a silent
// overwrite.
type StatusGuard struct {
	db *gorm.DB
}

func NewStatusGuard(db *gorm.DB) StatusGuard {
	return StatusGuard{db: db}
}

// Advance applies updates to table row id if its status is in from.
func (g StatusGuard) Advance(dbc dbctx.Context, table string, id uuid.UUID, from []exchange.Status, updates map[string]any) error {
	db := dbc.Tx
	if db == nil {
		db = g.db
	}
	if db == nil {
		return fmt.Errorf("status guard: no database handle")
	}
	table = strings.TrimSpace(table)
	switch {
	case table == "" || id == uuid.Nil:
		return ValidationError("status guard needs a table and a row id")
	case len(from) == 0:
		return ValidationError("status guard needs at least one expected status")
	case len(updates) == 0:
		return nil
	}
	res := db.WithContext(dbc.Ctx).
		Table(table).
		Where("id = ? AND status IN ?", id, exchange.StatusStrings(from)).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ConflictError("exchange status changed concurrently")
	}
	return nil
}

// RequireStatusIn rejects current unless it is one of allowed. msg becomes the
// public conflict message.
func RequireStatusIn(current exchange.Status, allowed []exchange.Status, msg string) error {
	if slices.Contains(allowed, current) {
		return nil
	}
	if strings.TrimSpace(msg) == "" {
		msg = fmt.Sprintf("exchange is %s", current)
	}
	return ConflictError(msg)
}
