package exchange

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/truequecito-backend/internal/domain"
	domainexchange "github.com/yungbote/truequecito-backend/internal/domain/exchange"
	"github.com/yungbote/truequecito-backend/internal/platform/dbctx"
	"github.com/yungbote/truequecito-backend/internal/platform/logger"
)

// ListFilter narrows List. Zero values mean "no constraint".
type ListFilter struct {
	UserOffered   uuid.UUID
	UserRequested uuid.UUID
	Statuses      []domainexchange.Status
}

type ExchangeRepo interface {
	Create(dbc dbctx.Context, rows []*types.Exchange) ([]*types.Exchange, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Exchange, error)
	List(dbc dbctx.Context, filter ListFilter) ([]*types.Exchange, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Exchange, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	CompleteWhenReceiptsPresent(dbc dbctx.Context, id uuid.UUID, at time.Time) (bool, error)
}

type exchangeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExchangeRepo(db *gorm.DB, log *logger.Logger) ExchangeRepo {
	return &exchangeRepo{db: db, log: log.With("repo", "ExchangeRepo")}
}

func (r *exchangeRepo) Create(dbc dbctx.Context, rows []*types.Exchange) ([]*types.Exchange, error) {
	if len(rows) == 0 {
		return []*types.Exchange{}, nil
	}
	now := time.Now().UTC()
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		if row.UpdatedAt.IsZero() {
			row.UpdatedAt = row.CreatedAt
		}
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *exchangeRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Exchange, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	var out types.Exchange
	if err := dbc.DB(r.db).Where("id = ?", id).Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns every matching row, newest first.
func (r *exchangeRepo) List(dbc dbctx.Context, filter ListFilter) ([]*types.Exchange, error) {
	q := dbc.DB(r.db).Model(&types.Exchange{})
	if filter.UserOffered != uuid.Nil {
		q = q.Where("user_offered = ?", filter.UserOffered)
	}
	if filter.UserRequested != uuid.Nil {
		q = q.Where("user_requested = ?", filter.UserRequested)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", domainexchange.StatusStrings(filter.Statuses))
	}
	var out []*types.Exchange
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *exchangeRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Exchange, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	if dbc.Tx == nil {
		return nil, fmt.Errorf("LockByID requires dbc.Tx")
	}
	var out types.Exchange
	if err := dbc.DB(nil).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *exchangeRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["updated_at"] = time.Now().UTC()
	return dbc.DB(r.db).
		Model(&types.Exchange{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// CompleteWhenReceiptsPresent flips an active exchange to completed only if
// both receipt slots are filled, in a single conditional UPDATE. It reports
// whether this call performed the transition, so concurrent uploaders see
// exactly one true.
func (r *exchangeRepo) CompleteWhenReceiptsPresent(dbc dbctx.Context, id uuid.UUID, at time.Time) (bool, error) {
	if id == uuid.Nil {
		return false, fmt.Errorf("missing id")
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	res := dbc.DB(r.db).
		Model(&types.Exchange{}).
		Where("id = ? AND status IN ? AND receipt_offered <> '' AND receipt_requested <> ''",
			id, domainexchange.StatusStrings(domainexchange.ActiveStatuses)).
		Updates(map[string]interface{}{
			"status":       string(domainexchange.StatusCompleted),
			"completed_at": at,
			"updated_at":   at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
