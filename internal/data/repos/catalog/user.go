package catalog

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/truequecito-backend/internal/domain"
	"github.com/yungbote/truequecito-backend/internal/platform/dbctx"
	"github.com/yungbote/truequecito-backend/internal/platform/logger"
)

type UserRepo interface {
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.User, error)
	ListIDsByRole(dbc dbctx.Context, role string) ([]uuid.UUID, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, log *logger.Logger) UserRepo {
	return &userRepo{db: db, log: log.With("repo", "UserRepo")}
}

func (r *userRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.User, error) {
	if len(ids) == 0 {
		return []*types.User{}, nil
	}
	var out []*types.User
	if err := dbc.DB(r.db).
		Model(&types.User{}).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *userRepo) ListIDsByRole(dbc dbctx.Context, role string) ([]uuid.UUID, error) {
	var out []uuid.UUID
	if role == "" {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Model(&types.User{}).
		Where("role = ?", role).
		Order("created_at ASC").
		Pluck("id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
