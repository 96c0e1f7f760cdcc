package catalog

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/truequecito-backend/internal/domain"
	"github.com/yungbote/truequecito-backend/internal/platform/dbctx"
	"github.com/yungbote/truequecito-backend/internal/platform/logger"
)

type ProductRepo interface {
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Product, error)
}

type productRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProductRepo(db *gorm.DB, log *logger.Logger) ProductRepo {
	return &productRepo{db: db, log: log.With("repo", "ProductRepo")}
}

func (r *productRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Product, error) {
	if len(ids) == 0 {
		return []*types.Product{}, nil
	}
	var out []*types.Product
	if err := dbc.DB(r.db).
		Model(&types.Product{}).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
