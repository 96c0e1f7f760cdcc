package repos

import (
	"github.com/yungbote/truequecito-backend/internal/data/repos/catalog"
	"github.com/yungbote/truequecito-backend/internal/data/repos/exchange"
	"github.com/yungbote/truequecito-backend/internal/data/repos/notification"
	"github.com/yungbote/truequecito-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type ExchangeRepo = exchange.ExchangeRepo
type ExchangeListFilter = exchange.ListFilter
type NotificationRepo = notification.NotificationRepo

type ProductRepo = catalog.ProductRepo
type UserRepo = catalog.UserRepo

func NewExchangeRepo(db *gorm.DB, log *logger.Logger) ExchangeRepo {
	return exchange.NewExchangeRepo(db, log)
}

func NewNotificationRepo(db *gorm.DB, log *logger.Logger) NotificationRepo {
	return notification.NewNotificationRepo(db, log)
}

func NewProductRepo(db *gorm.DB, log *logger.Logger) ProductRepo {
	return catalog.NewProductRepo(db, log)
}

func NewUserRepo(db *gorm.DB, log *logger.Logger) UserRepo {
	return catalog.NewUserRepo(db, log)
}
