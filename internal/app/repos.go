package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/truequecito-backend/internal/data/repos"
	"github.com/yungbote/truequecito-backend/internal/platform/logger"
)

type Repos struct {
	Exchange     repos.ExchangeRepo
	Notification repos.NotificationRepo
	Product      repos.ProductRepo
	User         repos.UserRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Exchange:     repos.NewExchangeRepo(db, log),
		Notification: repos.NewNotificationRepo(db, log),
		Product:      repos.NewProductRepo(db, log),
		User:         repos.NewUserRepo(db, log),
	}
}
