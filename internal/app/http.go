package app

import (
	"context"

	"gorm.io/gorm"

	httpserver "github.com/yungbote/truequecito-backend/internal/http"
	httpH "github.com/yungbote/truequecito-backend/internal/http/handlers"
	httpMW "github.com/yungbote/truequecito-backend/internal/http/middleware"
	"github.com/yungbote/truequecito-backend/internal/observability"
	"github.com/yungbote/truequecito-backend/internal/platform/logger"
	"github.com/yungbote/truequecito-backend/internal/platform/rediscache"
)

// multipart framing allowance on top of the receipt itself
const uploadOverheadBytes = 1 << 20

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health       *httpH.HealthHandler
	Exchange     *httpH.ExchangeHandler
	Notification *httpH.NotificationHandler
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Identity),
	}
}

func wireHandlers(log *logger.Logger, db *gorm.DB, cache rediscache.Cache, services Services) Handlers {
	log.Info("Wiring handlers...")
	checks := []httpH.HealthCheck{{
		Name: "postgres",
		Ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}}
	if cache != nil {
		checks = append(checks, httpH.HealthCheck{Name: "redis", Ping: cache.Ping})
	}
	return Handlers{
		Health:       httpH.NewHealthHandler(checks...),
		Exchange:     httpH.NewExchangeHandler(httpH.ExchangeHandlerDeps{Log: log, Exchanges: services.Exchange}),
		Notification: httpH.NewNotificationHandler(log, services.Notification),
	}
}

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *httpserver.Server {
	otelService := ""
	if cfg.OtelEnabled {
		otelService = cfg.OtelServiceName
	}
	return httpserver.NewServer(httpserver.RouterConfig{
		Log:                 log,
		Metrics:             metrics,
		AuthMiddleware:      middleware.Auth,
		ExchangeHandler:     handlers.Exchange,
		NotificationHandler: handlers.Notification,
		HealthHandler:       handlers.Health,
		CORSOrigins:         cfg.CORSAllowedOrigins,
		AdminRole:           cfg.ExchangeAdminRole,
		MaxUploadBytes:      cfg.ReceiptMaxBytes + uploadOverheadBytes,
		OtelService:         otelService,
	})
}
