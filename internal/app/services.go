package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dataagg "github.com/yungbote/truequecito-backend/internal/data/aggregates"
	"github.com/yungbote/truequecito-backend/internal/observability"
	"github.com/yungbote/truequecito-backend/internal/platform/dbctx"
	"github.com/yungbote/truequecito-backend/internal/platform/gcp"
	"github.com/yungbote/truequecito-backend/internal/platform/logger"
	"github.com/yungbote/truequecito-backend/internal/platform/rediscache"
	"github.com/yungbote/truequecito-backend/internal/services"
)

type Services struct {
	Identity     services.IdentityService
	Catalog      services.CatalogService
	Receipts     services.ReceiptService
	Exchange     services.ExchangeService
	Notification services.NotificationService
}

type serviceDeps struct {
	DB      *gorm.DB
	Log     *logger.Logger
	Cfg     Config
	Repos   Repos
	Bucket  gcp.BucketService
	Cache   rediscache.Cache
	Metrics *observability.Metrics
}

func wireServices(ctx context.Context, deps serviceDeps) (Services, error) {
	log, cfg, r := deps.Log, deps.Cfg, deps.Repos
	log.Info("Wiring services...")

	messages, err := services.NewMessageCatalog(log, cfg.NotificationCatalog)
	if err != nil {
		return Services{}, fmt.Errorf("init notification catalog: %w", err)
	}

	adminIDs, err := completionRecipients(ctx, log, cfg, r)
	if err != nil {
		return Services{}, err
	}

	aggregate := dataagg.NewExchangeAggregate(dataagg.ExchangeAggregateDeps{
		Base: dataagg.BaseDeps{
			DB:    deps.DB,
			Log:   log,
			Hooks: dataagg.ChainHooks(dataagg.NewObservabilityHooks(deps.Metrics), dataagg.NewLogHooks(log)),
		},
		Exchanges:     r.Exchange,
		Notifications: r.Notification,
		Messages:      messages,
	})

	catalog := services.NewCatalogService(log, r.Product, r.User, deps.Cache, cfg.CatalogCacheTTL)
	receipts := services.NewReceiptService(log, deps.Bucket, cfg.ReceiptMaxBytes)

	return Services{
		Identity: services.NewIdentityService(log, cfg.JWTSecretKey, cfg.JWTIssuer, cfg.AccessTokenTTL),
		Catalog:  catalog,
		Receipts: receipts,
		Exchange: services.NewExchangeService(services.ExchangeServiceDeps{
			Log:             log,
			Aggregate:       aggregate,
			Exchanges:       r.Exchange,
			Catalog:         catalog,
			Receipts:        receipts,
			Completion:      services.NewAdminCompletionNotifier(log, r.Notification, messages, adminIDs),
			Metrics:         deps.Metrics,
			VerifyOwnership: cfg.ExchangeVerifyOwnership,
		}),
		Notification: services.NewNotificationService(log, r.Notification),
	}, nil
}

// completionRecipients merges configured admin ids with users holding the
// admin role. The role lookup is resolved once at startup.
func completionRecipients(ctx context.Context, log *logger.Logger, cfg Config, r Repos) ([]uuid.UUID, error) {
	ids, err := cfg.AdminUserIDs()
	if err != nil {
		return nil, err
	}
	if role := strings.TrimSpace(cfg.ExchangeAdminRole); role != "" {
		byRole, err := r.User.ListIDsByRole(dbctx.Context{Ctx: ctx}, role)
		if err != nil {
			return nil, fmt.Errorf("load %s users: %w", role, err)
		}
		ids = append(ids, byRole...)
	}
	if len(ids) == 0 {
		log.Warn("No completion recipients configured; completed exchanges notify nobody")
	}
	return ids, nil
}
