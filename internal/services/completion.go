package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/truequecito-backend/internal/data/repos"
	"github.com/yungbote/truequecito-backend/internal/domain/exchange"
	"github.com/yungbote/truequecito-backend/internal/domain/notification"
	"github.com/yungbote/truequecito-backend/internal/platform/dbctx"
	"github.com/yungbote/truequecito-backend/internal/platform/logger"
)

// CompletionHook runs after an exchange has moved to completed and committed.
type CompletionHook interface {
	OnCompleted(ctx context.Context, e *exchange.Exchange) error
}

type CompletionHookFunc func(ctx context.Context, e *exchange.Exchange) error

func (f CompletionHookFunc) OnCompleted(ctx context.Context, e *exchange.Exchange) error {
	return f(ctx, e)
}

type adminCompletionNotifier struct {
	log           *logger.Logger
	notifications repos.NotificationRepo
	messages      notification.MessageCatalog
	adminIDs      []uuid.UUID
}

// NewAdminCompletionNotifier notifies each of adminIDs when an exchange
// completes. With no admins it does nothing.
func NewAdminCompletionNotifier(
	log *logger.Logger,
	notifications repos.NotificationRepo,
	messages notification.MessageCatalog,
	adminIDs []uuid.UUID,
) CompletionHook {
	return &adminCompletionNotifier{
		log:           log.With("service", "AdminCompletionNotifier"),
		notifications: notifications,
		messages:      messages,
		adminIDs:      uniqueIDs(adminIDs),
	}
}

func (n *adminCompletionNotifier) OnCompleted(ctx context.Context, e *exchange.Exchange) error {
	if e == nil || len(n.adminIDs) == 0 {
		return nil
	}
	msg, err := n.messages.Render(notification.KindExchangeCompleted, map[string]string{
		"status":     string(e.Status),
		"uniqueCode": e.UniqueCode,
	})
	if err != nil {
		return err
	}
	exchangeID := e.ID
	now := time.Now().UTC()
	rows := make([]*notification.Notification, 0, len(n.adminIDs))
	for _, adminID := range n.adminIDs {
		rows = append(rows, &notification.Notification{
			UserID:     adminID,
			ExchangeID: &exchangeID,
			Kind:       notification.KindExchangeCompleted,
			Message:    msg,
			CreatedAt:  now,
		})
	}
	if _, err := n.notifications.Create(dbctx.Context{Ctx: ctx}, rows); err != nil {
		return err
	}
	n.log.Info("completion notified", "exchange_id", e.ID, "admins", len(rows))
	return nil
}
