package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/truequecito-backend/internal/data/repos"
	domainagg "github.com/yungbote/truequecito-backend/internal/domain/aggregates"
	"github.com/yungbote/truequecito-backend/internal/domain/notification"
	"github.com/yungbote/truequecito-backend/internal/platform/ctxutil"
	"github.com/yungbote/truequecito-backend/internal/platform/dbctx"
	"github.com/yungbote/truequecito-backend/internal/platform/logger"
)

type NotificationService interface {
	List(ctx context.Context, unreadOnly bool, limit int) ([]*notification.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
}

type notificationService struct {
	log           *logger.Logger
	notifications repos.NotificationRepo
}

func NewNotificationService(log *logger.Logger, notifications repos.NotificationRepo) NotificationService {
	return &notificationService{
		log:           log.With("service", "NotificationService"),
		notifications: notifications,
	}
}

func (s *notificationService) List(ctx context.Context, unreadOnly bool, limit int) ([]*notification.Notification, error) {
	const op = "Notification.List"
	actor := ctxutil.ActorID(ctx)
	if actor == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeUnauthorized, op, "authentication required", nil)
	}
	rows, err := s.notifications.ListByUser(dbctx.Context{Ctx: ctx}, actor, unreadOnly, limit)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return rows, nil
}

// MarkRead reports not found for notifications owned by someone else.
func (s *notificationService) MarkRead(ctx context.Context, id uuid.UUID) error {
	const op = "Notification.MarkRead"
	actor := ctxutil.ActorID(ctx)
	if actor == uuid.Nil {
		return domainagg.NewError(domainagg.CodeUnauthorized, op, "authentication required", nil)
	}
	if id == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "notificationId is required", nil)
	}
	ok, err := s.notifications.MarkRead(dbctx.Context{Ctx: ctx}, actor, id)
	if err != nil {
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if !ok {
		return domainagg.NewError(domainagg.CodeNotFound, op, "notification not found", nil)
	}
	return nil
}
