package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/truequecito-backend/internal/http/response"
	"github.com/yungbote/truequecito-backend/internal/platform/logger"
	"github.com/yungbote/truequecito-backend/internal/services"
)

type NotificationHandler struct {
	log           *logger.Logger
	notifications services.NotificationService
}

func NewNotificationHandler(log *logger.Logger, notifications services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		log:           log.With("handler", "NotificationHandler"),
		notifications: notifications,
	}
}

// GET /notifications?unread=true&limit=50
func (h *NotificationHandler) List(c *gin.Context) {
	unreadOnly := false
	if v := strings.TrimSpace(c.Query("unread")); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_unread", err)
			return
		}
		unreadOnly = parsed
	}
	limit := 0
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			response.RespondError(c, http.StatusBadRequest, "invalid_limit", err)
			return
		}
		limit = n
	}
	rows, err := h.notifications.List(c.Request.Context(), unreadOnly, limit)
	if err != nil {
		_ = c.Error(err)
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"notifications": rows})
}

// PUT /notifications/:notificationId/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := pathUUID(c, "notificationId")
	if !ok {
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
