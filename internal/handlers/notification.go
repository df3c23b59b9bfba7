package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/teamhub-dev/teamhub/internal/models"
	"github.com/teamhub-dev/teamhub/internal/types"
	"github.com/teamhub-dev/teamhub/internal/utils"
	"go.uber.org/zap"
)

// NotificationStore is implemented by *notify.Notifier.
type NotificationStore interface {
	List(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]models.Notification, error)
	UnreadCount(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID uint) (*models.Notification, error)
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
}

type NotificationHandler struct {
	store NotificationStore
	log   *zap.SugaredLogger
}

func NewNotificationHandler(store NotificationStore, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{store: store, log: log.Sugar().With("handler", "notifications")}
}

func (h *NotificationHandler) List(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	notifications, err := h.store.List(ctx.Request.Context(), userID, ctx.Query("unread") == "true", utils.QueryLimit(ctx, types.DefaultPageLimit))
	if err != nil {
		respondError(ctx, h.log, err)
		return
	}
	ctx.JSON(http.StatusOK, notifications)
}

func (h *NotificationHandler) UnreadCount(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	count, err := h.store.UnreadCount(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, h.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"count": count})
}

func (h *NotificationHandler) MarkRead(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	notificationID, ok := pathID(ctx, "notification_id")
	if !ok {
		return
	}

	notification, err := h.store.MarkRead(ctx.Request.Context(), userID, notificationID)
	if err != nil {
		respondError(ctx, h.log, err)
		return
	}
	ctx.JSON(http.StatusOK, notification)
}

func (h *NotificationHandler) MarkAllRead(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	updated, err := h.store.MarkAllRead(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, h.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"updated": updated})
}
