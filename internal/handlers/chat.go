package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/teamhub-dev/teamhub/internal/middleware"
	"github.com/teamhub-dev/teamhub/internal/realtime"
	"github.com/teamhub-dev/teamhub/internal/services"
	"github.com/teamhub-dev/teamhub/internal/utils"
	"go.uber.org/zap"
)

type ChatHandler struct {
	chat services.ChatService
	log  *zap.SugaredLogger
}

func NewChatHandler(chat services.ChatService, log *zap.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, log: log.Sugar().With("handler", "chat")}
}

func actorOf(user middleware.AuthenticatedUser) realtime.Actor {
	return realtime.Actor{ID: user.ID, Name: user.Name}
}

func (h *ChatHandler) Rooms(ctx *gin.Context) {
	user, err := utils.GetCurrentUser(ctx)
	if err != nil {
		unauthenticated(ctx)
		return
	}

	rooms, err := h.chat.Rooms(ctx.Request.Context(), actorOf(user))
	if err != nil {
		respondError(ctx, h.log, err)
		return
	}
	ctx.JSON(http.StatusOK, rooms)
}

func (h *ChatHandler) GlobalMessages(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	messages, err := h.chat.GlobalHistory(ctx.Request.Context(), userID, utils.QueryLimit(ctx, 0))
	if err != nil {
		respondError(ctx, h.log, err)
		return
	}
	ctx.JSON(http.StatusOK, messages)
}
