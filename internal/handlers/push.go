package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/teamhub-dev/teamhub/internal/services"
	"github.com/teamhub-dev/teamhub/internal/types"
	"go.uber.org/zap"
)

type PushTokenRequest struct {
	Token    string `json:"token" binding:"required"`
	Platform string `json:"platform"`
}

type PushHandler struct {
	tokens services.PushTokenService
	log    *zap.SugaredLogger
}

func NewPushHandler(tokens services.PushTokenService, log *zap.Logger) *PushHandler {
	return &PushHandler{tokens: tokens, log: log.Sugar().With("handler", "push")}
}

func (h *PushHandler) Register(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	var body PushTokenRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		invalidRequest(ctx)
		return
	}

	token, err := h.tokens.Register(ctx.Request.Context(), userID, body.Token, body.Platform)
	if err != nil {
		respondError(ctx, h.log, err)
		return
	}
	ctx.JSON(http.StatusOK, token)
}

func (h *PushHandler) Remove(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	if err := h.tokens.Remove(ctx.Request.Context(), userID); err != nil {
		respondError(ctx, h.log, err)
		return
	}
	ctx.JSON(http.StatusOK, types.MessageResponse{Message: "Push token removed"})
}
