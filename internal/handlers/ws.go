package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/teamhub-dev/teamhub/internal/apperr"
	"github.com/teamhub-dev/teamhub/internal/middleware"
	"github.com/teamhub-dev/teamhub/internal/realtime"
	"go.uber.org/zap"
)

type WSHandler struct {
	hub        *realtime.Hub
	dispatcher *realtime.Dispatcher
	auth       *middleware.Authenticator
	upgrader   websocket.Upgrader
	log        *zap.SugaredLogger
}

// NewWSHandler accepts browser origins from allowedOrigins ("*" allows any).
// Requests without an Origin header are not from a browser and pass.
func NewWSHandler(hub *realtime.Hub, dispatcher *realtime.Dispatcher, authenticator *middleware.Authenticator, allowedOrigins []string, log *zap.Logger) *WSHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return &WSHandler{
		hub:        hub,
		dispatcher: dispatcher,
		auth:       authenticator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
		log: log.Sugar().With("handler", "ws"),
	}
}

// WebSocket authenticates before upgrading so a bad token gets a plain 401.
func (h *WSHandler) WebSocket(c *gin.Context) {
	token, err := h.auth.TokenFromRequest(c.Request)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	user, err := h.auth.Resolve(c.Request.Context(), token)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.PublicMessage(err)})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warnw("WebSocket upgrade failed", "user_id", user.ID, "err", err)
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	client := realtime.NewClient(conn, user.ID, user.Name)
	h.hub.Register(ctx, client)
	h.log.Infow("WebSocket connected", "user_id", user.ID, "client", client.ID)

	defer func() {
		h.hub.Unregister(ctx, client)
		h.log.Infow("WebSocket connection closed", "user_id", user.ID, "client", client.ID)
	}()

	go client.WritePump(h.log)
	client.ReadPump(ctx, h.log, func(ctx context.Context, in realtime.Inbound) {
		h.dispatcher.Handle(ctx, client, in)
	})
}
