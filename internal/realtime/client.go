package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024
	sendBuffer     = 64
)

// Client is one socket connection. A user may hold several.
type Client struct {
	ID     string
	UserID uint
	Name   string

	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool

	// guarded by Hub.mu
	rooms map[string]struct{}
}

func NewClient(conn *websocket.Conn, userID uint, name string) *Client {
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Name:   name,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		rooms:  make(map[string]struct{}),
	}
}

// enqueue never blocks; a full buffer drops the frame.
func (c *Client) enqueue(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// WritePump drains the send queue onto the socket and keeps it alive with pings.
func (c *Client) WritePump(log *zap.SugaredLogger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Warnw("failed to set write deadline", "client", c.ID, "err", err)
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Debugw("socket write failed", "client", c.ID, "user_id", c.UserID, "err", err)
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Warnw("failed to set write deadline for ping", "client", c.ID, "err", err)
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debugw("ping failed", "client", c.ID, "err", err)
				return
			}
		}
	}
}

// ReadPump decodes frames and hands them to handle until the socket closes.
func (c *Client) ReadPump(ctx context.Context, log *zap.SugaredLogger, handle func(context.Context, Inbound)) {
	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Warnw("failed to set initial read deadline", "client", c.ID, "err", err)
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Infow("websocket closed unexpectedly", "client", c.ID, "user_id", c.UserID, "err", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var in Inbound
		if err := sonic.Unmarshal(message, &in); err != nil || in.Event == "" {
			frame, _ := sonic.Marshal(Event{Event: EventError, Data: ErrorPayload{Message: "Malformed frame"}})
			c.enqueue(frame)
			continue
		}
		handle(ctx, in)
	}
}
