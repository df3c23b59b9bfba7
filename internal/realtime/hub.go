package realtime

import (
	"context"
	"sync"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// Hub routes events to chat rooms and to per-user private channels.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
	users map[uint]map[*Client]struct{}

	presence Presence
	log      *zap.SugaredLogger
}

func NewHub(presence Presence, log *zap.Logger) *Hub {
	if presence == nil {
		presence = NewMemoryPresence()
	}
	return &Hub{
		rooms:    make(map[string]map[*Client]struct{}),
		users:    make(map[uint]map[*Client]struct{}),
		presence: presence,
		log:      log.Sugar().With("component", "hub"),
	}
}

func (h *Hub) Logger() *zap.SugaredLogger { return h.log }

// Register attaches the client to its user's private channel and to the
// global room, then updates presence.
func (h *Hub) Register(ctx context.Context, c *Client) {
	h.mu.Lock()
	if h.users[c.UserID] == nil {
		h.users[c.UserID] = make(map[*Client]struct{})
	}
	h.users[c.UserID][c] = struct{}{}
	h.joinLocked(c, GlobalRoom)
	h.mu.Unlock()

	first, err := h.presence.Add(ctx, c.UserID, c.Name)
	if err != nil {
		h.log.Warnw("presence add failed", "user_id", c.UserID, "err", err)
	}
	h.SendTo(c, Event{Event: EventConnected, Data: map[string]any{
		"client_id": c.ID,
		"user_id":   c.UserID,
	}})
	if first {
		h.broadcastPresence(ctx)
	}
}

// Unregister detaches the client everywhere. Safe to call twice.
func (h *Hub) Unregister(ctx context.Context, c *Client) {
	h.mu.Lock()
	conns, ok := h.users[c.UserID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := conns[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.users, c.UserID)
	}
	for room := range c.rooms {
		h.leaveLocked(c, room)
	}
	h.mu.Unlock()

	c.close()

	last, err := h.presence.Remove(ctx, c.UserID)
	if err != nil {
		h.log.Warnw("presence remove failed", "user_id", c.UserID, "err", err)
	}
	if last {
		h.broadcastPresence(ctx)
	}
}

// Join is idempotent. It reports whether the client was newly added.
func (h *Hub) Join(c *Client, room string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.joinLocked(c, room)
}

// Leave is idempotent. It reports whether the client was a subscriber.
func (h *Hub) Leave(c *Client, room string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.leaveLocked(c, room)
}

func (h *Hub) joinLocked(c *Client, room string) bool {
	if _, ok := c.rooms[room]; ok {
		return false
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][c] = struct{}{}
	c.rooms[room] = struct{}{}
	return true
}

func (h *Hub) leaveLocked(c *Client, room string) bool {
	if _, ok := c.rooms[room]; !ok {
		return false
	}
	delete(c.rooms, room)
	if clients, ok := h.rooms[room]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
	return true
}

// Broadcast delivers to the clients subscribed right now and returns how
// many accepted the frame.
func (h *Hub) Broadcast(room string, ev Event) int {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	return h.deliver(clients, ev)
}

func (h *Hub) BroadcastAll(ev Event) int {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.users))
	for _, conns := range h.users {
		for c := range conns {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	return h.deliver(clients, ev)
}

// PublishToUser pushes an event on the user's private channel.
// No open socket is not an error.
func (h *Hub) PublishToUser(userID uint, event string, data any) error {
	payload, err := sonic.Marshal(Event{Event: event, Data: data})
	if err != nil {
		return err
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.users[userID]))
	for c := range h.users[userID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if !c.enqueue(payload) {
			h.log.Warnw("dropped private event", "user_id", userID, "event", event, "client", c.ID)
		}
	}
	return nil
}

// SendTo replies to a single client.
func (h *Hub) SendTo(c *Client, ev Event) bool {
	return h.deliver([]*Client{c}, ev) == 1
}

func (h *Hub) deliver(clients []*Client, ev Event) int {
	if len(clients) == 0 {
		return 0
	}
	payload, err := sonic.Marshal(ev)
	if err != nil {
		h.log.Errorw("failed to encode event", "event", ev.Event, "err", err)
		return 0
	}

	delivered := 0
	for _, c := range clients {
		if c.enqueue(payload) {
			delivered++
		} else {
			h.log.Warnw("dropped event for slow or closed client", "event", ev.Event, "client", c.ID)
		}
	}
	return delivered
}

func (h *Hub) IsOnline(ctx context.Context, userID uint) bool {
	online, err := h.presence.IsOnline(ctx, userID)
	if err != nil {
		h.log.Warnw("presence lookup failed, using local view", "user_id", userID, "err", err)
		h.mu.RLock()
		defer h.mu.RUnlock()
		return len(h.users[userID]) > 0
	}
	return online
}

func (h *Hub) OnlineUsers(ctx context.Context) ([]OnlineUser, error) {
	return h.presence.List(ctx)
}

func (h *Hub) Subscribers(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) broadcastPresence(ctx context.Context) {
	users, err := h.presence.List(ctx)
	if err != nil {
		h.log.Warnw("presence list failed", "err", err)
		return
	}
	h.BroadcastAll(Event{Event: EventOnlineUsers, Data: users})
}
