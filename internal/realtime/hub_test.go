package realtime

import (
	"context"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teamhub-dev/teamhub/internal/apperr"
	"go.uber.org/zap"
)

type frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func drain(t *testing.T, c *Client) []frame {
	t.Helper()
	var out []frame
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return out
			}
			var f frame
			require.NoError(t, sonic.Unmarshal(msg, &f))
			out = append(out, f)
		default:
			return out
		}
	}
}

func events(frames []frame) []string {
	names := make([]string, 0, len(frames))
	for _, f := range frames {
		names = append(names, f.Event)
	}
	return names
}

func newTestHub() *Hub {
	return NewHub(NewMemoryPresence(), zap.NewNop())
}

func TestHub_RegisterJoinsGlobalAndPrivateChannel(t *testing.T) {
	ctx := context.Background()
	hub := newTestHub()
	c := NewClient(nil, 1, "Ada")

	hub.Register(ctx, c)

	assert.Equal(t, 1, hub.Subscribers(GlobalRoom))
	assert.True(t, hub.IsOnline(ctx, 1))
	assert.Equal(t, []string{EventConnected, EventOnlineUsers}, events(drain(t, c)))

	require.NoError(t, hub.PublishToUser(1, EventNotification, map[string]any{"id": 9}))
	got := drain(t, c)
	require.Len(t, got, 1)
	assert.Equal(t, EventNotification, got[0].Event)
	assert.EqualValues(t, 9, got[0].Data.(map[string]any)["id"])
}

func TestHub_JoinLeaveIdempotent(t *testing.T) {
	hub := newTestHub()
	c := NewClient(nil, 1, "Ada")
	room := ProjectRoom(3)

	assert.True(t, hub.Join(c, room))
	assert.False(t, hub.Join(c, room))
	assert.Equal(t, 1, hub.Subscribers(room))

	assert.True(t, hub.Leave(c, room))
	assert.False(t, hub.Leave(c, room))
	assert.Equal(t, 0, hub.Subscribers(room))
}

func TestHub_BroadcastReachesOnlyRoomSubscribers(t *testing.T) {
	hub := newTestHub()
	inRoom := NewClient(nil, 1, "Ada")
	outside := NewClient(nil, 2, "Bob")

	hub.Join(inRoom, ProjectRoom(1))
	hub.Join(outside, ProjectRoom(2))

	n := hub.Broadcast(ProjectRoom(1), Event{Event: EventNewProjectMessage, Data: map[string]any{"text": "hi"}})

	assert.Equal(t, 1, n)
	assert.Equal(t, []string{EventNewProjectMessage}, events(drain(t, inRoom)))
	assert.Empty(t, drain(t, outside))
}

func TestHub_BroadcastToEmptyRoom(t *testing.T) {
	hub := newTestHub()
	assert.Equal(t, 0, hub.Broadcast("project:404", Event{Event: EventNewProjectMessage}))
}

func TestHub_UnregisterCleansUp(t *testing.T) {
	ctx := context.Background()
	hub := newTestHub()
	first := NewClient(nil, 1, "Ada")
	second := NewClient(nil, 1, "Ada")

	hub.Register(ctx, first)
	hub.Register(ctx, second)
	hub.Join(first, ProjectRoom(5))

	hub.Unregister(ctx, first)
	hub.Unregister(ctx, first)

	assert.Equal(t, 0, hub.Subscribers(ProjectRoom(5)))
	assert.Equal(t, 1, hub.Subscribers(GlobalRoom))
	assert.True(t, hub.IsOnline(ctx, 1), "second tab keeps the user online")

	hub.Unregister(ctx, second)
	assert.False(t, hub.IsOnline(ctx, 1))

	// Closed clients silently refuse frames.
	assert.False(t, first.enqueue([]byte("x")))
}

func TestHub_PresenceBroadcastOnFirstAndLastConnection(t *testing.T) {
	ctx := context.Background()
	hub := newTestHub()
	watcher := NewClient(nil, 9, "Watcher")
	hub.Register(ctx, watcher)
	drain(t, watcher)

	tab1 := NewClient(nil, 1, "Ada")
	tab2 := NewClient(nil, 1, "Ada")

	hub.Register(ctx, tab1)
	assert.Equal(t, []string{EventOnlineUsers}, events(drain(t, watcher)))

	hub.Register(ctx, tab2)
	assert.Empty(t, drain(t, watcher))

	hub.Unregister(ctx, tab1)
	assert.Empty(t, drain(t, watcher))

	hub.Unregister(ctx, tab2)
	assert.Equal(t, []string{EventOnlineUsers}, events(drain(t, watcher)))

	users, err := hub.OnlineUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []OnlineUser{{ID: 9, Name: "Watcher"}}, users)
}

func TestHub_FullBufferDropsFrames(t *testing.T) {
	hub := newTestHub()
	c := NewClient(nil, 1, "Ada")
	hub.Join(c, GlobalRoom)

	for i := 0; i < sendBuffer; i++ {
		require.Equal(t, 1, hub.Broadcast(GlobalRoom, Event{Event: EventNewGlobalMessage}))
	}
	assert.Equal(t, 0, hub.Broadcast(GlobalRoom, Event{Event: EventNewGlobalMessage}))
}

func TestParseRoom(t *testing.T) {
	typ, id, err := ParseRoom(GlobalRoom)
	require.NoError(t, err)
	assert.Equal(t, "global", typ)
	assert.Zero(t, id)

	typ, id, err = ParseRoom(ProjectRoom(12))
	require.NoError(t, err)
	assert.Equal(t, "team", typ)
	assert.Equal(t, uint(12), id)

	for _, bad := range []string{"", "project:", "project:abc", "project:0", "project:01", "project:+1", "project: 1", "lobby"} {
		_, _, err := ParseRoom(bad)
		assert.Error(t, err, bad)
	}
}

func TestRoomFromPayload(t *testing.T) {
	tests := []struct {
		name    string
		in      Payload
		want    string
		invalid bool
	}{
		{name: "defaults to global", in: Payload{}, want: GlobalRoom},
		{name: "explicit global", in: Payload{RoomType: "global"}, want: GlobalRoom},
		{name: "team room", in: Payload{RoomType: "team", ProjectID: 3}, want: "project:3"},
		{name: "room id wins", in: Payload{RoomID: "project:9", RoomType: "global"}, want: "project:9"},
		{name: "team without project", in: Payload{RoomType: "team"}, invalid: true},
		{name: "unknown type", in: Payload{RoomType: "dm", ProjectID: 3}, invalid: true},
		{name: "non canonical room id", in: Payload{RoomID: "project:01"}, invalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			room, err := roomFromPayload(tt.in)
			if tt.invalid {
				assert.True(t, apperr.Is(err, apperr.KindValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, room)
		})
	}
}
