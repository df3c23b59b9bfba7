package realtime

import (
	"context"

	"github.com/teamhub-dev/teamhub/internal/apperr"
	"github.com/teamhub-dev/teamhub/internal/models"
	"go.uber.org/zap"
)

// Dispatcher turns inbound socket frames into hub and backend calls.
type Dispatcher struct {
	hub     *Hub
	backend ChatBackend
	log     *zap.SugaredLogger
}

func NewDispatcher(hub *Hub, backend ChatBackend, log *zap.Logger) *Dispatcher {
	return &Dispatcher{hub: hub, backend: backend, log: log.Sugar().With("component", "dispatcher")}
}

func (d *Dispatcher) Handle(ctx context.Context, c *Client, in Inbound) {
	actor := Actor{ID: c.UserID, Name: c.Name}

	var err error
	switch in.Event {
	case EventSendMessage:
		var room string
		if room, err = roomFromPayload(in.Data); err == nil {
			_, err = d.backend.Send(ctx, actor, room, in.Data.Text)
		}
	case EventSendGlobalMessage:
		_, err = d.backend.Send(ctx, actor, GlobalRoom, in.Data.Text)
	case EventSendProjectMessage:
		_, err = d.backend.Send(ctx, actor, ProjectRoom(in.Data.ProjectID), in.Data.Text)

	case EventJoinRoom:
		var room string
		if room, err = roomFromPayload(in.Data); err == nil {
			err = d.join(ctx, c, actor, room, EventJoinedRoom, EventChatHistory)
		}
	case EventJoinProjectRoom:
		err = d.join(ctx, c, actor, ProjectRoom(in.Data.ProjectID), EventJoinedProjectRoom, EventProjectMessagesHistory)
	case EventLeaveRoom:
		var room string
		if room, err = roomFromPayload(in.Data); err == nil {
			d.leave(c, room)
		}
	case EventLeaveProjectRoom:
		d.leave(c, ProjectRoom(in.Data.ProjectID))

	case EventRequestOnlineUsers:
		var users []OnlineUser
		if users, err = d.hub.OnlineUsers(ctx); err == nil {
			d.hub.SendTo(c, Event{Event: EventOnlineUsers, Data: users})
		}
	case EventRequestChatRooms:
		var rooms []RoomInfo
		if rooms, err = d.backend.Rooms(ctx, actor); err == nil {
			d.hub.SendTo(c, Event{Event: EventChatRooms, Data: rooms})
		}

	case EventGetGlobalMessages:
		err = d.history(ctx, c, actor, GlobalRoom, in.Data.Limit, EventGlobalMessagesHistory)
	case EventGetProjectMessages:
		err = d.history(ctx, c, actor, ProjectRoom(in.Data.ProjectID), in.Data.Limit, EventProjectMessagesHistory)
	case EventGetHistory:
		var room string
		if room, err = roomFromPayload(in.Data); err == nil {
			err = d.history(ctx, c, actor, room, in.Data.Limit, EventChatHistory)
		}

	case EventDeleteGlobalMessage, EventDeleteProjectMessage:
		_, err = d.backend.Delete(ctx, actor, in.Data.MessageID)

	default:
		err = apperr.Validation("Unknown event " + in.Event)
	}

	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal || apperr.KindOf(err) == apperr.KindUpstream {
			d.log.Errorw("socket event failed", "event", in.Event, "user_id", c.UserID, "err", err)
		}
		d.hub.SendTo(c, Event{Event: EventError, Data: ErrorPayload{
			Event:   in.Event,
			Message: apperr.PublicMessage(err),
		}})
	}
}

func (d *Dispatcher) join(ctx context.Context, c *Client, actor Actor, room, joinedEvent, historyEvent string) error {
	if err := d.backend.Authorize(ctx, actor, room); err != nil {
		return err
	}
	d.hub.Join(c, room)
	_, projectID, _ := ParseRoom(room)
	d.hub.SendTo(c, Event{Event: joinedEvent, Data: RoomPayload{RoomID: room, ProjectID: projectID}})
	return d.history(ctx, c, actor, room, 0, historyEvent)
}

func (d *Dispatcher) leave(c *Client, room string) {
	d.hub.Leave(c, room)
	d.hub.SendTo(c, Event{Event: EventLeftRoom, Data: RoomPayload{RoomID: room}})
}

func (d *Dispatcher) history(ctx context.Context, c *Client, actor Actor, room string, limit int, event string) error {
	messages, err := d.backend.History(ctx, actor, room, limit)
	if err != nil {
		return err
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	_, projectID, _ := ParseRoom(room)
	d.hub.SendTo(c, Event{Event: event, Data: HistoryPayload{
		RoomID:    room,
		ProjectID: projectID,
		Messages:  messages,
	}})
	return nil
}
