package realtime

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/teamhub-dev/teamhub/internal/apperr"
	"github.com/teamhub-dev/teamhub/internal/models"
)

// Client -> server events.
const (
	EventSendMessage          = "send_message"
	EventSendGlobalMessage    = "send_global_message"
	EventSendProjectMessage   = "send_project_message"
	EventJoinRoom             = "join_room"
	EventJoinProjectRoom      = "join_project_room"
	EventLeaveRoom            = "leave_room"
	EventLeaveProjectRoom     = "leave_project_room"
	EventRequestOnlineUsers   = "request_online_users"
	EventRequestChatRooms     = "request_chat_rooms"
	EventGetGlobalMessages    = "get_global_messages"
	EventGetProjectMessages   = "get_project_messages"
	EventGetHistory           = "get_history"
	EventDeleteGlobalMessage  = "delete_global_message"
	EventDeleteProjectMessage = "delete_project_message"
)

// Server -> client events.
const (
	EventConnected              = "connected"
	EventOnlineUsers            = "online_users"
	EventChatRooms              = "chat_rooms"
	EventGlobalMessagesHistory  = "global_messages_history"
	EventProjectMessagesHistory = "project_messages_history"
	EventChatHistory            = "chat_history"
	EventJoinedRoom             = "joined_room"
	EventJoinedProjectRoom      = "joined_project_room"
	EventLeftRoom               = "left_room"
	EventNewGlobalMessage       = "new_global_message"
	EventNewProjectMessage      = "new_project_message"
	EventMessageDeleted         = "message_deleted"
	EventNotification           = "notification"
	EventError                  = "error"
)

const GlobalRoom = "global"

// Event is the frame written to sockets.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Inbound is the frame read from sockets.
type Inbound struct {
	Event string  `json:"event"`
	Data  Payload `json:"data"`
}

type Payload struct {
	RoomID    string `json:"room_id"`
	RoomType  string `json:"room_type"`
	ProjectID uint   `json:"project_id"`
	MessageID uint   `json:"message_id"`
	Text      string `json:"text"`
	Limit     int    `json:"limit"`
}

type ErrorPayload struct {
	Event   string `json:"event,omitempty"`
	Message string `json:"message"`
}

type HistoryPayload struct {
	RoomID    string               `json:"room_id"`
	ProjectID uint                 `json:"project_id,omitempty"`
	Messages  []models.ChatMessage `json:"messages"`
}

type RoomPayload struct {
	RoomID    string `json:"room_id"`
	ProjectID uint   `json:"project_id,omitempty"`
}

type DeletedPayload struct {
	MessageID uint   `json:"message_id"`
	RoomID    string `json:"room_id"`
}

// RoomInfo describes a chat room the user may join.
type RoomInfo struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Name      string `json:"name"`
	ProjectID uint   `json:"project_id,omitempty"`
}

type Actor struct {
	ID   uint
	Name string
}

// ChatBackend persists chat traffic and decides who may use which room.
type ChatBackend interface {
	Authorize(ctx context.Context, actor Actor, room string) error
	Send(ctx context.Context, actor Actor, room string, text string) (*models.ChatMessage, error)
	History(ctx context.Context, actor Actor, room string, limit int) ([]models.ChatMessage, error)
	Delete(ctx context.Context, actor Actor, messageID uint) (*models.ChatMessage, error)
	Rooms(ctx context.Context, actor Actor) ([]RoomInfo, error)
}

func ProjectRoom(projectID uint) string {
	return fmt.Sprintf("project:%d", projectID)
}

// ParseRoom splits a room id into its type and, for team rooms, the project id.
// Only canonical ids are accepted so one room never has two spellings.
func ParseRoom(room string) (string, uint, error) {
	if room == GlobalRoom {
		return models.RoomTypeGlobal, 0, nil
	}
	if rest, ok := strings.CutPrefix(room, "project:"); ok {
		id, err := strconv.ParseUint(rest, 10, 64)
		if err == nil && id > 0 && room == ProjectRoom(uint(id)) {
			return models.RoomTypeTeam, uint(id), nil
		}
	}
	return "", 0, apperr.Validation("Unknown room " + strconv.Quote(room))
}

func roomFromPayload(p Payload) (string, error) {
	if p.RoomID != "" {
		if _, _, err := ParseRoom(p.RoomID); err != nil {
			return "", err
		}
		return p.RoomID, nil
	}
	switch p.RoomType {
	case "", models.RoomTypeGlobal:
		return GlobalRoom, nil
	case models.RoomTypeTeam:
		if p.ProjectID == 0 {
			return "", apperr.Validation("project_id is required for team rooms")
		}
		return ProjectRoom(p.ProjectID), nil
	}
	return "", apperr.Validation("Unknown room type " + strconv.Quote(p.RoomType))
}
