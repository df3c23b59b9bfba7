package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/teamhub-dev/teamhub/internal/apperr"
	"github.com/teamhub-dev/teamhub/internal/models"
	"github.com/teamhub-dev/teamhub/internal/notify"
	"github.com/teamhub-dev/teamhub/internal/policy"
	"github.com/teamhub-dev/teamhub/internal/realtime"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultGlobalHistory = 50
	defaultTeamHistory   = 100
	maxHistory           = 200
	maxMessageLength     = 2000
)

// Broadcaster is the part of the hub the chat service needs.
type Broadcaster interface {
	Broadcast(room string, ev realtime.Event) int
	IsOnline(ctx context.Context, userID uint) bool
}

// ChatService persists chat messages and fans them out to room subscribers.
type ChatService interface {
	realtime.ChatBackend
	ProjectHistory(ctx context.Context, actorID, projectID uint, limit int) ([]models.ChatMessage, error)
	GlobalHistory(ctx context.Context, actorID uint, limit int) ([]models.ChatMessage, error)
}

type chatService struct {
	db        *gorm.DB
	hub       Broadcaster
	notifier  Notifier
	retention time.Duration
	now       func() time.Time
	log       *zap.SugaredLogger
}

func NewChatService(db *gorm.DB, hub Broadcaster, notifier Notifier, retention time.Duration, log *zap.Logger) ChatService {
	return &chatService{
		db:        db,
		hub:       hub,
		notifier:  notifier,
		retention: retention,
		now:       time.Now,
		log:       log.Sugar().With("component", "chat"),
	}
}

func (s *chatService) Authorize(ctx context.Context, actor realtime.Actor, room string) error {
	_, _, err := s.authorizeRoom(ctx, actor.ID, room)
	return err
}

// authorizeRoom checks access and, for team rooms, returns the project.
func (s *chatService) authorizeRoom(ctx context.Context, actorID uint, room string) (*models.Project, []models.ProjectMembership, error) {
	roomType, projectID, err := realtime.ParseRoom(room)
	if err != nil {
		return nil, nil, err
	}
	if roomType == models.RoomTypeGlobal {
		return nil, nil, nil
	}
	return authorize(ctx, s.db, actorID, projectID, policy.ChatProject)
}

func (s *chatService) Send(ctx context.Context, actor realtime.Actor, room string, text string) (*models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation("Message text is required")
	}
	if len([]rune(text)) > maxMessageLength {
		return nil, apperr.Validation(fmt.Sprintf("Message must be at most %d characters", maxMessageLength))
	}

	project, memberships, err := s.authorizeRoom(ctx, actor.ID, room)
	if err != nil {
		return nil, err
	}

	name := actor.Name
	if name == "" {
		user, err := loadUser(ctx, s.db, actor.ID)
		if err != nil {
			return nil, err
		}
		name = user.Name
	}

	msg := models.ChatMessage{
		SenderID:   actor.ID,
		SenderName: name,
		Text:       text,
		RoomID:     room,
		RoomType:   models.RoomTypeGlobal,
	}
	event := realtime.EventNewGlobalMessage
	if project != nil {
		msg.RoomType = models.RoomTypeTeam
		msg.ProjectID = uintPtr(project.ID)
		event = realtime.EventNewProjectMessage
	}

	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, apperr.Internal("failed to save message", err)
	}
	s.hub.Broadcast(room, realtime.Event{Event: event, Data: msg})

	if project != nil {
		s.notifyOffline(ctx, project, memberships, &msg)
	}
	return &msg, nil
}

func (s *chatService) notifyOffline(ctx context.Context, project *models.Project, memberships []models.ProjectMembership, msg *models.ChatMessage) {
	for _, m := range memberships {
		if m.UserID == msg.SenderID || s.hub.IsOnline(ctx, m.UserID) {
			continue
		}
		s.notifier.Notify(ctx, notify.Request{
			RecipientID: m.UserID,
			Type:        models.NotificationChatMessage,
			Message:     fmt.Sprintf("%s in '%s': %s", msg.SenderName, project.Title, truncate(msg.Text, 80)),
			Link:        projectLink(project.ID) + "/chat",
			ProjectID:   uintPtr(project.ID),
			Meta:        map[string]any{"message_id": msg.ID, "room_id": msg.RoomID},
		})
	}
}

func (s *chatService) History(ctx context.Context, actor realtime.Actor, room string, limit int) ([]models.ChatMessage, error) {
	project, _, err := s.authorizeRoom(ctx, actor.ID, room)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultGlobalHistory
		if project != nil {
			limit = defaultTeamHistory
		}
	}
	if limit > maxHistory {
		limit = maxHistory
	}

	q := s.db.WithContext(ctx).Where("room_id = ?", room)
	if project == nil && s.retention > 0 {
		q = q.Where("created_at >= ?", s.now().UTC().Add(-s.retention))
	}

	var messages []models.ChatMessage
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, apperr.Internal("failed to load messages", err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *chatService) ProjectHistory(ctx context.Context, actorID, projectID uint, limit int) ([]models.ChatMessage, error) {
	return s.History(ctx, realtime.Actor{ID: actorID}, realtime.ProjectRoom(projectID), limit)
}

func (s *chatService) GlobalHistory(ctx context.Context, actorID uint, limit int) ([]models.ChatMessage, error) {
	return s.History(ctx, realtime.Actor{ID: actorID}, realtime.GlobalRoom, limit)
}

// Delete removes one of the actor's own messages and tells the room.
func (s *chatService) Delete(ctx context.Context, actor realtime.Actor, messageID uint) (*models.ChatMessage, error) {
	if messageID == 0 {
		return nil, apperr.Validation("message_id is required")
	}
	var msg models.ChatMessage
	if err := s.db.WithContext(ctx).First(&msg, messageID).Error; err != nil {
		return nil, dbErr(err, "Message not found")
	}
	if msg.SenderID != actor.ID {
		return nil, apperr.Forbidden("You can only delete your own messages")
	}
	if err := s.db.WithContext(ctx).Delete(&msg).Error; err != nil {
		return nil, apperr.Internal("failed to delete message", err)
	}

	s.hub.Broadcast(msg.RoomID, realtime.Event{
		Event: realtime.EventMessageDeleted,
		Data:  realtime.DeletedPayload{MessageID: msg.ID, RoomID: msg.RoomID},
	})
	return &msg, nil
}

func (s *chatService) Rooms(ctx context.Context, actor realtime.Actor) ([]realtime.RoomInfo, error) {
	rooms := []realtime.RoomInfo{{ID: realtime.GlobalRoom, Type: models.RoomTypeGlobal, Name: "Global chat"}}

	ids, err := projectIDsFor(ctx, s.db, actor.ID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return rooms, nil
	}

	var projects []models.Project
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Order("title ASC").Find(&projects).Error; err != nil {
		return nil, apperr.Internal("failed to load projects", err)
	}
	for _, p := range projects {
		rooms = append(rooms, realtime.RoomInfo{
			ID:        realtime.ProjectRoom(p.ID),
			Type:      models.RoomTypeTeam,
			Name:      p.Title,
			ProjectID: p.ID,
		})
	}
	return rooms, nil
}
