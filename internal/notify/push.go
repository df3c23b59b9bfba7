package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/teamhub-dev/teamhub/internal/httpclient"
	"github.com/teamhub-dev/teamhub/internal/models"
	"gorm.io/gorm"
)

var ErrNoPushToken = errors.New("no push token registered")

// Pusher sends a mobile push for a stored notification.
type Pusher interface {
	Push(ctx context.Context, userID uint, n models.Notification) error
}

type expoMessage struct {
	To    string         `json:"to"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Sound string         `json:"sound,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

// ExpoPusher delivers through the Expo push gateway.
type ExpoPusher struct {
	db     *gorm.DB
	url    string
	client *httpclient.Client
}

func NewExpoPusher(db *gorm.DB, url string, client *httpclient.Client) *ExpoPusher {
	return &ExpoPusher{db: db, url: url, client: client}
}

func (p *ExpoPusher) Push(ctx context.Context, userID uint, n models.Notification) error {
	var token models.PushToken
	err := p.db.WithContext(ctx).Where("user_id = ?", userID).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNoPushToken
	}
	if err != nil {
		return err
	}

	title, ok := subjects[n.Type]
	if !ok {
		title = "TeamHub"
	}
	msg := expoMessage{
		To:    token.Token,
		Title: title,
		Body:  n.Message,
		Sound: "default",
		Data: map[string]any{
			"notification_id": n.ID,
			"type":            n.Type,
			"link":            n.Link,
		},
	}

	if err := p.client.PostJSON(ctx, p.url, msg, nil); err != nil {
		return fmt.Errorf("expo push: %w", err)
	}
	return nil
}
