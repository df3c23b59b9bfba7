package notify

import (
	"context"
	"errors"

	"github.com/teamhub-dev/teamhub/internal/apperr"
	"github.com/teamhub-dev/teamhub/internal/models"
	"github.com/teamhub-dev/teamhub/internal/realtime"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Publisher delivers an event on a user's private real-time channel.
type Publisher interface {
	PublishToUser(userID uint, event string, data any) error
}

type Request struct {
	RecipientID uint
	Type        string
	Message     string
	Link        string
	ProjectID   *uint
	Meta        map[string]any
}

// Result reports each side effect separately. Only StoreErr means the
// notification does not exist; the rest are best-effort.
type Result struct {
	Notification *models.Notification
	StoreErr     error
	PublishErr   error
	MailErr      error
	PushErr      error
}

func (r Result) OK() bool {
	return r.StoreErr == nil && r.PublishErr == nil && r.MailErr == nil && r.PushErr == nil
}

type Notifier struct {
	db        *gorm.DB
	publisher Publisher
	mailer    Mailer
	pusher    Pusher
	baseURL   string
	log       *zap.SugaredLogger
}

func NewNotifier(db *gorm.DB, publisher Publisher, mailer Mailer, pusher Pusher, baseURL string, log *zap.Logger) *Notifier {
	return &Notifier{
		db:        db,
		publisher: publisher,
		mailer:    mailer,
		pusher:    pusher,
		baseURL:   baseURL,
		log:       log.Sugar().With("component", "notifier"),
	}
}

// Notify stores the notification, then publishes it, mails it and pushes it.
// It never fails the caller; failures are logged and returned in the Result.
func (n *Notifier) Notify(ctx context.Context, req Request) Result {
	var res Result

	notification := &models.Notification{
		UserID:    req.RecipientID,
		ProjectID: req.ProjectID,
		Message:   req.Message,
		Type:      req.Type,
		Link:      req.Link,
		Read:      false,
	}
	if len(req.Meta) > 0 {
		notification.Meta = datatypes.JSONMap(req.Meta)
	}

	if err := n.db.WithContext(ctx).Create(notification).Error; err != nil {
		res.StoreErr = err
		n.log.Errorw("failed to store notification", "user_id", req.RecipientID, "type", req.Type, "err", err)
		return res
	}
	res.Notification = notification

	if n.publisher != nil {
		if err := n.publisher.PublishToUser(req.RecipientID, realtime.EventNotification, notification); err != nil {
			res.PublishErr = err
			n.log.Warnw("failed to publish notification", "notification_id", notification.ID, "err", err)
		}
	}

	mailable := n.mailer != nil && MailableTypes[req.Type]
	if mailable || n.pusher != nil {
		var recipient models.User
		err := n.db.WithContext(ctx).Select("id", "name", "email").First(&recipient, req.RecipientID).Error
		if err != nil {
			n.log.Warnw("recipient lookup failed, skipping mail and push", "user_id", req.RecipientID, "err", err)
			if mailable {
				res.MailErr = err
			}
			return res
		}

		if mailable && recipient.Email != "" {
			mail := BuildMail(recipient, *notification, n.baseURL)
			if err := n.mailer.Send(ctx, mail); err != nil {
				res.MailErr = err
				n.log.Warnw("failed to send notification email", "notification_id", notification.ID, "to", recipient.Email, "err", err)
			}
		}

		if n.pusher != nil {
			if err := n.pusher.Push(ctx, recipient.ID, *notification); err != nil && !errors.Is(err, ErrNoPushToken) {
				res.PushErr = err
				n.log.Warnw("failed to push notification", "notification_id", notification.ID, "err", err)
			}
		}
	}

	return res
}

func (n *Notifier) List(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := n.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}

	var out []models.Notification
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, apperr.Internal("failed to list notifications", err)
	}
	return out, nil
}

func (n *Notifier) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := n.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, apperr.Internal("failed to count notifications", err)
	}
	return count, nil
}

// MarkRead is idempotent.
func (n *Notifier) MarkRead(ctx context.Context, userID, notificationID uint) (*models.Notification, error) {
	var notification models.Notification
	err := n.db.WithContext(ctx).First(&notification, notificationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Notification not found")
	}
	if err != nil {
		return nil, apperr.Internal("failed to load notification", err)
	}
	if notification.UserID != userID {
		return nil, apperr.Forbidden("This notification belongs to another user")
	}
	if notification.Read {
		return &notification, nil
	}

	if err := n.db.WithContext(ctx).Model(&notification).Update("is_read", true).Error; err != nil {
		return nil, apperr.Internal("failed to mark notification read", err)
	}
	notification.Read = true
	return &notification, nil
}

func (n *Notifier) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	tx := n.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if tx.Error != nil {
		return 0, apperr.Internal("failed to mark notifications read", tx.Error)
	}
	return tx.RowsAffected, nil
}
