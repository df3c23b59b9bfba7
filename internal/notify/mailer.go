package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/teamhub-dev/teamhub/internal/httpclient"
	"github.com/teamhub-dev/teamhub/internal/models"
	"go.uber.org/zap"
)

type Mail struct {
	From    string    `json:"from,omitempty"`
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Kind    string    `json:"kind,omitempty"`
	SentAt  time.Time `json:"sent_at"`
}

type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}

// MailableTypes are the notification types that are also emailed.
var MailableTypes = map[string]bool{
	models.NotificationTaskAssigned:       true,
	models.NotificationDueDateApproaching: true,
	models.NotificationProjectInvitation:  true,
	models.NotificationMentorRequest:      true,
}

var subjects = map[string]string{
	models.NotificationTaskAssigned:       "You have been assigned a task",
	models.NotificationDueDateApproaching: "A task is due tomorrow",
	models.NotificationProjectInvitation:  "You have been invited to a project",
	models.NotificationMentorRequest:      "A team would like you as their mentor",
}

// BuildMail renders the email for a stored notification.
func BuildMail(to models.User, n models.Notification, baseURL string) Mail {
	subject, ok := subjects[n.Type]
	if !ok {
		subject = "New notification"
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Hi %s,\n\n%s\n", to.Name, n.Message)
	if n.Link != "" {
		fmt.Fprintf(&body, "\nOpen it here: %s\n", AbsoluteLink(baseURL, n.Link))
	}
	body.WriteString("\nYou are receiving this because you are a member of a TeamHub project.\n")

	return Mail{
		To:      to.Email,
		Subject: subject,
		Body:    body.String(),
		Kind:    n.Type,
	}
}

func AbsoluteLink(baseURL, link string) string {
	if baseURL == "" || strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(link, "/")
}

// LogMailer writes mail to the log instead of sending it.
type LogMailer struct {
	from string
	log  *zap.SugaredLogger
}

func NewLogMailer(from string, log *zap.Logger) *LogMailer {
	return &LogMailer{from: from, log: log.Sugar().With("component", "mailer")}
}

func (m *LogMailer) Send(_ context.Context, mail Mail) error {
	m.log.Infow("mail", "from", m.from, "to", mail.To, "subject", mail.Subject, "kind", mail.Kind)
	return nil
}

// WebhookMailer hands mail to an HTTP relay as JSON.
type WebhookMailer struct {
	url    string
	from   string
	client *httpclient.Client
}

func NewWebhookMailer(url, from string, client *httpclient.Client) *WebhookMailer {
	return &WebhookMailer{url: url, from: from, client: client}
}

func (m *WebhookMailer) Send(ctx context.Context, mail Mail) error {
	mail.From = m.from
	mail.SentAt = time.Now().UTC()
	if err := m.client.PostJSON(ctx, m.url, mail, nil); err != nil {
		return fmt.Errorf("mail relay: %w", err)
	}
	return nil
}

// JobPublisher enqueues a JSON job on a named queue.
type JobPublisher interface {
	PublishJSON(ctx context.Context, queue string, v any) error
}

// QueueMailer enqueues mail for a separate delivery worker.
type QueueMailer struct {
	queue string
	from  string
	pub   JobPublisher
}

func NewQueueMailer(pub JobPublisher, queue, from string) *QueueMailer {
	return &QueueMailer{pub: pub, queue: queue, from: from}
}

func (m *QueueMailer) Send(ctx context.Context, mail Mail) error {
	mail.From = m.from
	mail.SentAt = time.Now().UTC()
	if err := m.pub.PublishJSON(ctx, m.queue, mail); err != nil {
		return fmt.Errorf("mail queue: %w", err)
	}
	return nil
}
