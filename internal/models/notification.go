package models

import "gorm.io/datatypes"

const (
	NotificationTaskAssigned       = "task_assigned"
	NotificationTaskCompleted      = "task_completed"
	NotificationDueDateApproaching = "due_date_approaching"
	NotificationUserMentioned      = "user_mentioned"
	NotificationProjectInvitation  = "project_invitation"
	NotificationMentorRequest      = "mentor_request"
	NotificationMentorAccepted     = "mentor_accepted"
	NotificationChatMessage        = "chat_message"
)

type Notification struct {
	BaseModel

	UserID    uint              `gorm:"not null;index" json:"user_id"`
	ProjectID *uint             `gorm:"index" json:"project_id,omitempty"`
	Message   string            `gorm:"not null" json:"message"`
	Type      string            `gorm:"not null" json:"type"`
	Link      string            `json:"link"`
	Read      bool              `gorm:"column:is_read;not null;default:false;index" json:"read"`
	Meta      datatypes.JSONMap `json:"meta,omitempty"`
}
