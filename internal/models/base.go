package models

import "time"

// BaseModel is embedded by every table. Rows are hard-deleted.
type BaseModel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// All returns every table, in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Project{},
		&ProjectMembership{},
		&Task{},
		&Comment{},
		&Invitation{},
		&MentorRequest{},
		&Notification{},
		&ChatMessage{},
		&PushToken{},
	}
}
