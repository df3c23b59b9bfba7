package models

import (
	"strings"
	"time"
)

const (
	StatusTodo       = "To-do"
	StatusInProgress = "In Progress"
	StatusDone       = "Done"
)

var ValidTaskStatuses = map[string]bool{
	StatusTodo:       true,
	StatusInProgress: true,
	StatusDone:       true,
}

// NormalizeTaskStatus accepts the canonical values plus the hyphenated and
// lower-case spellings some clients send. It returns "" for anything else.
func NormalizeTaskStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "to-do", "todo", "to do":
		return StatusTodo
	case "in progress", "in-progress", "inprogress":
		return StatusInProgress
	case "done":
		return StatusDone
	}
	return ""
}

type Task struct {
	BaseModel

	ProjectID   uint       `gorm:"not null;index" json:"project_id"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `json:"description"`
	AssigneeID  *uint      `gorm:"index" json:"assignee_id"`
	Status      string     `gorm:"not null;index" json:"status"`
	DueDate     *time.Time `gorm:"index" json:"due_date"`
	Position    int        `gorm:"not null;default:0" json:"position"`
	CreatedByID uint       `gorm:"not null" json:"created_by_id"`

	// Relationships
	Comments []Comment `gorm:"foreignKey:TaskID" json:"comments,omitempty"`
}

type Comment struct {
	BaseModel

	TaskID   uint   `gorm:"not null;index" json:"task_id"`
	AuthorID uint   `gorm:"not null" json:"author_id"`
	Text     string `gorm:"not null" json:"text"`

	Author User `gorm:"foreignKey:AuthorID" json:"author"`
}
