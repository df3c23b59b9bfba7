package models

import "time"

type Project struct {
	BaseModel

	Title       string     `gorm:"not null" json:"title"`
	Description string     `json:"description"`
	Course      string     `json:"course"`
	Deadline    *time.Time `json:"deadline"`
	OwnerID     uint       `gorm:"not null;index" json:"owner_id"`

	// Relationships
	Memberships []ProjectMembership `gorm:"foreignKey:ProjectID" json:"-"`
}
