package models

import "time"

type User struct {
	BaseModel

	Name         string     `gorm:"not null" json:"name"`
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"`
	ExternalID   *string    `gorm:"uniqueIndex" json:"-"`
	ResetToken   *string    `gorm:"index" json:"-"`
	ResetExpires *time.Time `json:"-"`
}
