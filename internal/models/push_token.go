package models

type PushToken struct {
	BaseModel

	UserID   uint   `gorm:"not null;uniqueIndex" json:"user_id"`
	Token    string `gorm:"not null" json:"token"`
	Platform string `json:"platform"`
}
