package models

const (
	RoomTypeGlobal = "global"
	RoomTypeTeam   = "team"
)

type ChatMessage struct {
	BaseModel

	SenderID   uint   `gorm:"not null" json:"sender_id"`
	SenderName string `gorm:"not null" json:"sender_name"`
	Text       string `gorm:"not null" json:"text"`
	RoomID     string `gorm:"not null;index:idx_chat_room" json:"room_id"`
	RoomType   string `gorm:"not null" json:"room_type"`
	ProjectID  *uint  `gorm:"index" json:"project_id,omitempty"`
}
