package models

const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationDeclined = "declined"
)

type Invitation struct {
	BaseModel

	ProjectID uint   `gorm:"not null;index" json:"project_id"`
	InviterID uint   `gorm:"not null" json:"inviter_id"`
	InviteeID uint   `gorm:"not null;index" json:"invitee_id"`
	Status    string `gorm:"not null;index" json:"status"`

	Project Project `gorm:"foreignKey:ProjectID" json:"project"`
	Inviter User    `gorm:"foreignKey:InviterID" json:"inviter"`
}

// MentorRequest asks a user to join a project as a read-only advisor.
type MentorRequest struct {
	BaseModel

	ProjectID   uint   `gorm:"not null;index" json:"project_id"`
	RequesterID uint   `gorm:"not null" json:"requester_id"`
	MentorID    uint   `gorm:"not null;index" json:"mentor_id"`
	Status      string `gorm:"not null;index" json:"status"`

	Project   Project `gorm:"foreignKey:ProjectID" json:"project"`
	Requester User    `gorm:"foreignKey:RequesterID" json:"requester"`
}
