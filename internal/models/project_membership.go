package models

type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
	RoleMentor Role = "mentor"
)

type ProjectMembership struct {
	BaseModel

	UserID    uint `gorm:"not null;uniqueIndex:idx_user_project" json:"user_id"`
	ProjectID uint `gorm:"not null;uniqueIndex:idx_user_project;index" json:"project_id"`
	Role      Role `gorm:"not null" json:"role"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"user"`
}
