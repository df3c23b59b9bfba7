package types

import (
	"time"

	"github.com/teamhub-dev/teamhub/internal/models"
)

type UserResponse struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Email: u.Email}
}

type AuthResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Message   string            `json:"message"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// NewHealthResponse reports "degraded" unless every check is "ok".
func NewHealthResponse(checks map[string]string, now time.Time) HealthResponse {
	status := "ok"
	for _, c := range checks {
		if c != "ok" {
			status = "degraded"
		}
	}
	return HealthResponse{
		Status:    status,
		Message:   "TeamHub is running",
		Timestamp: now.Format(time.RFC3339),
		Checks:    checks,
	}
}
