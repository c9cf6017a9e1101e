package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/minhngo-dev/thiepcuoi-backend/pkg/db/models"
)

// LoginRequest captures the credentials sent to the admin login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	// ClientIP is filled by the controller, never from the body.
	ClientIP string `json:"-"`
}

// RefreshRequest carries the expired access token and the refresh token to rotate.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AdminDTO is the admin account shape returned to the back office client.
type AdminDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// LoginResponse contains the token pair and the authenticated admin.
type LoginResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	Admin        AdminDTO `json:"admin"`
}

// RefreshResponse contains the rotated token pair.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// FromModel converts an admin row to its API shape.
func FromModel(admin *models.AdminUser) AdminDTO {
	return AdminDTO{
		ID:          admin.ID,
		Email:       admin.Email,
		DisplayName: admin.DisplayName,
		LastLoginAt: admin.LastLoginAt,
	}
}
