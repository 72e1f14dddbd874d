package dto

import (
	"time"

	"github.com/dormdesk/maintenance-service/internal/domain"
)

// RegisterRequest is the resident self-signup payload.
type RegisterRequest struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	Name     string  `json:"name"`
	Phone    *string `json:"phone"`
}

// LoginRequest payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse carries the signed token alongside the authenticated user.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// CreateUserRequest is the admin provisioning payload.
type CreateUserRequest struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	Name     string  `json:"name"`
	Phone    *string `json:"phone"`
	Role     string  `json:"role"`
}

// UpdateUserRequest is the profile patch; absent fields are left untouched.
type UpdateUserRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
	Name     *string `json:"name"`
	Phone    *string `json:"phone"`
	Role     *string `json:"role"`
}

// UserResponse is the public user view; the credential never leaves the server.
type UserResponse struct {
	ID        int64       `json:"id"`
	Username  string      `json:"username"`
	Role      domain.Role `json:"role"`
	Name      string      `json:"name"`
	Phone     *string     `json:"phone"`
	Avatar    *string     `json:"avatar"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Role:      user.Role,
		Name:      user.Name,
		Phone:     user.Phone,
		Avatar:    user.Avatar,
		CreatedAt: user.CreatedAt,
	}
}
