package dto

import (
	"time"

	"github.com/spec-kit/vps-service/internal/domain"
)

// RegisterRequest payload.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the issued token.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// UserResponse is the public account view.
type UserResponse struct {
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	Theme     string      `json:"theme"`
	Banned    bool        `json:"banned"`
	Suspended bool        `json:"suspended"`
	Balance   string      `json:"balance"`
	CreatedAt time.Time   `json:"created_at"`
}

// UpdateProfileRequest payload for self-service edits.
type UpdateProfileRequest struct {
	Email       string `json:"email"`
	Theme       string `json:"theme"`
	NewPassword string `json:"new_password"`
}

// AdminCreateUserRequest payload.
type AdminCreateUserRequest struct {
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

// AdminUpdateUserRequest payload; nil fields are untouched.
type AdminUpdateUserRequest struct {
	Email    *string      `json:"email"`
	Role     *domain.Role `json:"role"`
	Password *string      `json:"password"`
}

// SetFlagRequest toggles a boolean account flag.
type SetFlagRequest struct {
	Value bool `json:"value"`
}

// AddBalanceRequest payload.
type AddBalanceRequest struct {
	Amount string `json:"amount"`
}
