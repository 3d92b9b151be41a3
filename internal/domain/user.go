package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role enumerates panel access levels.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is the account aggregate. Balance is a non-negative decimal credited
// by admins and consumed by the order workflow.
type User struct {
	Username     string          `json:"username"`
	Email        string          `json:"email"`
	PasswordHash string          `json:"password"`
	Role         Role            `json:"role"`
	CreatedAt    time.Time       `json:"created_at"`
	Theme        string          `json:"theme"`
	Banned       bool            `json:"banned"`
	Suspended    bool            `json:"suspended"`
	Balance      decimal.Decimal `json:"balance"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
