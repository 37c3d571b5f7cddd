package models

import "time"

type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleOwner UserRole = "owner"
)

func (r UserRole) Valid() bool {
	return r == RoleAdmin || r == RoleOwner
}

type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	Role         UserRole  `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
