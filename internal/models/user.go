package models

import (
	"time"

	"github.com/lib/pq"
)

// UserRole is the closed set of roles. Every user holds exactly one and it
// is immutable after creation.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleTeacher UserRole = "teacher"
	RoleStudent UserRole = "student"
)

// UserStatus reflects whether a user may authenticate.
type UserStatus string

const (
	StatusActive   UserStatus = "active"
	StatusInactive UserStatus = "inactive"
	StatusBlocked  UserStatus = "blocked"
)

// User represents an account stored in the users table. Permissions is
// meaningful only for teachers; admins bypass permission checks and
// students never hold any.
type User struct {
	ID           string         `db:"id" json:"id"`
	Username     string         `db:"username" json:"username"`
	Email        string         `db:"email" json:"email"`
	Phone        *string        `db:"phone" json:"phone,omitempty"`
	PasswordHash string         `db:"password_hash" json:"-"`
	FullName     string         `db:"full_name" json:"full_name"`
	Role         UserRole       `db:"role" json:"role"`
	Status       UserStatus     `db:"status" json:"status"`
	Permissions  pq.StringArray `db:"permissions" json:"permissions,omitempty"`
	CreatedBy    *string        `db:"created_by" json:"created_by,omitempty"`
	LastLogin    *time.Time     `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// HasPermission reports whether the user may perform the capability. The
// permission set is flat; no capability implies another.
func (u *User) HasPermission(capability string) bool {
	switch u.Role {
	case RoleAdmin:
		return true
	case RoleTeacher:
		for _, p := range u.Permissions {
			if p == capability {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role     *UserRole
	Status   *UserStatus
	Search   string
	Page     int
	PageSize int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
