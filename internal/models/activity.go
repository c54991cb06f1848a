package models

import "time"

// ActivityLog records a request against a protected route group.
type ActivityLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Target     string    `db:"target" json:"target"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	DeviceInfo string    `db:"device_info" json:"device_info"`
	Status     string    `db:"status" json:"status"`
	Timestamp  time.Time `db:"timestamp" json:"timestamp"`
}

// FailedLogin records a credential failure for later review.
type FailedLogin struct {
	ID        string    `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	IPAddress string    `db:"ip_address" json:"ip_address"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
}

// ActivityFilter narrows activity log listings.
type ActivityFilter struct {
	UserID string
	Status string
	Limit  int
}
