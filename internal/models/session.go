package models

import "time"

// Session is a live authenticated bearer token. The token is only valid
// while this row exists; deleting the row revokes the session regardless
// of the token's own expiry claim.
type Session struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	Token      string    `db:"token" json:"token"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	DeviceInfo string    `db:"device_info" json:"device_info"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	ExpiresAt  time.Time `db:"expires_at" json:"expires_at"`
}
