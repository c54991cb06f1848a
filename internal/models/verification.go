package models

import "time"

// Code TTLs. Expiry is enforced at check time; expired records are never
// purged.
const (
	SignupCodeTTL     = 15 * time.Minute
	ResetCodeTTL      = 10 * time.Minute
	LoginChallengeTTL = 10 * time.Minute
)

// SignupVerification is a pending registration awaiting proof of email
// ownership. The user row is created only when the code is consumed;
// several pending records per email may coexist and the latest unused one
// matching the code wins.
type SignupVerification struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	Username     string     `db:"username" json:"username"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Code         string     `db:"code" json:"-"`
	DeliveryID   *string    `db:"delivery_id" json:"delivery_id,omitempty"`
	DeliveryErr  *string    `db:"delivery_error" json:"delivery_error,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	ExpiresAt    time.Time  `db:"expires_at" json:"expires_at"`
	UsedAt       *time.Time `db:"used_at" json:"used_at,omitempty"`
}

// PasswordReset is a one-time code scoped to an existing user.
type PasswordReset struct {
	ID          string     `db:"id" json:"id"`
	UserID      string     `db:"user_id" json:"user_id"`
	Channel     string     `db:"channel" json:"channel"`
	Target      string     `db:"target" json:"target"`
	Code        string     `db:"code" json:"-"`
	DeliveryID  *string    `db:"delivery_id" json:"delivery_id,omitempty"`
	DeliveryErr *string    `db:"delivery_error" json:"delivery_error,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	ExpiresAt   time.Time  `db:"expires_at" json:"expires_at"`
	UsedAt      *time.Time `db:"used_at" json:"used_at,omitempty"`
}

// LoginChallenge is a pending secondary confirmation for a repeat student
// login. The only transition is pending to approved; expiry is a derived
// predicate, not a stored state.
type LoginChallenge struct {
	ID           string     `db:"id" json:"id"`
	UserID       string     `db:"user_id" json:"user_id"`
	Token        string     `db:"token" json:"-"`
	IPAddress    string     `db:"ip_address" json:"ip_address"`
	DeviceInfo   string     `db:"device_info" json:"device_info"`
	SessionToken *string    `db:"session_token" json:"-"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	ExpiresAt    time.Time  `db:"expires_at" json:"expires_at"`
	ApprovedAt   *time.Time `db:"approved_at" json:"approved_at,omitempty"`
}

// Approved reports whether the challenge reached its terminal state.
func (c *LoginChallenge) Approved() bool {
	return c.ApprovedAt != nil
}

// Expired reports whether an unapproved challenge is permanently dead.
func (c *LoginChallenge) Expired(now time.Time) bool {
	return c.ApprovedAt == nil && now.After(c.ExpiresAt)
}
