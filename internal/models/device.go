package models

import "time"

// TrustedDevice marks a (user, device fingerprint) pair as previously
// approved for sensitive writes. The fingerprint is the request's declared
// client identity string; this is a low-assurance heuristic, not strong
// device binding.
type TrustedDevice struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	Fingerprint string    `db:"fingerprint" json:"fingerprint"`
	FirstSeen   time.Time `db:"first_seen" json:"first_seen"`
	TrustedAt   time.Time `db:"trusted_at" json:"trusted_at"`
	LastSeen    time.Time `db:"last_seen" json:"last_seen"`
}
