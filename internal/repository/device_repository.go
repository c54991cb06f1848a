package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/edulearn-api/internal/models"
)

// DeviceRepository persists trusted device records, unique per
// (user, fingerprint).
type DeviceRepository struct {
	db *sqlx.DB
}

// NewDeviceRepository creates a new instance of DeviceRepository.
func NewDeviceRepository(db *sqlx.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// Exists reports whether a trusted device record matches the pair and
// bumps last_seen when it does.
func (r *DeviceRepository) Exists(ctx context.Context, userID, fingerprint string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE trusted_devices SET last_seen = $3 WHERE user_id = $1 AND fingerprint = $2`,
		userID, fingerprint, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("check trusted device: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check trusted device: %w", err)
	}
	return affected > 0, nil
}

// Trust records a device as approved for a user. Re-trusting an existing
// pair only refreshes its timestamps.
func (r *DeviceRepository) Trust(ctx context.Context, device *models.TrustedDevice) error {
	if device.ID == "" {
		device.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if device.FirstSeen.IsZero() {
		device.FirstSeen = now
	}
	if device.TrustedAt.IsZero() {
		device.TrustedAt = now
	}
	device.LastSeen = now

	const query = `INSERT INTO trusted_devices (id, user_id, fingerprint, first_seen, trusted_at, last_seen)
		VALUES (:id, :user_id, :fingerprint, :first_seen, :trusted_at, :last_seen)
		ON CONFLICT (user_id, fingerprint) DO UPDATE SET trusted_at = EXCLUDED.trusted_at, last_seen = EXCLUDED.last_seen`
	if _, err := r.db.NamedExecContext(ctx, query, device); err != nil {
		return fmt.Errorf("trust device: %w", err)
	}
	return nil
}

// ListByUser returns every trusted device for a user.
func (r *DeviceRepository) ListByUser(ctx context.Context, userID string) ([]models.TrustedDevice, error) {
	const query = `SELECT id, user_id, fingerprint, first_seen, trusted_at, last_seen
		FROM trusted_devices WHERE user_id = $1 ORDER BY trusted_at DESC`
	var devices []models.TrustedDevice
	if err := r.db.SelectContext(ctx, &devices, query, userID); err != nil {
		return nil, fmt.Errorf("list trusted devices: %w", err)
	}
	return devices, nil
}

// Revoke removes a trusted device by id, scoped to its owner.
func (r *DeviceRepository) Revoke(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM trusted_devices WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("revoke trusted device: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke trusted device: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
