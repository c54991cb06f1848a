package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/edulearn-api/internal/models"
	appErrors "github.com/noah-isme/edulearn-api/pkg/errors"
)

type deviceRepository interface {
	Trust(ctx context.Context, device *models.TrustedDevice) error
	ListByUser(ctx context.Context, userID string) ([]models.TrustedDevice, error)
	Revoke(ctx context.Context, userID, id string) error
}

// DeviceService manages the trusted-device records the write gate checks.
// Trusting a device is what lets mutating requests through from outside
// the private network ranges.
type DeviceService struct {
	devices deviceRepository
	logger  *zap.Logger
}

// NewDeviceService constructs a DeviceService instance.
func NewDeviceService(devices deviceRepository, logger *zap.Logger) *DeviceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeviceService{devices: devices, logger: logger}
}

// Trust approves the given device string for a user. Re-trusting an
// already-trusted pair only refreshes its timestamps.
func (s *DeviceService) Trust(ctx context.Context, userID, fingerprint string) (*models.TrustedDevice, error) {
	if fingerprint == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "device identity is required")
	}

	device := &models.TrustedDevice{UserID: userID, Fingerprint: fingerprint}
	if err := s.devices.Trust(ctx, device); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to trust device")
	}

	s.logger.Info("device trusted", zap.String("user_id", userID), zap.String("device_id", device.ID))
	return device, nil
}

// List returns every trusted device the user holds.
func (s *DeviceService) List(ctx context.Context, userID string) ([]models.TrustedDevice, error) {
	devices, err := s.devices.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list devices")
	}
	return devices, nil
}

// Revoke withdraws trust from a device. The lookup is scoped to the
// owner, so revoking someone else's device reads as not found.
func (s *DeviceService) Revoke(ctx context.Context, userID, id string) error {
	if err := s.devices.Revoke(ctx, userID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "device not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke device")
	}

	s.logger.Info("device trust revoked", zap.String("user_id", userID), zap.String("device_id", id))
	return nil
}
