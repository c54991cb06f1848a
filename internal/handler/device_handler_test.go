package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edulearn-api/internal/models"
	"github.com/noah-isme/edulearn-api/internal/service"
)

type stubTrustedDevices struct {
	byID map[string]*models.TrustedDevice
}

func (s *stubTrustedDevices) Trust(ctx context.Context, device *models.TrustedDevice) error {
	if s.byID == nil {
		s.byID = make(map[string]*models.TrustedDevice)
	}
	for _, d := range s.byID {
		if d.UserID == device.UserID && d.Fingerprint == device.Fingerprint {
			device.ID = d.ID
			return nil
		}
	}
	if device.ID == "" {
		device.ID = fmt.Sprintf("dev-%d", len(s.byID)+1)
	}
	copied := *device
	s.byID[device.ID] = &copied
	return nil
}

func (s *stubTrustedDevices) ListByUser(ctx context.Context, userID string) ([]models.TrustedDevice, error) {
	var out []models.TrustedDevice
	for _, d := range s.byID {
		if d.UserID == userID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (s *stubTrustedDevices) Revoke(ctx context.Context, userID, id string) error {
	d, ok := s.byID[id]
	if !ok || d.UserID != userID {
		return sql.ErrNoRows
	}
	delete(s.byID, id)
	return nil
}

func newDeviceTestHandler(devices ...*models.TrustedDevice) (*DeviceHandler, *stubTrustedDevices) {
	repo := &stubTrustedDevices{byID: map[string]*models.TrustedDevice{}}
	for _, d := range devices {
		repo.byID[d.ID] = d
	}
	return NewDeviceHandler(service.NewDeviceService(repo, nil)), repo
}

func TestDeviceHandlerTrustCurrentDevice(t *testing.T) {
	handler, repo := newDeviceTestHandler()

	c, w := postJSON(t, "/auth/devices", nil)
	c.Request.Header.Set("User-Agent", "Mozilla/5.0")
	asTeacher(c)
	handler.Trust(c)

	require.Equal(t, http.StatusCreated, w.Code)
	var envelope struct {
		Data models.TrustedDevice `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "tch-1", envelope.Data.UserID)
	assert.Equal(t, "Mozilla/5.0", envelope.Data.Fingerprint)
	assert.Len(t, repo.byID, 1)
}

func TestDeviceHandlerTrustRequiresAuth(t *testing.T) {
	handler, _ := newDeviceTestHandler()

	c, w := postJSON(t, "/auth/devices", nil)
	handler.Trust(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDeviceHandlerTrustWithoutIdentity(t *testing.T) {
	handler, _ := newDeviceTestHandler()

	c, w := postJSON(t, "/auth/devices", nil)
	c.Request.Header.Del("User-Agent")
	asTeacher(c)
	handler.Trust(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeviceHandlerListOwnDevicesOnly(t *testing.T) {
	handler, _ := newDeviceTestHandler(
		&models.TrustedDevice{ID: "dev-1", UserID: "tch-1", Fingerprint: "Mozilla/5.0"},
		&models.TrustedDevice{ID: "dev-2", UserID: "tch-other", Fingerprint: "curl/8.0"},
	)

	c, w := getRequest(t, "/auth/devices")
	asTeacher(c)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data []models.TrustedDevice `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "dev-1", envelope.Data[0].ID)
}

func TestDeviceHandlerRevokeForeignDevice(t *testing.T) {
	handler, repo := newDeviceTestHandler(
		&models.TrustedDevice{ID: "dev-2", UserID: "tch-other", Fingerprint: "curl/8.0"},
	)

	c, w := getRequest(t, "/auth/devices/dev-2")
	c.Request.Method = http.MethodDelete
	c.Params = gin.Params{{Key: "id", Value: "dev-2"}}
	asTeacher(c)
	handler.Revoke(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Len(t, repo.byID, 1)
}
