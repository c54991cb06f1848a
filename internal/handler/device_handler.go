package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edulearn-api/internal/service"
	appErrors "github.com/noah-isme/edulearn-api/pkg/errors"
	"github.com/noah-isme/edulearn-api/pkg/response"
)

// DeviceHandler exposes trusted-device management for the authenticated
// user. The fingerprint is always taken from the request itself, never
// from the payload.
type DeviceHandler struct {
	devices *service.DeviceService
}

// NewDeviceHandler creates a new handler.
func NewDeviceHandler(devices *service.DeviceService) *DeviceHandler {
	return &DeviceHandler{devices: devices}
}

// Trust godoc
// @Summary Trust the current device
// @Description Approves the requesting device for mutating requests from outside private networks
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 201 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/devices [post]
func (h *DeviceHandler) Trust(c *gin.Context) {
	user := accountFromContext(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	device, err := h.devices.Trust(c.Request.Context(), user.ID, c.GetHeader("User-Agent"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, device)
}

// List godoc
// @Summary List trusted devices
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/devices [get]
func (h *DeviceHandler) List(c *gin.Context) {
	user := accountFromContext(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	devices, err := h.devices.List(c.Request.Context(), user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, devices, nil)
}

// Revoke godoc
// @Summary Revoke a trusted device
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Param id path string true "Device id"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /auth/devices/{id} [delete]
func (h *DeviceHandler) Revoke(c *gin.Context) {
	user := accountFromContext(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.devices.Revoke(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
