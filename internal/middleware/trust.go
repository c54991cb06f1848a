package middleware

import (
	"context"
	"fmt"
	"net"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/edulearn-api/pkg/errors"
	"github.com/noah-isme/edulearn-api/pkg/response"
)

type deviceChecker interface {
	Exists(ctx context.Context, userID, fingerprint string) (bool, error)
}

// TrustGate evaluates whether a request comes from a trusted origin: an
// IP inside one of the configured private CIDRs, or a device the user
// has previously trusted. The fingerprint is the User-Agent string.
type TrustGate struct {
	networks []*net.IPNet
	devices  deviceChecker
	logger   *zap.Logger
}

// NewTrustGate parses the CIDR list once at construction.
func NewTrustGate(cidrs []string, devices deviceChecker, logger *zap.Logger) (*TrustGate, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	networks := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("parse trusted cidr %q: %w", cidr, err)
		}
		networks = append(networks, network)
	}
	return &TrustGate{networks: networks, devices: devices, logger: logger}, nil
}

// Require blocks untrusted origins with 403. It must run after Auth.
func (t *TrustGate) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentAccount(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if t.trustedIP(c.ClientIP()) {
			c.Next()
			return
		}

		fingerprint := c.GetHeader("User-Agent")
		trusted, err := t.devices.Exists(c.Request.Context(), user.ID, fingerprint)
		if err != nil {
			t.logger.Error("trusted device lookup failed", zap.String("user_id", user.ID), zap.Error(err))
			response.Error(c, appErrors.ErrInternal)
			c.Abort()
			return
		}
		if !trusted {
			response.Error(c, appErrors.Clone(appErrors.ErrUntrustedDevice, "this action requires a trusted network or device"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func (t *TrustGate) trustedIP(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, network := range t.networks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
