package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edulearn-api/internal/models"
)

type stubDevices struct {
	trusted map[string]bool
	lookups []string
}

func (s *stubDevices) Exists(ctx context.Context, userID, fingerprint string) (bool, error) {
	key := userID + "|" + fingerprint
	s.lookups = append(s.lookups, key)
	return s.trusted[key], nil
}

func trustContext(t *testing.T, remoteAddr, userAgent string, user *models.User) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/teacher/courses", nil)
	c.Request.RemoteAddr = remoteAddr
	c.Request.Header.Set("User-Agent", userAgent)
	if user != nil {
		c.Set(ContextAccountKey, user)
	}
	return c, w
}

func TestTrustGatePrivateCIDRPasses(t *testing.T) {
	devices := &stubDevices{}
	gate, err := NewTrustGate([]string{"10.0.0.0/8", "192.168.0.0/16"}, devices, nil)
	require.NoError(t, err)

	c, w := trustContext(t, "10.1.2.3:51234", "curl/8.0", &models.User{ID: "usr-1"})
	gate.Require()(c)

	assert.False(t, c.IsAborted())
	assert.NotEqual(t, http.StatusForbidden, w.Code)
	assert.Empty(t, devices.lookups, "device lookup should be skipped for internal IPs")
}

func TestTrustGateTrustedDevicePasses(t *testing.T) {
	devices := &stubDevices{trusted: map[string]bool{"usr-1|Mozilla/5.0": true}}
	gate, err := NewTrustGate([]string{"10.0.0.0/8"}, devices, nil)
	require.NoError(t, err)

	c, _ := trustContext(t, "203.0.113.9:51234", "Mozilla/5.0", &models.User{ID: "usr-1"})
	gate.Require()(c)

	assert.False(t, c.IsAborted())
	assert.Len(t, devices.lookups, 1)
}

func TestTrustGateUntrustedRejected(t *testing.T) {
	devices := &stubDevices{}
	gate, err := NewTrustGate([]string{"10.0.0.0/8"}, devices, nil)
	require.NoError(t, err)

	c, w := trustContext(t, "203.0.113.9:51234", "curl/8.0", &models.User{ID: "usr-1"})
	gate.Require()(c)

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "UNTRUSTED_DEVICE")
}

func TestTrustGateInvalidCIDR(t *testing.T) {
	_, err := NewTrustGate([]string{"not-a-cidr"}, &stubDevices{}, nil)
	require.Error(t, err)
}
