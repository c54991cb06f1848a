package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/edulearn-api/internal/models"
)

type activityRecorder interface {
	CreateActivity(ctx context.Context, log *models.ActivityLog) error
}

// Activity records who did what on protected route groups after the
// response is written.
func Activity(recorder activityRecorder, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		c.Next()

		var userID *string
		if user, ok := CurrentAccount(c); ok {
			userID = &user.ID
		}

		status := "success"
		if c.Writer.Status() >= 400 {
			status = "failure"
		}

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		entry := &models.ActivityLog{
			UserID:     userID,
			Action:     c.Request.Method + " " + path,
			Target:     c.Param("id"),
			IPAddress:  c.ClientIP(),
			DeviceInfo: c.GetHeader("User-Agent"),
			Status:     status,
		}
		if err := recorder.CreateActivity(c.Request.Context(), entry); err != nil {
			logger.Warn("failed to record activity", zap.String("action", entry.Action), zap.Error(err))
		}
	}
}
