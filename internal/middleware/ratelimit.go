package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/edulearn-api/pkg/errors"
	"github.com/noah-isme/edulearn-api/pkg/response"
)

type rateCounter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

const rateLimitWindow = time.Minute

// RateLimit applies a fixed-window per-IP limit backed by Redis. Without
// a Redis client, or when the counter fails, the limiter degrades open.
func RateLimit(counter rateCounter, name string, perMinute int, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		key := fmt.Sprintf("ratelimit:%s:%s", name, c.ClientIP())
		count, err := counter.Incr(c.Request.Context(), key, rateLimitWindow)
		if err != nil {
			logger.Warn("rate limit counter failed", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}
		if count > int64(perMinute) {
			response.Error(c, appErrors.Clone(appErrors.ErrRateLimited, "too many requests, try again later"))
			c.Abort()
			return
		}
		c.Next()
	}
}
