package middleware

import (
	"credlyse_backend/internal/util"
	"credlyse_backend/pkg/logger"
	"credlyse_backend/pkg/monitoring"
	"credlyse_backend/pkg/ratelimit"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestIdentity is "user:<id>" for authenticated requests and
// "ip:<client address>" otherwise.
func RequestIdentity(c *gin.Context) string {
	if claims := util.GetUserFromContext(c); claims != nil {
		return fmt.Sprintf("user:%d", claims.UserID)
	}
	return "ip:" + c.ClientIP()
}

// RateLimit denies requests once the caller's bucket is empty. Paths with one
// of the exempt prefixes are never counted.
func RateLimit(limiter *ratelimit.Limiter, exempt ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, p := range exempt {
			if strings.HasPrefix(path, p) {
				c.Next()
				return
			}
		}

		identity := RequestIdentity(c)
		if !limiter.IsAllowed(identity) {
			policy := limiter.Policy().Name
			monitoring.RateLimitedRequests.WithLabelValues(policy).Inc()
			logger.Log.Info("Rate limit exceeded",
				zap.String("identity", identity),
				zap.String("policy", policy),
				zap.String("path", path))
			util.TooManyRequests(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
