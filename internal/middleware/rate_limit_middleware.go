package middleware

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	apperrors "github.com/ikkim/coach-portal-backend/internal/errors"
	"github.com/ikkim/coach-portal-backend/internal/ratelimit"
)

// RateLimit admits requests per client IP and route under profile.
func RateLimit(limiter *ratelimit.Limiter, profile ratelimit.Profile) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		decision, err := limiter.Admit(c.Request.Context(), c.ClientIP(), route, profile)
		if err != nil {
			log.Error("Rate limit store unavailable", err, map[string]interface{}{
				"profile": profile.Name,
				"route":   route,
			})
			apperrors.ServiceUnavailableError(c, "")
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

		if !decision.Allowed {
			retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			log.Warn("Rate limit exceeded", map[string]interface{}{
				"profile":     profile.Name,
				"route":       route,
				"retry_after": retryAfter,
			})
			apperrors.TooManyRequests(c, "")
			c.Abort()
			return
		}

		c.Next()
	}
}
