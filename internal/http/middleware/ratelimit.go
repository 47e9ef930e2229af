package middleware

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Simon-Ruto/Together-Crowdfunding/internal/http/ratelimit"
	"github.com/Simon-Ruto/Together-Crowdfunding/internal/shared/apperr"
)

// RateLimit applies the limiter per client IP. Limiter errors let the request through.
func RateLimit(l ratelimit.Limiter, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := l.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.WarnContext(c.Request.Context(), "rate limiter unavailable", "err", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			secs := int(time.Until(res.ResetAt).Seconds()) + 1
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			Fail(c, apperr.RateLimitedErr("Too many requests, please try again later"))
			return
		}
		c.Next()
	}
}
