package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"savora/internal/transport/http/response"
)

const msgTooManyAttempts = "Too many login attempts, please try again later."

type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// LoginRateLimit keys attempts by client IP. A limiter error lets the
// request through.
func LoginRateLimit(limiter RateLimiter, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.WithError(err).Warn("login rate limiter unavailable")
			c.Next()
			return
		}
		if !allowed {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(seconds))
			response.Abort(c, http.StatusTooManyRequests, msgTooManyAttempts)
			return
		}
		c.Next()
	}
}
