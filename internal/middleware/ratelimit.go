package middleware

import (
	"math"
	"net/http"
	"strconv"

	"greenhouse.org/growersplatform/pkg/logger"
	"greenhouse.org/growersplatform/pkg/ratelimiter"
	"greenhouse.org/growersplatform/pkg/response"
	"github.com/gin-gonic/gin"
)

// RateLimit admits requests per client key: the user id when authenticated, else the client IP.
// Limiter failures let the request through.
func RateLimit(limiter ratelimiter.Limiter, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if id := response.OptionalUserID(c); id != nil {
			key = "user:" + id.String()
		}

		res, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			log.Warn("rate limiter unavailable", "error", err, "path", c.FullPath())
			c.Next()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, please slow down"})
			return
		}
		c.Next()
	}
}
