package middleware

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/campusbridge/onboard/pkg/errors"
	"github.com/campusbridge/onboard/pkg/logger"
	"github.com/campusbridge/onboard/pkg/response"
)

type retryAfter int

func (r retryAfter) Error() string { return fmt.Sprintf("retry after %ds", int(r)) }

func (r retryAfter) RetryAfterSeconds() int { return int(r) }

// RateLimit limits requests per (clientIP, route) within a fixed window.
// Counters live in store; when the store fails the request is let through.
func RateLimit(store RateStore, maxRequests int, window time.Duration) gin.HandlerFunc {
	return RateLimitScope(store, "global", maxRequests, window)
}

// RateLimitScope is RateLimit with a key namespace, so tighter limits on
// sensitive routes do not share counters with the global limit.
func RateLimitScope(store RateStore, scope string, maxRequests int, window time.Duration) gin.HandlerFunc {
	log := logger.WithModule("ratelimit")

	return func(c *gin.Context) {
		if store == nil || maxRequests <= 0 || window <= 0 {
			c.Next()
			return
		}

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		key := "ratelimit:" + scope + ":" + c.ClientIP() + "|" + path

		count, ttl, err := store.Increment(c.Request.Context(), key, window)
		if err != nil {
			log.Warn("rate store unavailable", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		remaining := maxRequests - count
		if remaining < 0 {
			remaining = 0
		}
		resetIn := int(math.Ceil(ttl.Seconds()))
		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(resetIn))

		if count > maxRequests {
			if resetIn < 1 {
				resetIn = 1
			}
			response.Error(c, apperrors.ErrRateLimit.WithInternal(retryAfter(resetIn)))
			c.Abort()
			return
		}

		c.Next()
	}
}
