package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/set-night/boostly/internal/config"
)

// RateLimitStore counts requests per key and fixed window.
type RateLimitStore interface {
	CheckAndIncrementRateLimit(ctx context.Context, key string, window time.Time) (int, error)
}

// RateLimit returns middleware that enforces a per-owner requests per
// minute limit. A limit of 0 disables it. Storage errors let the request
// through.
func RateLimit(store RateLimitStore, limit int, now func() time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := GetOwner(c)
		if limit <= 0 || owner == "" {
			c.Next()
			return
		}

		window := now().Truncate(config.RateLimitWindow)
		count, err := store.CheckAndIncrementRateLimit(c.Request.Context(), "owner:"+owner, window)
		if err != nil {
			slog.Error("rate limit check failed", "error", err, "owner_id", owner)
			c.Next()
			return
		}

		if count > limit {
			slog.Debug("rate limited", "owner_id", owner, "count", count, "limit", limit)
			retry := window.Add(config.RateLimitWindow).Sub(now())
			c.Header("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
