package middleware

import (
	"strconv"
	"time"

	"github.com/zomasamka-bot/flashpay/internal/guard"
	"github.com/zomasamka-bot/flashpay/pkg/apperror"
	"github.com/zomasamka-bot/flashpay/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// DefaultRateLimitRules returns the per-group limits of the mirror API.
func DefaultRateLimitRules() map[string]guard.Rule {
	return map[string]guard.Rule{
		"payments_write": {MaxAttempts: 120, Window: time.Minute},
		"payments_read":  {MaxAttempts: 300, Window: time.Minute},
	}
}

// RateLimiter creates a sliding-window rate limiter for one endpoint group.
// Store errors let the request through.
func RateLimiter(store guard.WindowStore, group string, rule guard.Rule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := extractIdentifier(c) + ":" + group

		allowed, err := store.Hit(c.Request.Context(), key, time.Now(), rule.Window, rule.MaxAttempts)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rule.MaxAttempts))
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(max(1, int(rule.Window.Seconds()))))
			response.Error(c, apperror.ErrRateLimitExceeded())
			c.Abort()
			return
		}

		c.Next()
	}
}

// extractIdentifier keys authenticated requests by merchant, others by IP.
func extractIdentifier(c *gin.Context) string {
	if mid := MerchantID(c); mid != "" {
		return "merchant:" + mid
	}
	return "ip:" + c.ClientIP()
}
