package handler

import (
	"github.com/zomasamka-bot/flashpay/internal/adapter/http/middleware"
	"github.com/zomasamka-bot/flashpay/internal/core/ports"
	"github.com/zomasamka-bot/flashpay/internal/guard"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	MirrorSvc      ports.MirrorService
	TokenSvc       ports.TokenService
	RateLimitStore guard.WindowStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService // nil = audit logging disabled
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		rule, ok := rules[group]
		if deps.RateLimitStore == nil || !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	h := NewPaymentHandler(deps.MirrorSvc)

	payments := r.Group("/api/v1/payments", jwtAuth)
	{
		payments.POST("", rl("payments_write"), h.Create)
		payments.GET("/:id", rl("payments_read"), h.Get)
		payments.PATCH("/:id", rl("payments_write"), h.UpdateStatus)
		payments.POST("/:id/approve", rl("payments_write"), h.Approve)
	}

	return r
}
