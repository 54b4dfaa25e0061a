package handler

import (
	"net/http"

	"github.com/zomasamka-bot/flashpay/internal/adapter/http/dto"
	"github.com/zomasamka-bot/flashpay/internal/core/ports"

	"github.com/gin-gonic/gin"
)

// HealthCheck pings every dependency. Any failure reports degraded with 503.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := make(map[string]string, len(checkers))
		allHealthy := true

		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				checks[checker.Name()] = "unhealthy: " + err.Error()
				allHealthy = false
			} else {
				checks[checker.Name()] = "healthy"
			}
		}

		status := "healthy"
		httpCode := http.StatusOK
		if !allHealthy {
			status = "degraded"
			httpCode = http.StatusServiceUnavailable
		}

		c.JSON(httpCode, dto.HealthResponse{Status: status, Checks: checks})
	}
}
