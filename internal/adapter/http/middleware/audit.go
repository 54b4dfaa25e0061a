package middleware

import (
	"net/http"
	"time"

	"github.com/zomasamka-bot/flashpay/internal/core/domain"
	"github.com/zomasamka-bot/flashpay/internal/core/ports"
	"github.com/zomasamka-bot/flashpay/internal/trail"
	"github.com/zomasamka-bot/flashpay/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuditLog records successful write operations on the mirror API.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return
		}

		op, action := mapRoute(c.FullPath(), c.Request.Method)
		if op == "" {
			return
		}

		auditSvc.Log(c.Request.Context(), &domain.TrailEntry{
			TrackingID: trail.NewTrackingID(),
			Timestamp:  time.Now().UTC(),
			Operation:  op,
			Outcome:    domain.OutcomeSuccess,
			MerchantID: MerchantID(c),
			Details: map[string]any{
				"action":     action,
				"payment_id": c.Param("id"),
				"status":     status,
				"client_ip":  c.ClientIP(),
				"request_id": c.GetString(response.RequestIDKey),
			},
		})
	}
}

func mapRoute(route, method string) (domain.Operation, string) {
	switch {
	case route == "/api/v1/payments" && method == http.MethodPost:
		return domain.OperationMirror, "create"
	case route == "/api/v1/payments/:id" && method == http.MethodPatch:
		return domain.OperationStatusChange, "update_status"
	case route == "/api/v1/payments/:id/approve" && method == http.MethodPost:
		return domain.OperationMirror, "approve"
	}
	return "", ""
}
