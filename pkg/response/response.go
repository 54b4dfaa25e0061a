// Package response writes the mirror API's JSON envelopes.
package response

import (
	"errors"
	"net/http"
	"time"

	"github.com/zomasamka-bot/flashpay/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

type SuccessResponse struct {
	Data      any    `json:"data"`
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

// ErrorResponse carries the error code and message of an AppError.
// TrackingID is set when the failure was recorded in a trail.
type ErrorResponse struct {
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
	TrackingID string `json:"tracking_id,omitempty"`
	RequestID  string `json:"request_id"`
	Timestamp  string `json:"timestamp"`
}

func OK(c *gin.Context, data any) {
	success(c, http.StatusOK, data)
}

func Created(c *gin.Context, data any) {
	success(c, http.StatusCreated, data)
}

func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error maps err onto its AppError status and code. Anything else is logged
// with the request's logger and answered with an opaque SYS_000.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		if c.Request != nil {
			zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("unmapped error")
		}
		appErr = &apperror.AppError{
			Code:       "SYS_000",
			Message:    "Internal server error",
			HTTPStatus: http.StatusInternalServerError,
		}
	}
	requestID, ts := meta(c)
	c.JSON(appErr.HTTPStatus, ErrorResponse{
		ErrorCode:  appErr.Code,
		Message:    appErr.Message,
		TrackingID: appErr.TrackingID,
		RequestID:  requestID,
		Timestamp:  ts,
	})
}

func success(c *gin.Context, status int, data any) {
	requestID, ts := meta(c)
	c.JSON(status, SuccessResponse{Data: data, RequestID: requestID, Timestamp: ts})
}

// meta returns the request id set by the RequestID middleware, minting one
// when the handler runs without it.
func meta(c *gin.Context) (string, string) {
	id := c.GetString(RequestIDKey)
	if id == "" {
		id = uuid.NewString()
	}
	return id, time.Now().UTC().Format(timestampLayout)
}
