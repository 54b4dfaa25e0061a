package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/zomasamka-bot/flashpay/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newContext(requestID string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if requestID != "" {
		c.Set(RequestIDKey, requestID)
	}
	return c, w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestSuccessEnvelopes(t *testing.T) {
	tests := []struct {
		name   string
		write  func(*gin.Context)
		status int
	}{
		{"ok", func(c *gin.Context) { OK(c, gin.H{"id": "pi-1"}) }, http.StatusOK},
		{"created", func(c *gin.Context) { Created(c, gin.H{"id": "pi-1"}) }, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newContext("req-1")
			tt.write(c)

			assert.Equal(t, tt.status, w.Code)
			resp := decode[SuccessResponse](t, w)
			assert.Equal(t, "req-1", resp.RequestID)
			_, err := time.Parse(timestampLayout, resp.Timestamp)
			assert.NoError(t, err)
			assert.Equal(t, "pi-1", resp.Data.(map[string]any)["id"])
		})
	}
}

func TestNoContent(t *testing.T) {
	c, w := newContext("")
	NoContent(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestError_AppError(t *testing.T) {
	c, w := newContext("req-2")
	Error(c, apperror.ErrAlreadyPaid())

	assert.Equal(t, http.StatusConflict, w.Code)
	resp := decode[ErrorResponse](t, w)
	assert.Equal(t, "PAY_005", resp.ErrorCode)
	assert.Equal(t, "Payment already completed", resp.Message)
	assert.Equal(t, "req-2", resp.RequestID)
	assert.Empty(t, resp.TrackingID)
}

func TestError_WrappedAppErrorKeepsTracking(t *testing.T) {
	c, w := newContext("")
	Error(c, fmt.Errorf("outer: %w", apperror.ErrRateLimitExceeded().WithTracking("trk-1")))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	resp := decode[ErrorResponse](t, w)
	assert.Equal(t, "GRD_001", resp.ErrorCode)
	assert.Equal(t, "trk-1", resp.TrackingID)
	assert.NotEmpty(t, resp.RequestID, "a request id is minted when the middleware did not set one")
}

func TestError_UnknownErrorIsOpaque(t *testing.T) {
	c, w := newContext("req-3")
	Error(c, errors.New("pq: relation payments does not exist"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decode[ErrorResponse](t, w)
	assert.Equal(t, "SYS_000", resp.ErrorCode)
	assert.Equal(t, "Internal server error", resp.Message)
	assert.NotContains(t, w.Body.String(), "relation")
}
