package handler

import (
	"github.com/zomasamka-bot/flashpay/internal/adapter/http/dto"
	"github.com/zomasamka-bot/flashpay/internal/adapter/http/middleware"
	"github.com/zomasamka-bot/flashpay/internal/core/domain"
	"github.com/zomasamka-bot/flashpay/internal/core/ports"
	"github.com/zomasamka-bot/flashpay/pkg/apperror"
	"github.com/zomasamka-bot/flashpay/pkg/response"

	"github.com/gin-gonic/gin"
)

// PaymentHandler serves the backend mirror of merchant ledgers.
type PaymentHandler struct {
	mirrorSvc ports.MirrorService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(mirrorSvc ports.MirrorService) *PaymentHandler {
	return &PaymentHandler{mirrorSvc: mirrorSvc}
}

// Create handles POST /api/v1/payments. Replays of an existing id answer 200
// with the stored record.
func (h *PaymentHandler) Create(c *gin.Context) {
	merchantID := middleware.MerchantID(c)
	if merchantID == "" {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	p, created, err := h.mirrorSvc.Create(c.Request.Context(), req.Payment(merchantID))
	if err != nil {
		response.Error(c, err)
		return
	}
	if created {
		response.Created(c, dto.FromPayment(*p))
		return
	}
	response.OK(c, dto.FromPayment(*p))
}

// Get handles GET /api/v1/payments/:id.
func (h *PaymentHandler) Get(c *gin.Context) {
	merchantID := middleware.MerchantID(c)
	if merchantID == "" {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	p, err := h.mirrorSvc.Get(c.Request.Context(), merchantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromPayment(*p))
}

// UpdateStatus handles PATCH /api/v1/payments/:id.
func (h *PaymentHandler) UpdateStatus(c *gin.Context) {
	merchantID := middleware.MerchantID(c)
	if merchantID == "" {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	p, err := h.mirrorSvc.UpdateStatus(c.Request.Context(), ports.StatusUpdate{
		MerchantID: merchantID,
		PaymentID:  c.Param("id"),
		Status:     domain.PaymentStatus(req.Status),
		TxID:       req.TxID,
		PaidAt:     req.PaidAt,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromPayment(*p))
}

// Approve handles POST /api/v1/payments/:id/approve.
func (h *PaymentHandler) Approve(c *gin.Context) {
	merchantID := middleware.MerchantID(c)
	if merchantID == "" {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if err := h.mirrorSvc.Approve(c.Request.Context(), merchantID, c.Param("id"), req.ProviderPaymentID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
