package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/whomimohshukla/freelancehub/internal/services"
	"github.com/whomimohshukla/freelancehub/pkg/logger"
	"github.com/whomimohshukla/freelancehub/pkg/response"
)

// maxWebhookBody caps gateway webhook payloads
const maxWebhookBody = 1 << 20

type PaymentHandler struct {
	paymentService *services.PaymentService
}

func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

type createOrderRequest struct {
	MilestoneID uint `json:"milestone_id" binding:"required"`
}

// CreateOrder opens a gateway checkout that funds a milestone
// POST /api/v1/payments/orders
func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	checkout, err := h.paymentService.CreateOrder(c.Request.Context(), actorFrom(c), req.MilestoneID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, checkout)
}

// Verify checks the checkout signature and moves the funds into escrow
// POST /api/v1/payments/verify
func (h *PaymentHandler) Verify(c *gin.Context) {
	var req services.VerifyPaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	payment, err := h.paymentService.VerifyPayment(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, payment)
}

// Release pays out an approved milestone now instead of waiting for the sweep
// POST /api/v1/payments/:id/release
func (h *PaymentHandler) Release(c *gin.Context) {
	id, ok := paramID(c, "id", "payment")
	if !ok {
		return
	}

	payment, err := h.paymentService.Release(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, payment)
}

// POST /api/v1/payments/:id/refund
func (h *PaymentHandler) Refund(c *gin.Context) {
	id, ok := paramID(c, "id", "payment")
	if !ok {
		return
	}

	var req reasonRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	payment, err := h.paymentService.Refund(c.Request.Context(), actorFrom(c), id, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, payment)
}

// Webhook receives gateway events; the signature header authenticates the call
// POST /api/v1/payments/webhook
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		response.BadRequest(c, "failed to read request body")
		return
	}

	result, err := h.paymentService.HandleWebhook(c.Request.Context(), body, c.GetHeader("X-Razorpay-Signature"))
	if err != nil {
		logger.Warn().Err(err).Str("ip", c.ClientIP()).Msg("[Payment] webhook rejected")
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// SetPayoutAccount stores the freelancer's linked account
// PUT /api/v1/payments/payout-account
func (h *PaymentHandler) SetPayoutAccount(c *gin.Context) {
	var req services.PayoutAccountRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.paymentService.SetPayoutAccount(actorFrom(c), &req); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessMessage(c, "payout account saved", gin.H{"account_id": req.AccountID})
}

// GET /api/v1/payments
func (h *PaymentHandler) List(c *gin.Context) {
	var req services.PaymentListRequest
	if !bindQuery(c, &req) {
		return
	}

	resp, err := h.paymentService.List(actorFrom(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

// GET /api/v1/payments/:id
func (h *PaymentHandler) GetByID(c *gin.Context) {
	id, ok := paramID(c, "id", "payment")
	if !ok {
		return
	}

	payment, err := h.paymentService.Get(actorFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, payment)
}

type sandboxCheckoutRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}

// SandboxCheckout pays an order when the sandbox gateway is active
// POST /api/v1/payments/sandbox/checkout
func (h *PaymentHandler) SandboxCheckout(c *gin.Context) {
	var req sandboxCheckoutRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.paymentService.SimulateCheckout(actorFrom(c), req.OrderID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
