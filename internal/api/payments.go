package api

import (
	"net/http"

	"learnhub-api/internal/response"
	"learnhub-api/internal/services"

	"github.com/gin-gonic/gin"
)

// maxWebhookBytes bounds the webhook payload read into memory
const maxWebhookBytes = 64 << 10

// CreatePaymentIntentRequest asks for a payment intent for a plan
type CreatePaymentIntentRequest struct {
	UserID *uint   `json:"userId"`
	PlanID uint    `json:"planId" binding:"required"`
	Amount float64 `json:"amount" binding:"required"`
	Email  string  `json:"email"`
}

// ConfirmPaymentRequest reports a client-side payment confirmation
type ConfirmPaymentRequest struct {
	PaymentIntentID string `json:"paymentIntentId" binding:"required"`
}

// CreatePaymentIntent creates a processor payment intent for a plan
// POST /create-payment-intent
func (h *Handler) CreatePaymentIntent(c *gin.Context) {
	var req CreatePaymentIntentRequest
	if !bindJSON(c, &req) {
		return
	}
	user, ok := currentUser(c, req.UserID)
	if !ok {
		return
	}

	email := req.Email
	if email == "" {
		email = user.Email
	}

	intent, err := h.Payments.CreatePaymentIntent(c.Request.Context(), user.ID, services.IntentRequest{
		PlanID: req.PlanID,
		Amount: req.Amount,
		Email:  email,
	})
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.SuccessJSON(c, intent)
}

// ConfirmPayment re-checks a payment intent with the processor and applies its status
// POST /payments/confirm
func (h *Handler) ConfirmPayment(c *gin.Context) {
	var req ConfirmPaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	user, ok := currentUser(c, nil)
	if !ok {
		return
	}

	outcome, err := h.Payments.ConfirmClientPayment(c.Request.Context(), user.ID, req.PaymentIntentID)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.MessageJSON(c, http.StatusOK, outcomeMessage(outcome.Status), outcome)
}

// StripeWebhook applies processor payment events
// POST /webhooks/stripe
func (h *Handler) StripeWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBytes)
	payload, err := c.GetRawData()
	if err != nil {
		response.AbortWithError(c, &services.ValidationError{Field: "body", Message: "unreadable webhook payload"})
		return
	}

	outcome, err := h.Payments.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.MessageJSON(c, http.StatusOK, outcomeMessage(outcome.Status), gin.H{"received": true, "status": outcome.Status})
}

func outcomeMessage(status string) string {
	switch status {
	case services.OutcomeActivated:
		return "Subscription activated"
	case services.OutcomePending:
		return "Payment is still processing"
	case services.OutcomeFailed:
		return "Payment failed"
	case services.OutcomeDuplicate:
		return "Payment already applied"
	default:
		return "Event ignored"
	}
}
