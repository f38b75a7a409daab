package api

import (
	"net/http"

	"learnhub-api/internal/models"
	"learnhub-api/internal/response"
	"learnhub-api/internal/services"

	"github.com/gin-gonic/gin"
)

// CreateSubscriptionRequest starts or renews the caller's subscription
type CreateSubscriptionRequest struct {
	UserID             *uint  `json:"userId"`
	SubscriptionPlanID uint   `json:"subscriptionPlanId" binding:"required"`
	PaymentMethod      string `json:"paymentMethod" binding:"required"`
	PaymentStatus      string `json:"paymentStatus"`
	TransactionID      string `json:"transactionId" binding:"required"`
	PaymentIntentID    string `json:"paymentIntentId"`
	CustomerID         string `json:"customerId"`
	DurationMonths     *int   `json:"durationMonths"`
}

// UpdateSubscriptionRequest extends the caller's subscription
type UpdateSubscriptionRequest struct {
	UserID             *uint  `json:"userId"`
	TransactionID      string `json:"transactionId" binding:"required"`
	SubscriptionPlanID uint   `json:"subscriptionPlanId"`
	DurationMonths     *int   `json:"durationMonths"`
}

// SubscribeRequest is the direct subscribe body
type SubscribeRequest struct {
	UserID             *uint  `json:"userId"`
	SubscriptionPlanID uint   `json:"subscriptionPlanId" binding:"required"`
	PaymentMethod      string `json:"paymentMethod" binding:"required"`
	TransactionID      string `json:"transactionId" binding:"required"`
}

// ListPlans lists subscription plans
// GET /subscriptions
func (h *Handler) ListPlans(c *gin.Context) {
	plans, err := h.Subscriptions.ListPlans(c.Request.Context())
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.SuccessJSON(c, plans)
}

// GetUserSubscription returns the caller's subscription after reconciling expiry
// GET /user-subscriptions
func (h *Handler) GetUserSubscription(c *gin.Context) {
	user, ok := currentUser(c, nil)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	sub, err := h.Subscriptions.GetCurrentSubscription(ctx, user.ID)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	if sub == nil {
		response.MessageJSON(c, http.StatusOK, "No subscription found", gin.H{"subscription": nil})
		return
	}

	if sub, err = h.Subscriptions.CheckAndUpdateExpiry(ctx, sub); err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.SuccessJSON(c, gin.H{"subscription": sub.View(h.Subscriptions.Now())})
}

// CreateUserSubscription creates or renews the caller's subscription
// POST /user-subscriptions
func (h *Handler) CreateUserSubscription(c *gin.Context) {
	var req CreateSubscriptionRequest
	if !bindJSON(c, &req) {
		return
	}
	user, ok := currentUser(c, req.UserID)
	if !ok {
		return
	}

	sub, created, err := h.Subscriptions.CreateOrRenew(c.Request.Context(), services.RenewRequest{
		UserID:          user.ID,
		PlanID:          req.SubscriptionPlanID,
		PaymentMethod:   models.PaymentMethod(req.PaymentMethod),
		PaymentStatus:   models.PaymentStatus(req.PaymentStatus),
		TransactionID:   req.TransactionID,
		PaymentIntentID: req.PaymentIntentID,
		CustomerID:      req.CustomerID,
		DurationMonths:  req.DurationMonths,
	})
	if err != nil {
		response.AbortWithError(c, err)
		return
	}

	status, message := http.StatusOK, "Subscription renewed"
	if created {
		status, message = http.StatusCreated, "Subscription created"
	}
	response.MessageJSON(c, status, message, gin.H{"subscription": sub.View(h.Subscriptions.Now())})
}

// UpdateUserSubscription extends the caller's subscription
// PUT /user-subscriptions
func (h *Handler) UpdateUserSubscription(c *gin.Context) {
	var req UpdateSubscriptionRequest
	if !bindJSON(c, &req) {
		return
	}
	user, ok := currentUser(c, req.UserID)
	if !ok {
		return
	}

	sub, err := h.Subscriptions.Extend(c.Request.Context(), services.ExtendRequest{
		UserID:         user.ID,
		TransactionID:  req.TransactionID,
		PlanID:         req.SubscriptionPlanID,
		DurationMonths: req.DurationMonths,
	})
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.MessageJSON(c, http.StatusOK, "Subscription updated", gin.H{"subscription": sub.View(h.Subscriptions.Now())})
}

// CancelUserSubscription cancels the caller's subscription
// POST /user-subscriptions/cancel
func (h *Handler) CancelUserSubscription(c *gin.Context) {
	user, ok := currentUser(c, nil)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	sub, err := h.Subscriptions.GetCurrentSubscription(ctx, user.ID)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	if sub, err = h.Subscriptions.Cancel(ctx, sub); err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.MessageJSON(c, http.StatusOK, "Subscription cancelled", gin.H{"subscription": sub.View(h.Subscriptions.Now())})
}

// Subscribe records a caller-supplied transaction id without the payment processor
// POST /subscribe
func (h *Handler) Subscribe(c *gin.Context) {
	var req SubscribeRequest
	if !bindJSON(c, &req) {
		return
	}
	user, ok := currentUser(c, req.UserID)
	if !ok {
		return
	}

	sub, _, err := h.Subscriptions.CreateOrRenew(c.Request.Context(), services.RenewRequest{
		UserID:        user.ID,
		PlanID:        req.SubscriptionPlanID,
		PaymentMethod: models.PaymentMethod(req.PaymentMethod),
		PaymentStatus: models.PaymentSucceeded,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.MessageJSON(c, http.StatusCreated, "Subscription successful", gin.H{"subscription": sub.View(h.Subscriptions.Now())})
}
