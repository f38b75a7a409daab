package api

import (
	"net/http"

	"learnhub-api/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up all routes. Every route is served at the root and
// again under /api.
func SetupRoutes(r *gin.Engine, h *Handler) {
	authRequired := middleware.AuthRequired(h.Auth)

	for _, prefix := range []string{"", "/api"} {
		g := r.Group(prefix)
		h.registerRoutes(g, authRequired)
	}
}

func (h *Handler) registerRoutes(g *gin.RouterGroup, authRequired gin.HandlerFunc) {
	// Account routes
	g.POST("/register", h.Register)
	auth := g.Group("/auth")
	{
		auth.POST("/login", h.Login)
		auth.POST("/logout", h.Logout)
		auth.GET("/user", authRequired, h.GetCurrentUser)
	}

	// Course catalog (public)
	courses := g.Group("/courses")
	{
		courses.GET("", h.ListCourses)
		courses.GET("/random", h.RandomCourses)
		courses.GET("/:id", h.GetCourse)
	}

	// Enrollment routes (require an authenticated user)
	enrollments := g.Group("/enrollments")
	enrollments.Use(authRequired)
	{
		enrollments.POST("/:courseId", h.Enroll)
		enrollments.DELETE("/:courseId", h.Unenroll)
		enrollments.GET("/:courseId/status", h.GetEnrollmentStatus)
		enrollments.POST("/:courseId/progress", h.UpdateProgress)
	}
	g.GET("/student/enrolled-courses", authRequired, h.ListEnrolledCourses)

	// Subscription routes
	g.GET("/subscriptions", h.ListPlans)
	userSubscriptions := g.Group("/user-subscriptions")
	userSubscriptions.Use(authRequired)
	{
		userSubscriptions.GET("", h.GetUserSubscription)
		userSubscriptions.POST("", h.CreateUserSubscription)
		userSubscriptions.PUT("", h.UpdateUserSubscription)
		userSubscriptions.POST("/cancel", h.CancelUserSubscription)
	}
	g.POST("/subscribe", authRequired, h.Subscribe)

	// Payment routes. The processor calls the webhook, it is authenticated by signature.
	g.POST("/create-payment-intent", authRequired, h.CreatePaymentIntent)
	g.POST("/payments/confirm", authRequired, h.ConfirmPayment)
	g.POST("/webhooks/stripe", h.StripeWebhook)

	// Health check
	g.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": h.ServiceName,
		})
	})
}
