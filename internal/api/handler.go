package api

import (
	"strconv"

	"learnhub-api/internal/middleware"
	"learnhub-api/internal/models"
	"learnhub-api/internal/response"
	"learnhub-api/internal/services"

	"github.com/gin-gonic/gin"
)

// Handler holds the services used by the HTTP handlers
type Handler struct {
	Auth          *services.AuthService
	Courses       *services.CourseService
	Subscriptions *services.SubscriptionService
	Enrollments   *services.EnrollmentService
	Payments      *services.PaymentService
	ServiceName   string
}

// bindJSON decodes the request body and aborts with a validation error on failure
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.AbortWithError(c, &services.ValidationError{Field: "body", Message: err.Error()})
		return false
	}
	return true
}

// idParam parses a positive numeric path parameter
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.AbortWithError(c, &services.ValidationError{Field: name, Message: "must be a positive integer"})
		return 0, false
	}
	return uint(id), true
}

// currentUser returns the authenticated user. A claimed userId that names
// somebody else is rejected, the caller always acts on their own account.
func currentUser(c *gin.Context, claimed *uint) (*models.User, bool) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.AbortWithError(c, services.ErrUnauthorized)
		return nil, false
	}
	if claimed != nil && *claimed != user.ID {
		response.AbortWithError(c, services.ErrForbidden)
		return nil, false
	}
	if q := c.Query("userId"); q != "" && q != strconv.FormatUint(uint64(user.ID), 10) {
		response.AbortWithError(c, services.ErrForbidden)
		return nil, false
	}
	return user, true
}
