package response

import (
	"errors"
	"net/http"

	"learnhub-api/internal/services"
	"learnhub-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

// ExposeErrorDetails adds internal error text to 500 responses. Enabled in debug mode only.
var ExposeErrorDetails bool

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// Success returns a success response
func Success(data interface{}) Response {
	return Response{
		Success: true,
		Message: "success",
		Data:    data,
	}
}

// Error returns an error response
func Error(code, message string) Response {
	return Response{
		Success: false,
		Message: message,
		Code:    code,
	}
}

// JSON sends a JSON response
func JSON(c *gin.Context, statusCode int, response Response) {
	c.JSON(statusCode, response)
}

// SuccessJSON sends a success JSON response
func SuccessJSON(c *gin.Context, data interface{}) {
	JSON(c, http.StatusOK, Success(data))
}

// MessageJSON sends a success response with a custom message
func MessageJSON(c *gin.Context, statusCode int, message string, data interface{}) {
	JSON(c, statusCode, Response{Success: true, Message: message, Data: data})
}

// ErrorJSON sends an error JSON response
func ErrorJSON(c *gin.Context, statusCode int, code, message string) {
	JSON(c, statusCode, Error(code, message))
}

// AbortWithError maps err onto its status and aborts the request
func AbortWithError(c *gin.Context, err error) {
	status, resp := FromError(err)
	if status >= http.StatusInternalServerError {
		logging.Errorf("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, resp)
}

type errorMapping struct {
	target error
	status int
	code   string
}

// errorMappings is checked in order, the first match wins.
var errorMappings = []errorMapping{
	{services.ErrInvalidDuration, http.StatusBadRequest, "INVALID_DURATION"},
	{services.ErrUnknownInterval, http.StatusBadRequest, "UNKNOWN_INTERVAL"},
	{services.ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR"},
	{services.ErrAmountMismatch, http.StatusBadRequest, "AMOUNT_MISMATCH"},
	{services.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{services.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
	{services.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{services.ErrSubscriptionRequired, http.StatusForbidden, "SUBSCRIPTION_REQUIRED"},
	{services.ErrAlreadyEnrolled, http.StatusBadRequest, "ALREADY_ENROLLED"},
	{services.ErrEnrollmentNotFound, http.StatusNotFound, "ENROLLMENT_NOT_FOUND"},
	{services.ErrCourseNotFound, http.StatusNotFound, "COURSE_NOT_FOUND"},
	{services.ErrChapterNotFound, http.StatusNotFound, "CHAPTER_NOT_FOUND"},
	{services.ErrPlanNotFound, http.StatusNotFound, "PLAN_NOT_FOUND"},
	{services.ErrSubscriptionNotFound, http.StatusNotFound, "SUBSCRIPTION_NOT_FOUND"},
	{services.ErrDuplicatePaymentIdentifier, http.StatusBadRequest, "DUPLICATE_PAYMENT_IDENTIFIER"},
	{services.ErrEmailInUse, http.StatusBadRequest, "EMAIL_IN_USE"},
	{services.ErrTooManyAttempts, http.StatusTooManyRequests, "TOO_MANY_ATTEMPTS"},
}

// FromError returns the HTTP status and body for err
func FromError(err error) (int, Response) {
	var procErr *services.ProcessorError
	if errors.As(err, &procErr) {
		resp := Error("PAYMENT_PROCESSOR_ERROR", "Payment processing failed")
		resp.Details = gin.H{"processorCode": procErr.Code, "detail": procErr.Detail}
		return http.StatusBadGateway, resp
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			resp := Error(m.code, err.Error())
			var validation *services.ValidationError
			if errors.As(err, &validation) {
				resp.Details = gin.H{"field": validation.Field}
			}
			return m.status, resp
		}
	}

	resp := Error("INTERNAL_ERROR", "Internal server error")
	if ExposeErrorDetails {
		resp.Details = err.Error()
	}
	return http.StatusInternalServerError, resp
}
