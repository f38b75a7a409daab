package services

import (
	"errors"
	"fmt"
)

var (
	ErrValidation                 = errors.New("validation failed")
	ErrInvalidDuration            = errors.New("duration in months must be positive")
	ErrUnknownInterval            = errors.New("unknown billing interval")
	ErrAmountMismatch             = errors.New("amount does not match plan price")
	ErrUnauthorized               = errors.New("authentication required")
	ErrInvalidCredentials         = errors.New("invalid email or password")
	ErrTooManyAttempts            = errors.New("too many failed login attempts")
	ErrEmailInUse                 = errors.New("email already registered")
	ErrForbidden                  = errors.New("forbidden")
	ErrSubscriptionRequired       = errors.New("active subscription required")
	ErrSubscriptionNotFound       = errors.New("subscription not found")
	ErrPlanNotFound               = errors.New("subscription plan not found")
	ErrCourseNotFound             = errors.New("course not found")
	ErrChapterNotFound            = errors.New("chapter not found")
	ErrAlreadyEnrolled            = errors.New("already enrolled in this course")
	ErrEnrollmentNotFound         = errors.New("enrollment not found")
	ErrDuplicatePaymentIdentifier = errors.New("payment identifier already used")
	ErrPaymentProcessor           = errors.New("payment processor error")
)

// ValidationError names the offending field. It matches ErrValidation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// ProcessorError carries the payment processor's own error code and message.
// It matches ErrPaymentProcessor.
type ProcessorError struct {
	Code   string
	Detail string
	Err    error
}

func (e *ProcessorError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("payment processor error (%s): %s", e.Code, e.Detail)
	}
	return fmt.Sprintf("payment processor error: %s", e.Detail)
}

func (e *ProcessorError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrPaymentProcessor}
	}
	return []error{ErrPaymentProcessor, e.Err}
}
