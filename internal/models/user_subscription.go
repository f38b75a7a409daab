package models

import (
	"time"
)

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionPending   SubscriptionStatus = "pending"
)

type PaymentMethod string

const (
	PaymentMethodCreditCard PaymentMethod = "credit_card"
	PaymentMethodDebitCard  PaymentMethod = "debit_card"
	PaymentMethodPayPal     PaymentMethod = "paypal"
	PaymentMethodStripe     PaymentMethod = "stripe"
)

// Valid reports whether m is an accepted payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodDebitCard, PaymentMethodPayPal, PaymentMethodStripe:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentSucceeded      PaymentStatus = "succeeded"
	PaymentPending        PaymentStatus = "pending"
	PaymentFailed         PaymentStatus = "failed"
	PaymentRequiresAction PaymentStatus = "requires_action"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentSucceeded, PaymentPending, PaymentFailed, PaymentRequiresAction:
		return true
	}
	return false
}

// UserSubscription is the single current subscription of a user. Renewals
// overwrite the row in place, no history is kept.
type UserSubscription struct {
	Record

	UserID             uint              `json:"userId" gorm:"not null;uniqueIndex"`
	SubscriptionPlanID uint              `json:"subscriptionPlanId" gorm:"not null;index"`
	SubscriptionPlan   *SubscriptionPlan `json:"subscriptionPlan,omitempty" gorm:"foreignKey:SubscriptionPlanID"`

	Status    SubscriptionStatus `json:"status" gorm:"size:20;not null;index;default:'active'"`
	StartDate time.Time          `json:"startDate" gorm:"not null"`
	EndDate   time.Time          `json:"endDate" gorm:"not null;index"`

	PaymentMethod PaymentMethod `json:"paymentMethod" gorm:"size:20;not null;default:'stripe'"`
	PaymentStatus PaymentStatus `json:"paymentStatus" gorm:"size:20;not null;default:'succeeded'"`

	// Payment identifiers, unique when present
	TransactionID   *string `json:"transactionId,omitempty" gorm:"size:100;uniqueIndex"`
	PaymentIntentID *string `json:"paymentIntentId,omitempty" gorm:"size:100;uniqueIndex"`

	CustomerID           string     `json:"customerId,omitempty" gorm:"size:100;index"`
	StripeSubscriptionID string     `json:"stripeSubscriptionId,omitempty" gorm:"size:100"`
	LastPaymentDate      *time.Time `json:"lastPaymentDate,omitempty"`
	NextPaymentDate      *time.Time `json:"nextPaymentDate,omitempty"`
}

// IsActiveAt reports whether the subscription grants access at now.
func (s *UserSubscription) IsActiveAt(now time.Time) bool {
	return s != nil && s.Status == SubscriptionActive && !now.After(s.EndDate)
}

// DaysRemainingAt counts started days left until EndDate, 0 unless active.
func (s *UserSubscription) DaysRemainingAt(now time.Time) int {
	if s == nil || s.Status != SubscriptionActive {
		return 0
	}
	left := s.EndDate.Sub(now)
	if left <= 0 {
		return 0
	}
	const day = 24 * time.Hour
	return int((left + day - 1) / day)
}

// SubscriptionView is the API shape of a subscription with its derived fields.
type SubscriptionView struct {
	*UserSubscription
	IsActive      bool `json:"isActive"`
	DaysRemaining int  `json:"daysRemaining"`
}

// View evaluates the derived fields at now.
func (s *UserSubscription) View(now time.Time) *SubscriptionView {
	if s == nil {
		return nil
	}
	return &SubscriptionView{
		UserSubscription: s,
		IsActive:         s.IsActiveAt(now),
		DaysRemaining:    s.DaysRemainingAt(now),
	}
}
