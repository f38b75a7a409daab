package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"learnhub-api/internal/database"
	"learnhub-api/internal/models"
	"learnhub-api/pkg/logging"
)

// SubscriptionRepository persists user subscriptions.
type SubscriptionRepository interface {
	GetLatestByUser(ctx context.Context, userID uint) (*models.UserSubscription, error)
	Save(ctx context.Context, subscription *models.UserSubscription) error
	UpdateStatus(ctx context.Context, id uint, status models.SubscriptionStatus) error
	ExpireLapsed(ctx context.Context, id uint, now time.Time) (bool, error)
	FindByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.UserSubscription, error)
	Upsert(ctx context.Context, userID uint, build func(current *models.UserSubscription) (*models.UserSubscription, error)) (*models.UserSubscription, bool, error)
}

// PlanRepository reads subscription plans.
type PlanRepository interface {
	List(ctx context.Context) ([]models.SubscriptionPlan, error)
	Get(ctx context.Context, id uint) (*models.SubscriptionPlan, error)
}

// RenewRequest describes a paid period to apply to a user's subscription.
type RenewRequest struct {
	UserID          uint
	PlanID          uint
	PaymentMethod   models.PaymentMethod
	PaymentStatus   models.PaymentStatus
	TransactionID   string
	PaymentIntentID string
	CustomerID      string
	// DurationMonths overrides the plan interval when set
	DurationMonths *int
}

// ExtendRequest updates an existing subscription in place.
type ExtendRequest struct {
	UserID         uint
	TransactionID  string
	PlanID         uint
	DurationMonths *int
}

// SubscriptionService evaluates and mutates subscriptions
type SubscriptionService struct {
	subscriptions SubscriptionRepository
	plans         PlanRepository
	events        Publisher
	clock         Clock
}

// NewSubscriptionService creates a new subscription service
func NewSubscriptionService(subscriptions SubscriptionRepository, plans PlanRepository, events Publisher, clock Clock) *SubscriptionService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &SubscriptionService{
		subscriptions: subscriptions,
		plans:         plans,
		events:        events,
		clock:         clock,
	}
}

// Now returns the service clock's current time.
func (s *SubscriptionService) Now() time.Time {
	return s.clock.Now()
}

// ListPlans returns every plan
func (s *SubscriptionService) ListPlans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	plans, err := s.plans.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}

// GetPlan returns one plan or ErrPlanNotFound
func (s *SubscriptionService) GetPlan(ctx context.Context, planID uint) (*models.SubscriptionPlan, error) {
	plan, err := s.plans.Get(ctx, planID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to load plan %d: %w", planID, err)
	}
	return plan, nil
}

// GetCurrentSubscription returns the user's newest subscription, nil when there is none.
func (s *SubscriptionService) GetCurrentSubscription(ctx context.Context, userID uint) (*models.UserSubscription, error) {
	sub, err := s.subscriptions.GetLatestByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load subscription for user %d: %w", userID, err)
	}
	return sub, nil
}

// IsActive reports whether sub grants access right now
func (s *SubscriptionService) IsActive(sub *models.UserSubscription) bool {
	return sub.IsActiveAt(s.clock.Now())
}

// DaysRemaining returns whole started days left on an active subscription
func (s *SubscriptionService) DaysRemaining(sub *models.UserSubscription) int {
	return sub.DaysRemainingAt(s.clock.Now())
}

// CheckAndUpdateExpiry persists the expired status once an active subscription
// has passed its end date. Other subscriptions are returned unchanged.
func (s *SubscriptionService) CheckAndUpdateExpiry(ctx context.Context, sub *models.UserSubscription) (*models.UserSubscription, error) {
	if sub == nil || sub.Status != models.SubscriptionActive {
		return sub, nil
	}
	now := s.clock.Now()
	if !now.After(sub.EndDate) {
		return sub, nil
	}

	expired, err := s.subscriptions.ExpireLapsed(ctx, sub.ID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to expire subscription %d: %w", sub.ID, err)
	}
	if !expired {
		// The row changed since it was read, return what is stored now
		current, err := s.GetCurrentSubscription(ctx, sub.UserID)
		if err != nil {
			return nil, err
		}
		return current, nil
	}
	sub.Status = models.SubscriptionExpired

	logging.Infof("Subscription expired - user_id: %d, subscription_id: %d, end_date: %s",
		sub.UserID, sub.ID, sub.EndDate.Format(time.RFC3339))
	publishEvent(ctx, s.events, DomainEvent{
		Type:       EventSubscriptionExpired,
		UserID:     sub.UserID,
		OccurredAt: now,
		Data:       map[string]interface{}{"subscriptionId": sub.ID, "endDate": sub.EndDate},
	})
	return sub, nil
}

// CurrentActive loads the user's subscription, applies the expiry check and
// reports whether access is granted.
func (s *SubscriptionService) CurrentActive(ctx context.Context, userID uint) (*models.UserSubscription, bool, error) {
	sub, err := s.GetCurrentSubscription(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	sub, err = s.CheckAndUpdateExpiry(ctx, sub)
	if err != nil {
		return nil, false, err
	}
	return sub, s.IsActive(sub), nil
}

// periodEnd adds one billing period, or months when given, to start.
func periodEnd(start time.Time, interval models.BillingInterval, months *int) (time.Time, error) {
	if months != nil {
		if *months <= 0 {
			return time.Time{}, ErrInvalidDuration
		}
		return start.AddDate(0, *months, 0), nil
	}

	switch interval {
	case models.IntervalWeekly:
		return start.AddDate(0, 0, 7), nil
	case models.IntervalMonthly:
		return start.AddDate(0, 1, 0), nil
	case models.IntervalYearly:
		return start.AddDate(1, 0, 0), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownInterval, interval)
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// CreateOrRenew starts a new paid period from now. An existing row is
// overwritten in place, otherwise one is created.
func (s *SubscriptionService) CreateOrRenew(ctx context.Context, req RenewRequest) (*models.UserSubscription, bool, error) {
	if req.UserID == 0 {
		return nil, false, invalid("userId", "is required")
	}
	if req.PlanID == 0 {
		return nil, false, invalid("subscriptionPlanId", "is required")
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = models.PaymentMethodStripe
	}
	if !req.PaymentMethod.Valid() {
		return nil, false, invalid("paymentMethod", fmt.Sprintf("unsupported payment method %q", req.PaymentMethod))
	}
	if req.PaymentStatus == "" {
		req.PaymentStatus = models.PaymentSucceeded
	}
	if !req.PaymentStatus.Valid() {
		return nil, false, invalid("paymentStatus", fmt.Sprintf("unsupported payment status %q", req.PaymentStatus))
	}
	// Only a settled payment buys a period
	if req.PaymentStatus != models.PaymentSucceeded {
		return nil, false, invalid("paymentStatus", fmt.Sprintf("payment %s, subscription not activated", req.PaymentStatus))
	}

	plan, err := s.GetPlan(ctx, req.PlanID)
	if err != nil {
		return nil, false, err
	}

	now := s.clock.Now()
	endDate, err := periodEnd(now, plan.Interval, req.DurationMonths)
	if err != nil {
		return nil, false, err
	}

	build := func(current *models.UserSubscription) (*models.UserSubscription, error) {
		next := &models.UserSubscription{}
		if current != nil {
			*next = *current
		}
		next.SubscriptionPlanID = plan.ID
		next.SubscriptionPlan = nil
		next.Status = models.SubscriptionActive
		next.StartDate = now
		next.EndDate = endDate
		next.PaymentMethod = req.PaymentMethod
		next.PaymentStatus = req.PaymentStatus
		next.TransactionID = optional(req.TransactionID)
		next.PaymentIntentID = optional(req.PaymentIntentID)
		if req.CustomerID != "" {
			next.CustomerID = req.CustomerID
		}
		next.LastPaymentDate = &now
		next.NextPaymentDate = &endDate
		return next, nil
	}

	sub, created, err := s.subscriptions.Upsert(ctx, req.UserID, build)
	if isFirstRowRace(err) {
		// A concurrent first purchase inserted the row, renew it instead
		sub, created, err = s.subscriptions.Upsert(ctx, req.UserID, build)
	}
	if err != nil {
		return nil, false, translateStoreError(err)
	}
	sub.SubscriptionPlan = plan

	logging.Infof("Subscription activated - user_id: %d, plan: %s, end_date: %s, created: %t",
		req.UserID, plan.Title, endDate.Format(time.RFC3339), created)
	publishEvent(ctx, s.events, DomainEvent{
		Type:       EventSubscriptionActivated,
		UserID:     req.UserID,
		OccurredAt: now,
		Data: map[string]interface{}{
			"subscriptionId": sub.ID,
			"planId":         plan.ID,
			"endDate":        endDate,
			"created":        created,
		},
	})
	return sub, created, nil
}

// Extend updates the user's existing subscription. When months are given the
// new end date is measured from the later of now and the current end date.
// The status becomes active only if the resulting end date is in the future.
func (s *SubscriptionService) Extend(ctx context.Context, req ExtendRequest) (*models.UserSubscription, error) {
	if req.UserID == 0 {
		return nil, invalid("userId", "is required")
	}
	if strings.TrimSpace(req.TransactionID) == "" {
		return nil, invalid("transactionId", "is required")
	}
	if req.DurationMonths != nil && *req.DurationMonths <= 0 {
		return nil, ErrInvalidDuration
	}

	var plan *models.SubscriptionPlan
	if req.PlanID != 0 {
		var err error
		if plan, err = s.GetPlan(ctx, req.PlanID); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	sub, _, err := s.subscriptions.Upsert(ctx, req.UserID, func(current *models.UserSubscription) (*models.UserSubscription, error) {
		if current == nil {
			return nil, ErrSubscriptionNotFound
		}
		next := *current
		next.SubscriptionPlan = nil
		next.TransactionID = optional(req.TransactionID)
		if plan != nil {
			next.SubscriptionPlanID = plan.ID
		}
		if req.DurationMonths != nil {
			base := now
			if current.EndDate.After(now) {
				base = current.EndDate
			}
			next.EndDate = base.AddDate(0, *req.DurationMonths, 0)
			next.NextPaymentDate = &next.EndDate
		}
		// A lapsed period stays lapsed until months are added
		if next.EndDate.After(now) {
			next.Status = models.SubscriptionActive
		} else if next.Status == models.SubscriptionActive {
			next.Status = models.SubscriptionExpired
		}
		return &next, nil
	})
	if err != nil {
		return nil, translateStoreError(err)
	}

	if plan == nil {
		plan, _ = s.plans.Get(ctx, sub.SubscriptionPlanID)
	}
	sub.SubscriptionPlan = plan

	logging.Infof("Subscription extended - user_id: %d, end_date: %s", req.UserID, sub.EndDate.Format(time.RFC3339))
	publishEvent(ctx, s.events, DomainEvent{
		Type:       EventSubscriptionActivated,
		UserID:     req.UserID,
		OccurredAt: now,
		Data:       map[string]interface{}{"subscriptionId": sub.ID, "endDate": sub.EndDate, "extended": true},
	})
	return sub, nil
}

// Cancel marks the subscription cancelled. The end date is kept for reporting
// but access stops immediately.
func (s *SubscriptionService) Cancel(ctx context.Context, sub *models.UserSubscription) (*models.UserSubscription, error) {
	if sub == nil {
		return nil, ErrSubscriptionNotFound
	}
	if sub.Status == models.SubscriptionCancelled {
		return sub, nil
	}

	if err := s.subscriptions.UpdateStatus(ctx, sub.ID, models.SubscriptionCancelled); err != nil {
		return nil, translateStoreError(err)
	}
	sub.Status = models.SubscriptionCancelled

	logging.Infof("Subscription cancelled - user_id: %d, subscription_id: %d", sub.UserID, sub.ID)
	publishEvent(ctx, s.events, DomainEvent{
		Type:       EventSubscriptionCancelled,
		UserID:     sub.UserID,
		OccurredAt: s.clock.Now(),
		Data:       map[string]interface{}{"subscriptionId": sub.ID},
	})
	return sub, nil
}

// HoldsPaymentIntent reports whether a subscription row already records intentID.
func (s *SubscriptionService) HoldsPaymentIntent(ctx context.Context, intentID string) (bool, error) {
	_, err := s.subscriptions.FindByPaymentIntent(ctx, intentID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, database.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("failed to look up payment intent %s: %w", intentID, err)
	}
}

// isFirstRowRace reports a collision on the one-row-per-user index.
func isFirstRowRace(err error) bool {
	var violation *database.UniqueViolationError
	return errors.As(err, &violation) &&
		violation.Involves("user_id") &&
		!violation.Involves("course_id")
}

// translateStoreError maps store failures onto service errors.
func translateStoreError(err error) error {
	var violation *database.UniqueViolationError
	switch {
	case errors.As(err, &violation):
		if violation.Involves("transaction_id") || violation.Involves("payment_intent_id") {
			return fmt.Errorf("%w: %s", ErrDuplicatePaymentIdentifier, violation.Constraint)
		}
		if violation.Involves("course_id") {
			return ErrAlreadyEnrolled
		}
		if violation.Involves("email") {
			return ErrEmailInUse
		}
		return err
	case errors.Is(err, database.ErrNotFound):
		return ErrSubscriptionNotFound
	}
	return err
}
