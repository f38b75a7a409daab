package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"learnhub-api/internal/models"
	"learnhub-api/pkg/logging"
)

// Outcomes of HandlePaymentConfirmation.
const (
	OutcomeActivated = "activated"
	OutcomePending   = "pending"
	OutcomeFailed    = "failed"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
)

// IntentRequest is a client's request to pay for a plan.
type IntentRequest struct {
	PlanID uint
	Amount float64
	Email  string
}

// ConfirmationOutcome reports what a confirmation did.
type ConfirmationOutcome struct {
	Status       string                   `json:"status"`
	Subscription *models.SubscriptionView `json:"subscription,omitempty"`
}

// PaymentService bridges the payment processor and the subscription evaluator
type PaymentService struct {
	subscriptions *SubscriptionService
	users         UserRepository
	processor     PaymentProcessor
	guard         EventGuard
	notifier      *ReceiptNotifier
	currency      string
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	subscriptions *SubscriptionService,
	users UserRepository,
	processor PaymentProcessor,
	guard EventGuard,
	notifier *ReceiptNotifier,
	currency string,
) *PaymentService {
	if processor == nil {
		processor = DisabledProcessor{}
	}
	if guard == nil {
		guard = NewReplayProtection()
	}
	if currency == "" {
		currency = "usd"
	}
	return &PaymentService{
		subscriptions: subscriptions,
		users:         users,
		processor:     processor,
		guard:         guard,
		notifier:      notifier,
		currency:      strings.ToLower(currency),
	}
}

// CreatePaymentIntent verifies the amount against the plan price and asks
// the processor for an intent. Nothing is written locally.
func (s *PaymentService) CreatePaymentIntent(ctx context.Context, userID uint, req IntentRequest) (*PaymentIntent, error) {
	if userID == 0 {
		return nil, invalid("userId", "is required")
	}
	if req.PlanID == 0 {
		return nil, invalid("planId", "is required")
	}
	if req.Amount <= 0 {
		return nil, invalid("amount", "must be positive")
	}

	plan, err := s.subscriptions.GetPlan(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}

	amount := models.ToMinorUnits(req.Amount)
	if amount != plan.PriceMinorUnits() {
		return nil, ErrAmountMismatch
	}

	intent, err := s.processor.CreatePaymentIntent(ctx, PaymentIntentParams{
		AmountMinor: amount,
		Currency:    s.currency,
		UserID:      userID,
		PlanID:      plan.ID,
		PlanTitle:   plan.Title,
		Email:       req.Email,
	})
	if err != nil {
		if errors.Is(err, ErrPaymentProcessor) {
			return nil, err
		}
		return nil, &ProcessorError{Detail: "payment processing failed", Err: err}
	}

	logging.Infof("Payment intent created - user_id: %d, plan_id: %d, intent: %s", userID, plan.ID, intent.ID)
	return intent, nil
}

// HandlePaymentConfirmation applies a processor signal. Only a succeeded
// payment writes, and each event is applied at most once.
func (s *PaymentService) HandlePaymentConfirmation(ctx context.Context, c PaymentConfirmation) (*ConfirmationOutcome, error) {
	if c.IntentID == "" {
		return nil, invalid("paymentIntentId", "is required")
	}

	key := c.EventID
	if key == "" {
		key = c.IntentID + ":" + c.Status
	}
	first, err := s.guard.MarkProcessed(ctx, key)
	if err != nil {
		// the payment_intent_id lookup below still stops a double renewal
		logging.Errorf("Payment event guard unavailable - event: %s, error: %v", key, err)
		first = true
	}
	if !first {
		return s.duplicate(ctx, c.UserID)
	}

	switch c.Status {
	case ConfirmationSucceeded:
		outcome, err := s.activate(ctx, c)
		if err != nil {
			if forgetErr := s.guard.Forget(ctx, key); forgetErr != nil {
				logging.Errorf("Failed to release payment event %s: %v", key, forgetErr)
			}
			return nil, err
		}
		return outcome, nil
	case ConfirmationRequiresAction, ConfirmationProcessing:
		logging.Infof("Payment pending - intent: %s, status: %s", c.IntentID, c.Status)
		return &ConfirmationOutcome{Status: OutcomePending}, nil
	case ConfirmationFailed, ConfirmationCanceled:
		logging.Infof("Payment failed - intent: %s, status: %s", c.IntentID, c.Status)
		return &ConfirmationOutcome{Status: OutcomeFailed}, nil
	default:
		return nil, invalid("status", fmt.Sprintf("unknown payment status %q", c.Status))
	}
}

func (s *PaymentService) activate(ctx context.Context, c PaymentConfirmation) (*ConfirmationOutcome, error) {
	if c.UserID == 0 || c.PlanID == 0 {
		return nil, invalid("metadata", "payment intent carries no user or plan")
	}

	held, err := s.subscriptions.HoldsPaymentIntent(ctx, c.IntentID)
	if err != nil {
		return nil, err
	}
	if held {
		return s.duplicate(ctx, c.UserID)
	}

	sub, _, err := s.subscriptions.CreateOrRenew(ctx, RenewRequest{
		UserID:          c.UserID,
		PlanID:          c.PlanID,
		PaymentMethod:   models.PaymentMethodStripe,
		PaymentStatus:   models.PaymentSucceeded,
		PaymentIntentID: c.IntentID,
		CustomerID:      c.CustomerID,
	})
	if err != nil {
		return nil, err
	}

	s.sendReceipt(ctx, sub)
	return &ConfirmationOutcome{
		Status:       OutcomeActivated,
		Subscription: sub.View(s.subscriptions.Now()),
	}, nil
}

func (s *PaymentService) duplicate(ctx context.Context, userID uint) (*ConfirmationOutcome, error) {
	outcome := &ConfirmationOutcome{Status: OutcomeDuplicate}
	if userID == 0 {
		return outcome, nil
	}
	sub, err := s.subscriptions.GetCurrentSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	outcome.Subscription = sub.View(s.subscriptions.Now())
	return outcome, nil
}

func (s *PaymentService) sendReceipt(ctx context.Context, sub *models.UserSubscription) {
	if s.notifier == nil || s.users == nil {
		return
	}
	user, err := s.users.GetByID(ctx, sub.UserID)
	if err != nil {
		logging.Errorf("Receipt skipped, user %d not loaded: %v", sub.UserID, err)
		return
	}

	receipt := Receipt{
		Email:    user.Email,
		Name:     user.Name,
		Currency: strings.ToUpper(s.currency),
		EndDate:  sub.EndDate,
	}
	if sub.SubscriptionPlan != nil {
		receipt.PlanTitle = sub.SubscriptionPlan.Title
		receipt.Amount = sub.SubscriptionPlan.Price
	}
	s.notifier.Notify(receipt)
}

// HandleWebhook verifies a processor webhook and applies the confirmation it carries
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*ConfirmationOutcome, error) {
	confirmation, err := s.processor.ParseWebhook(payload, signature)
	if err != nil {
		return nil, err
	}
	if confirmation == nil {
		return &ConfirmationOutcome{Status: OutcomeIgnored}, nil
	}
	return s.HandlePaymentConfirmation(ctx, *confirmation)
}

// ConfirmClientPayment re-reads an intent the client reports as paid and
// applies its real status. The intent must belong to userID.
func (s *PaymentService) ConfirmClientPayment(ctx context.Context, userID uint, intentID string) (*ConfirmationOutcome, error) {
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return nil, invalid("paymentIntentId", "is required")
	}

	intent, err := s.processor.RetrievePaymentIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}

	confirmation := confirmationFromIntent(intent)
	if confirmation.UserID != userID {
		return nil, ErrForbidden
	}
	confirmation.EventID = fmt.Sprintf("client:%s:%s", intent.ID, intent.Status)
	return s.HandlePaymentConfirmation(ctx, *confirmation)
}

// confirmationFromIntent reads the user and plan ids stored in intent metadata.
func confirmationFromIntent(intent *PaymentIntent) *PaymentConfirmation {
	c := &PaymentConfirmation{
		IntentID:   intent.ID,
		Status:     intent.Status,
		CustomerID: intent.CustomerID,
	}
	if id, err := strconv.ParseUint(intent.Metadata[MetadataUserID], 10, 64); err == nil {
		c.UserID = uint(id)
	}
	if id, err := strconv.ParseUint(intent.Metadata[MetadataPlanID], 10, 64); err == nil {
		c.PlanID = uint(id)
	}
	return c
}
