package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"learnhub-api/pkg/logging"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeProcessor implements PaymentProcessor on the Stripe API
type StripeProcessor struct {
	api           *client.API
	webhookSecret string
}

// NewStripeProcessor creates a Stripe-backed processor
func NewStripeProcessor(secretKey, webhookSecret string) *StripeProcessor {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeProcessor{api: api, webhookSecret: webhookSecret}
}

// CreatePaymentIntent creates a customer carrying the user id, then a card
// intent for the plan price
func (p *StripeProcessor) CreatePaymentIntent(ctx context.Context, params PaymentIntentParams) (*PaymentIntent, error) {
	userID := strconv.FormatUint(uint64(params.UserID), 10)

	customerParams := &stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
	}
	if params.Email != "" {
		customerParams.Email = stripe.String(params.Email)
	}
	customerParams.AddMetadata(MetadataUserID, userID)

	customer, err := p.api.Customers.New(customerParams)
	if err != nil {
		logging.Errorf("Stripe customer creation failed - user_id: %s, error: %v", userID, err)
		return nil, wrapStripeError("failed to create customer record", err)
	}

	intentParams := &stripe.PaymentIntentParams{
		Params:             stripe.Params{Context: ctx},
		Amount:             stripe.Int64(params.AmountMinor),
		Currency:           stripe.String(params.Currency),
		Customer:           stripe.String(customer.ID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Description:        stripe.String("Subscription: " + params.PlanTitle),
	}
	intentParams.AddMetadata(MetadataPlanID, strconv.FormatUint(uint64(params.PlanID), 10))
	intentParams.AddMetadata(MetadataUserID, userID)
	intentParams.SetIdempotencyKey(fmt.Sprintf("pi_%s_%s", userID, uuid.NewString()))

	intent, err := p.api.PaymentIntents.New(intentParams)
	if err != nil {
		logging.Errorf("Stripe payment intent creation failed - user_id: %s, error: %v", userID, err)
		return nil, wrapStripeError("payment processing failed", err)
	}

	return &PaymentIntent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		CustomerID:   customer.ID,
		Status:       string(intent.Status),
		Metadata:     intent.Metadata,
	}, nil
}

// RetrievePaymentIntent reads an intent's current status
func (p *StripeProcessor) RetrievePaymentIntent(ctx context.Context, intentID string) (*PaymentIntent, error) {
	intent, err := p.api.PaymentIntents.Get(intentID, &stripe.PaymentIntentParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return nil, wrapStripeError("failed to retrieve payment intent", err)
	}
	return toPaymentIntent(intent), nil
}

// ParseWebhook verifies the Stripe-Signature header and maps payment intent events
func (p *StripeProcessor) ParseWebhook(payload []byte, signature string) (*PaymentConfirmation, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	var status string
	switch string(event.Type) {
	case "payment_intent.succeeded":
		status = ConfirmationSucceeded
	case "payment_intent.requires_action":
		status = ConfirmationRequiresAction
	case "payment_intent.processing":
		status = ConfirmationProcessing
	case "payment_intent.payment_failed":
		status = ConfirmationFailed
	case "payment_intent.canceled":
		status = ConfirmationCanceled
	default:
		logging.Debugf("Ignoring Stripe event %s of type %s", event.ID, event.Type)
		return nil, nil
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, fmt.Errorf("failed to decode payment intent from event %s: %w", event.ID, err)
	}

	confirmation := confirmationFromIntent(toPaymentIntent(&intent))
	confirmation.EventID = event.ID
	confirmation.Status = status
	return confirmation, nil
}

func toPaymentIntent(intent *stripe.PaymentIntent) *PaymentIntent {
	pi := &PaymentIntent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       normalizeStripeStatus(intent.Status),
		Metadata:     intent.Metadata,
	}
	if intent.Customer != nil {
		pi.CustomerID = intent.Customer.ID
	}
	return pi
}

// normalizeStripeStatus folds Stripe's intent lifecycle onto confirmation statuses.
func normalizeStripeStatus(status stripe.PaymentIntentStatus) string {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return ConfirmationSucceeded
	case stripe.PaymentIntentStatusRequiresAction, stripe.PaymentIntentStatusRequiresConfirmation:
		return ConfirmationRequiresAction
	case stripe.PaymentIntentStatusProcessing, stripe.PaymentIntentStatusRequiresCapture:
		return ConfirmationProcessing
	case stripe.PaymentIntentStatusCanceled:
		return ConfirmationCanceled
	default:
		return ConfirmationFailed
	}
}

func wrapStripeError(detail string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		msg := stripeErr.Msg
		if msg == "" {
			msg = detail
		}
		return &ProcessorError{Code: string(stripeErr.Code), Detail: msg, Err: err}
	}
	return &ProcessorError{Detail: detail, Err: err}
}
