package services

import "context"

// Normalized processor statuses carried by a PaymentConfirmation.
const (
	ConfirmationSucceeded      = "succeeded"
	ConfirmationRequiresAction = "requires_action"
	ConfirmationProcessing     = "processing"
	ConfirmationFailed         = "failed"
	ConfirmationCanceled       = "canceled"
)

// Metadata keys attached to every payment intent.
const (
	MetadataUserID = "userId"
	MetadataPlanID = "planId"
)

// PaymentIntentParams is what the bridge asks the processor to charge.
type PaymentIntentParams struct {
	AmountMinor int64
	Currency    string
	UserID      uint
	PlanID      uint
	PlanTitle   string
	Email       string
}

// PaymentIntent is the processor's view of a pending charge.
type PaymentIntent struct {
	ID           string            `json:"paymentIntentId"`
	ClientSecret string            `json:"clientSecret"`
	CustomerID   string            `json:"customerId"`
	Status       string            `json:"status"`
	Metadata     map[string]string `json:"-"`
}

// PaymentConfirmation is a processor signal about an intent's outcome.
type PaymentConfirmation struct {
	EventID    string
	IntentID   string
	Status     string
	CustomerID string
	UserID     uint
	PlanID     uint
}

// PaymentProcessor is the external payment processor.
type PaymentProcessor interface {
	CreatePaymentIntent(ctx context.Context, params PaymentIntentParams) (*PaymentIntent, error)
	RetrievePaymentIntent(ctx context.Context, intentID string) (*PaymentIntent, error)
	// ParseWebhook verifies a webhook delivery. It returns nil, nil for event
	// types that carry no payment outcome.
	ParseWebhook(payload []byte, signature string) (*PaymentConfirmation, error)
}

// DisabledProcessor is used when no processor credentials are configured.
type DisabledProcessor struct{}

func (DisabledProcessor) CreatePaymentIntent(context.Context, PaymentIntentParams) (*PaymentIntent, error) {
	return nil, &ProcessorError{Code: "processor_unavailable", Detail: "payments are not configured"}
}

func (DisabledProcessor) RetrievePaymentIntent(context.Context, string) (*PaymentIntent, error) {
	return nil, &ProcessorError{Code: "processor_unavailable", Detail: "payments are not configured"}
}

func (DisabledProcessor) ParseWebhook([]byte, string) (*PaymentConfirmation, error) {
	return nil, &ProcessorError{Code: "processor_unavailable", Detail: "payments are not configured"}
}
