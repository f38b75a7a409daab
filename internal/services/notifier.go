package services

import (
	"context"
	"time"

	"learnhub-api/pkg/logging"
)

// ReceiptNotifier delivers receipt mail in the background with retries.
type ReceiptNotifier struct {
	mailer      Mailer
	retryDelays []time.Duration
	timeout     time.Duration
}

// NewReceiptNotifier creates a notifier with the default retry schedule
func NewReceiptNotifier(mailer Mailer) *ReceiptNotifier {
	return &ReceiptNotifier{
		mailer:      mailer,
		retryDelays: []time.Duration{1 * time.Second, 5 * time.Second, 30 * time.Second},
		timeout:     10 * time.Second,
	}
}

// Notify sends the receipt asynchronously so the caller never waits on the mail provider.
func (n *ReceiptNotifier) Notify(receipt Receipt) {
	if n == nil || n.mailer == nil || receipt.Email == "" {
		return
	}
	go n.sendWithRetry(receipt)
}

// sendWithRetry tries once per entry in retryDelays, sleeping between attempts
func (n *ReceiptNotifier) sendWithRetry(receipt Receipt) {
	maxRetries := len(n.retryDelays)
	if maxRetries == 0 {
		maxRetries = 1
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		err := n.mailer.SendSubscriptionReceipt(ctx, receipt)
		cancel()
		if err == nil {
			logging.Infof("Receipt mail sent - email: %s, plan: %s, attempt: %d", receipt.Email, receipt.PlanTitle, attempt+1)
			return
		}

		logging.Errorf("Receipt mail failed - email: %s, attempt: %d, error: %v", receipt.Email, attempt+1, err)

		// If not the last attempt, wait before retry
		if attempt < maxRetries-1 {
			time.Sleep(n.retryDelays[attempt])
		}
	}

	logging.Errorf("Receipt mail failed after %d attempts - email: %s", maxRetries, receipt.Email)
}
