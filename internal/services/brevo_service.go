package services

import (
	"context"
	"fmt"
	"time"

	"learnhub-api/pkg/logging"

	brevo "github.com/getbrevo/brevo-go/lib"
)

// Receipt is the content of a subscription receipt e-mail.
type Receipt struct {
	Email     string
	Name      string
	PlanTitle string
	Amount    float64
	Currency  string
	EndDate   time.Time
}

// Mailer delivers transactional e-mail.
type Mailer interface {
	SendSubscriptionReceipt(ctx context.Context, receipt Receipt) error
}

// BrevoService provides Brevo email service
type BrevoService struct {
	client    *brevo.APIClient
	FromEmail string
	FromName  string
}

// NewBrevoService creates a new Brevo service instance
func NewBrevoService(apiKey, fromEmail, fromName string) *BrevoService {
	cfg := brevo.NewConfiguration()
	cfg.AddDefaultHeader("api-key", apiKey)

	return &BrevoService{
		client:    brevo.NewAPIClient(cfg),
		FromEmail: fromEmail,
		FromName:  fromName,
	}
}

// SendSubscriptionReceipt sends the payment receipt for an activated subscription
func (s *BrevoService) SendSubscriptionReceipt(ctx context.Context, receipt Receipt) error {
	subject := fmt.Sprintf("Your %s subscription is active", receipt.PlanTitle)
	validUntil := receipt.EndDate.Format("January 2, 2006")
	amount := fmt.Sprintf("%.2f %s", receipt.Amount, receipt.Currency)

	htmlContent := fmt.Sprintf(`
		<!DOCTYPE html>
		<html>
		<head>
			<meta charset="UTF-8">
			<title>Subscription receipt</title>
		</head>
		<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
			<div style="background-color: #f8f9fa; padding: 30px; border-radius: 10px;">
				<h1 style="color: #333; margin-bottom: 20px;">Thanks, %s!</h1>
				<p style="color: #666; font-size: 16px;">Your <strong>%s</strong> subscription is active.</p>
				<p style="color: #666; font-size: 16px;">Amount paid: %s</p>
				<p style="color: #666; font-size: 16px;">Access valid until: %s</p>
				<p style="color: #999; font-size: 12px; margin-top: 30px;">If you did not make this purchase, please contact support.</p>
			</div>
		</body>
		</html>
	`, receipt.Name, receipt.PlanTitle, amount, validUntil)

	textContent := fmt.Sprintf(`
		Thanks, %s!

		Your %s subscription is active.
		Amount paid: %s
		Access valid until: %s

		If you did not make this purchase, please contact support.
	`, receipt.Name, receipt.PlanTitle, amount, validUntil)

	email := brevo.SendSmtpEmail{
		Sender: &brevo.SendSmtpEmailSender{
			Name:  s.FromName,
			Email: s.FromEmail,
		},
		To: []brevo.SendSmtpEmailTo{
			{Email: receipt.Email, Name: receipt.Name},
		},
		Subject:     subject,
		HtmlContent: htmlContent,
		TextContent: textContent,
	}

	_, resp, err := s.client.TransactionalEmailsApi.SendTransacEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if resp != nil && resp.StatusCode >= 300 {
		return fmt.Errorf("brevo API error: status %d", resp.StatusCode)
	}
	return nil
}

// NoopMailer drops mail when Brevo is not configured.
type NoopMailer struct{}

func (NoopMailer) SendSubscriptionReceipt(_ context.Context, receipt Receipt) error {
	logging.Debugf("Mail disabled, skipping receipt for %s", receipt.Email)
	return nil
}
