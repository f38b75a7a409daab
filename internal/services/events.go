package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"learnhub-api/pkg/logging"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Routing keys of published domain events.
const (
	EventSubscriptionActivated = "subscription.activated"
	EventSubscriptionCancelled = "subscription.cancelled"
	EventSubscriptionExpired   = "subscription.expired"
	EventEnrollmentCreated     = "enrollment.created"
	EventEnrollmentRemoved     = "enrollment.removed"
	EventEnrollmentsRevoked    = "enrollments.revoked"
)

// DomainEvent is the JSON body of every published event.
type DomainEvent struct {
	Type       string      `json:"type"`
	UserID     uint        `json:"userId"`
	OccurredAt time.Time   `json:"occurredAt"`
	Data       interface{} `json:"data,omitempty"`
}

// Publisher is the interface implemented by types that can publish events.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body interface{}) error
	Close()
}

// publishEvent sends evt and only logs failures. Events are notifications,
// never part of the write they describe.
func publishEvent(ctx context.Context, p Publisher, evt DomainEvent) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, evt.Type, evt); err != nil {
		logging.Errorf("Failed to publish %s event for user %d: %v", evt.Type, evt.UserID, err)
	}
}

// EventProducerFallback is a no-op publisher used when RabbitMQ is not configured.
// It logs events instead of failing.
type EventProducerFallback struct{}

func (p *EventProducerFallback) Publish(ctx context.Context, routingKey string, body interface{}) error {
	logging.Debugf("[MQ-FALLBACK] Would publish routingKey='%s' body=%+v", routingKey, body)
	return nil
}

func (p *EventProducerFallback) Close() {}

// EventProducer publishes events to a durable topic exchange on RabbitMQ.
type EventProducer struct {
	exchange string

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// NewEventProducer dials RabbitMQ and declares the exchange.
func NewEventProducer(amqpURL, exchange string) (*EventProducer, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	// Use a bounded dial timeout so startup does not hang indefinitely
	conn, err := amqp.DialConfig(cleanURL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, fmt.Errorf("failed to dial RabbitMQ: %w", err)
	}

	p := &EventProducer{exchange: exchange, conn: conn}
	if err := p.openChannel(); err != nil {
		conn.Close()
		return nil, err
	}
	return p, nil
}

// openChannel replaces the channel and re-declares the exchange. Caller holds mu
// or has exclusive access.
func (p *EventProducer) openChannel() error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		p.exchange, // name
		"topic",    // type
		true,       // durable
		false,      // autoDelete
		false,      // internal
		false,      // noWait
		nil,        // args
	); err != nil {
		ch.Close()
		return fmt.Errorf("failed to declare exchange '%s': %w", p.exchange, err)
	}
	p.channel = ch
	return nil
}

// Publish sends body as JSON with the given routing key.
// A failed publish reopens the channel and retries once.
func (p *EventProducer) Publish(ctx context.Context, routingKey string, body interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         jsonBody,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg)
	if err == nil {
		return nil
	}

	logging.Warnf("Failed to publish to exchange '%s': %v. Reopening channel", p.exchange, err)
	if chErr := p.openChannel(); chErr != nil {
		return errors.Join(err, chErr)
	}
	return p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg)
}

// Close closes the RabbitMQ connection and channel.
func (p *EventProducer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
