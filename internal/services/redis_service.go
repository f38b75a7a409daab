package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter counts failed logins per e-mail within a sliding window.
type LoginLimiter interface {
	FailedAttempts(ctx context.Context, email string) (int64, error)
	RegisterFailure(ctx context.Context, email string) (int64, error)
	Reset(ctx context.Context, email string) error
}

// EventGuard remembers processed payment events so a replay is handled once.
type EventGuard interface {
	// MarkProcessed records id and reports whether it was seen for the first time.
	MarkProcessed(ctx context.Context, id string) (bool, error)
	// Forget drops id so a failed event can be retried.
	Forget(ctx context.Context, id string) error
}

const defaultEventTTL = 24 * time.Hour

// RedisService provides Redis operations
type RedisService struct {
	client      *redis.Client
	loginWindow time.Duration
	eventTTL    time.Duration
}

// NewRedisService creates a new Redis service instance
func NewRedisService(client *redis.Client, loginWindow time.Duration) *RedisService {
	return &RedisService{
		client:      client,
		loginWindow: loginWindow,
		eventTTL:    defaultEventTTL,
	}
}

func loginAttemptsKey(email string) string {
	return fmt.Sprintf("login_attempts:%s", strings.ToLower(strings.TrimSpace(email)))
}

func paymentEventKey(id string) string {
	return fmt.Sprintf("payment_event:%s", id)
}

// FailedAttempts returns the failures recorded in the current window
func (r *RedisService) FailedAttempts(ctx context.Context, email string) (int64, error) {
	n, err := r.client.Get(ctx, loginAttemptsKey(email)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// RegisterFailure increments the failure counter. The window starts at the first failure.
func (r *RedisService) RegisterFailure(ctx context.Context, email string) (int64, error) {
	key := loginAttemptsKey(email)

	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := r.client.Expire(ctx, key, r.loginWindow).Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// Reset clears the failure counter after a successful login
func (r *RedisService) Reset(ctx context.Context, email string) error {
	return r.client.Del(ctx, loginAttemptsKey(email)).Err()
}

// MarkProcessed records a payment event id with SETNX
func (r *RedisService) MarkProcessed(ctx context.Context, id string) (bool, error) {
	return r.client.SetNX(ctx, paymentEventKey(id), time.Now().Unix(), r.eventTTL).Result()
}

// Forget deletes a payment event id
func (r *RedisService) Forget(ctx context.Context, id string) error {
	return r.client.Del(ctx, paymentEventKey(id)).Err()
}
