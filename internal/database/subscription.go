package database

import (
	"context"
	"errors"
	"time"

	"learnhub-api/internal/models"
	"learnhub-api/pkg/logging"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubscriptionStore persists user subscriptions.
type SubscriptionStore struct {
	db *gorm.DB
}

func NewSubscriptionStore(db *gorm.DB) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

// GetLatestByUser returns the user's newest subscription with its plan.
func (s *SubscriptionStore) GetLatestByUser(ctx context.Context, userID uint) (*models.UserSubscription, error) {
	var subscription models.UserSubscription
	err := s.db.WithContext(ctx).
		Preload("SubscriptionPlan").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		First(&subscription).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &subscription, nil
}

// Save writes every column of an existing subscription. The plan association is never written.
func (s *SubscriptionStore) Save(ctx context.Context, subscription *models.UserSubscription) error {
	err := s.db.WithContext(ctx).Omit(clause.Associations).Save(subscription).Error
	return translateError(err)
}

// UpdateStatus changes only the status column.
func (s *SubscriptionStore) UpdateStatus(ctx context.Context, id uint, status models.SubscriptionStatus) error {
	result := s.db.WithContext(ctx).
		Model(&models.UserSubscription{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ExpireLapsed marks the subscription expired only while it is still active
// and its end date lies before now. It reports whether the row changed, so a
// renewal committed after the caller read the row is never overwritten.
func (s *SubscriptionStore) ExpireLapsed(ctx context.Context, id uint, now time.Time) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&models.UserSubscription{}).
		Where("id = ? AND status = ? AND end_date < ?", id, models.SubscriptionActive, now).
		Update("status", models.SubscriptionExpired)
	if result.Error != nil {
		return false, translateError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

// FindByPaymentIntent returns the subscription holding the given payment intent id.
func (s *SubscriptionStore) FindByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.UserSubscription, error) {
	var subscription models.UserSubscription
	err := s.db.WithContext(ctx).Where("payment_intent_id = ?", paymentIntentID).First(&subscription).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &subscription, nil
}

// Upsert creates or rewrites the user's single subscription row inside a
// transaction. The current row is locked and handed to build (nil when the
// user has none); the returned value is persisted. Payment identifiers held
// by another user's row are reported as a *UniqueViolationError before any write.
func (s *SubscriptionStore) Upsert(
	ctx context.Context,
	userID uint,
	build func(current *models.UserSubscription) (*models.UserSubscription, error),
) (*models.UserSubscription, bool, error) {
	var (
		result  *models.UserSubscription
		created bool
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current *models.UserSubscription

		var existing models.UserSubscription
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).
			First(&existing).Error
		switch {
		case err == nil:
			current = &existing
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return err
		}

		next, err := build(current)
		if err != nil {
			return err
		}
		next.UserID = userID

		if err := checkPaymentIdentifiers(tx, next); err != nil {
			return err
		}

		if current == nil {
			created = true
			if err := tx.Omit(clause.Associations).Create(next).Error; err != nil {
				return err
			}
		} else {
			next.ID = current.ID
			next.CreatedAt = current.CreatedAt
			if err := tx.Omit(clause.Associations).Save(next).Error; err != nil {
				return err
			}
		}

		result = next
		return nil
	})
	if err != nil {
		return nil, false, translateError(err)
	}

	logging.Debugf("Subscription upserted - user_id: %d, subscription_id: %d, created: %t", userID, result.ID, created)
	return result, created, nil
}

// checkPaymentIdentifiers rejects identifiers already held by another user's row.
func checkPaymentIdentifiers(tx *gorm.DB, sub *models.UserSubscription) error {
	checks := []struct {
		column string
		value  *string
	}{
		{"transaction_id", sub.TransactionID},
		{"payment_intent_id", sub.PaymentIntentID},
	}

	for _, check := range checks {
		if check.value == nil || *check.value == "" {
			continue
		}
		var count int64
		err := tx.Model(&models.UserSubscription{}).
			Where(check.column+" = ? AND user_id <> ?", *check.value, sub.UserID).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return &UniqueViolationError{Constraint: "user_subscriptions." + check.column}
		}
	}
	return nil
}
