package database

import (
	"context"
	"fmt"

	"learnhub-api/internal/models"
	"learnhub-api/pkg/logging"

	"gorm.io/gorm"
)

// DefaultPlans is the reference price list seeded on start-up.
var DefaultPlans = []models.SubscriptionPlan{
	{Title: "Weekly", Price: 14.99, Interval: models.IntervalWeekly, ButtonText: "Start Weekly"},
	{Title: "Monthly", Price: 49.99, Interval: models.IntervalMonthly, IsPopular: true, ButtonText: "Start Monthly"},
	{Title: "Yearly", Price: 399.99, Interval: models.IntervalYearly, ButtonText: "Start Yearly"},
}

// PlanStore reads subscription plans.
type PlanStore struct {
	db *gorm.DB
}

func NewPlanStore(db *gorm.DB) *PlanStore {
	return &PlanStore{db: db}
}

// List returns all plans ordered by price.
func (s *PlanStore) List(ctx context.Context) ([]models.SubscriptionPlan, error) {
	var plans []models.SubscriptionPlan
	if err := s.db.WithContext(ctx).Order("price ASC").Find(&plans).Error; err != nil {
		return nil, translateError(err)
	}
	return plans, nil
}

// Get returns one plan.
func (s *PlanStore) Get(ctx context.Context, id uint) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	if err := s.db.WithContext(ctx).First(&plan, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &plan, nil
}

// SeedDefaultPlans inserts the default plans that are missing, matched by title.
func SeedDefaultPlans(ctx context.Context, db *gorm.DB) error {
	for _, plan := range DefaultPlans {
		plan := plan
		// Use FirstOrCreate to avoid duplicates
		result := db.WithContext(ctx).Where("title = ?", plan.Title).FirstOrCreate(&plan)
		if result.Error != nil {
			return fmt.Errorf("failed to create default plan %s: %w", plan.Title, result.Error)
		}
	}

	logging.Infof("Default data inserted successfully")
	return nil
}
