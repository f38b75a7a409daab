package models

import "math"

// BillingInterval is how long one payment for a plan lasts.
type BillingInterval string

const (
	IntervalWeekly  BillingInterval = "weekly"
	IntervalMonthly BillingInterval = "monthly"
	IntervalYearly  BillingInterval = "yearly"
)

// Valid reports whether the interval is one the service knows how to apply.
func (i BillingInterval) Valid() bool {
	switch i {
	case IntervalWeekly, IntervalMonthly, IntervalYearly:
		return true
	}
	return false
}

// SubscriptionPlan is purchasable reference data. Price is in major currency units.
type SubscriptionPlan struct {
	BaseModel
	Title      string          `json:"title" gorm:"size:100;not null"`
	Price      float64         `json:"price" gorm:"not null"`
	Interval   BillingInterval `json:"interval" gorm:"size:20;not null"`
	IsPopular  bool            `json:"isPopular" gorm:"default:false"`
	ButtonText string          `json:"buttonText" gorm:"not null"`
}

// PriceMinorUnits returns the canonical price in cents.
func (p *SubscriptionPlan) PriceMinorUnits() int64 {
	return ToMinorUnits(p.Price)
}

// ToMinorUnits converts a major-unit amount to minor units, rounding half away from zero.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
