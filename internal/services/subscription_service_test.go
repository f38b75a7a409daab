package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"learnhub-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodEnd(t *testing.T) {
	start := time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		interval models.BillingInterval
		months   *int
		want     time.Time
		wantErr  error
	}{
		{name: "weekly", interval: models.IntervalWeekly, want: time.Date(2024, 2, 7, 10, 0, 0, 0, time.UTC)},
		{name: "monthly overflows like calendar math", interval: models.IntervalMonthly, want: time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)},
		{name: "yearly", interval: models.IntervalYearly, want: time.Date(2025, 1, 31, 10, 0, 0, 0, time.UTC)},
		{name: "months override interval", interval: models.IntervalWeekly, months: intPtr(3), want: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{name: "zero months", interval: models.IntervalMonthly, months: intPtr(0), wantErr: ErrInvalidDuration},
		{name: "negative months", interval: models.IntervalMonthly, months: intPtr(-1), wantErr: ErrInvalidDuration},
		{name: "unknown interval", interval: "daily", wantErr: ErrUnknownInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := periodEnd(start, tt.interval, tt.months)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestCreateOrRenew_MonthlyPurchase(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "a@example.com")

	sub, created, err := f.subs.CreateOrRenew(context.Background(), RenewRequest{
		UserID:          user.ID,
		PlanID:          f.plans[models.IntervalMonthly].ID,
		PaymentIntentID: "pi_123",
		CustomerID:      "cus_1",
	})
	require.NoError(t, err)

	assert.True(t, created)
	assert.Equal(t, models.SubscriptionActive, sub.Status)
	assert.True(t, sub.EndDate.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, models.PaymentMethodStripe, sub.PaymentMethod)
	assert.Equal(t, "Monthly", sub.SubscriptionPlan.Title)
	assert.True(t, f.subs.IsActive(sub))
	assert.Equal(t, 31, f.subs.DaysRemaining(sub))
	assert.Equal(t, 1, f.events.count(EventSubscriptionActivated))
}

func TestCreateOrRenew_RenewsInPlaceFromNow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.createUser(t, "a@example.com")

	first := f.subscribe(t, user.ID, models.IntervalWeekly)

	// renewal after the old period lapsed starts from now, not from the old end date
	renewedAt := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	f.clock.Set(renewedAt)
	second, created, err := f.subs.CreateOrRenew(ctx, RenewRequest{
		UserID:        user.ID,
		PlanID:        f.plans[models.IntervalYearly].ID,
		PaymentMethod: models.PaymentMethodPayPal,
		TransactionID: "txn_9",
	})
	require.NoError(t, err)

	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.StartDate.Equal(renewedAt))
	assert.True(t, second.EndDate.Equal(renewedAt.AddDate(1, 0, 0)))
	assert.Equal(t, f.plans[models.IntervalYearly].ID, second.SubscriptionPlanID)
	assert.Equal(t, "txn_9", *second.TransactionID)

	var count int64
	require.NoError(t, f.db.Model(&models.UserSubscription{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateOrRenew_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, _, err := f.subs.CreateOrRenew(ctx, RenewRequest{UserID: 1, PlanID: 999})
	assert.ErrorIs(t, err, ErrPlanNotFound)

	_, _, err = f.subs.CreateOrRenew(ctx, RenewRequest{UserID: 1, PlanID: f.plans[models.IntervalMonthly].ID, PaymentMethod: "cash"})
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = f.subs.CreateOrRenew(ctx, RenewRequest{UserID: 1, PlanID: f.plans[models.IntervalMonthly].ID, DurationMonths: intPtr(0)})
	assert.ErrorIs(t, err, ErrInvalidDuration)

	for _, status := range []models.PaymentStatus{models.PaymentFailed, models.PaymentPending, models.PaymentRequiresAction, "bogus"} {
		_, _, err = f.subs.CreateOrRenew(ctx, RenewRequest{UserID: 1, PlanID: f.plans[models.IntervalMonthly].ID, PaymentStatus: status})
		assert.ErrorIs(t, err, ErrValidation, status)
	}

	sub, err := f.subs.GetCurrentSubscription(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, sub, "failed requests must not write")
}

func TestCreateOrRenew_UnknownIntervalRejected(t *testing.T) {
	f := newFixture(t)
	plan := &models.SubscriptionPlan{Title: "Daily", Price: 1, Interval: "daily", ButtonText: "Go"}
	require.NoError(t, f.db.Create(plan).Error)

	_, _, err := f.subs.CreateOrRenew(context.Background(), RenewRequest{UserID: 1, PlanID: plan.ID})
	assert.ErrorIs(t, err, ErrUnknownInterval)
}

func TestCreateOrRenew_ConcurrentSameTransactionID(t *testing.T) {
	f := newFixture(t)
	planID := f.plans[models.IntervalMonthly].ID

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = f.subs.CreateOrRenew(context.Background(), RenewRequest{
				UserID:        uint(100 + i),
				PlanID:        planID,
				TransactionID: "txn_shared",
			})
		}(i)
	}
	wg.Wait()

	succeeded, duplicates := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case assert.ErrorIs(t, err, ErrDuplicatePaymentIdentifier):
			duplicates++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, duplicates)
}

func TestCheckAndUpdateExpiry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.createUser(t, "a@example.com")
	sub := f.subscribe(t, user.ID, models.IntervalMonthly)

	// the end instant itself is still active
	f.clock.Set(sub.EndDate)
	got, err := f.subs.CheckAndUpdateExpiry(ctx, sub)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionActive, got.Status)
	assert.True(t, f.subs.IsActive(got))

	f.clock.Set(sub.EndDate.Add(time.Second))
	got, err = f.subs.CheckAndUpdateExpiry(ctx, sub)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionExpired, got.Status)

	stored, err := f.subs.GetCurrentSubscription(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionExpired, stored.Status)

	// idempotent, and expired stays expired even if the clock reads earlier
	_, err = f.subs.CheckAndUpdateExpiry(ctx, stored)
	require.NoError(t, err)
	assert.Equal(t, 1, f.events.count(EventSubscriptionExpired))

	f.clock.Set(jan1)
	assert.False(t, f.subs.IsActive(stored))
	assert.Equal(t, 0, f.subs.DaysRemaining(stored))
}

func TestCheckAndUpdateExpiry_KeepsRenewalCommittedAfterRead(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.createUser(t, "a@example.com")
	f.subscribe(t, user.ID, models.IntervalWeekly)

	stale, err := f.subs.GetCurrentSubscription(ctx, user.ID)
	require.NoError(t, err)

	f.clock.Set(time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC))
	renewed := f.subscribe(t, user.ID, models.IntervalMonthly)
	require.True(t, renewed.EndDate.Equal(time.Date(2024, 2, 11, 0, 0, 0, 0, time.UTC)))

	got, err := f.subs.CheckAndUpdateExpiry(ctx, stale)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionActive, got.Status)
	assert.True(t, got.EndDate.Equal(renewed.EndDate))
	assert.True(t, f.subs.IsActive(got))

	stored, err := f.subs.GetCurrentSubscription(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionActive, stored.Status)
	assert.Zero(t, f.events.count(EventSubscriptionExpired))
}

func TestDaysRemaining(t *testing.T) {
	now := jan1
	f := newFixture(t)

	sub := &models.UserSubscription{Status: models.SubscriptionActive, EndDate: now.Add(36 * time.Hour)}
	assert.Equal(t, 2, f.subs.DaysRemaining(sub))

	sub.EndDate = now.Add(24 * time.Hour)
	assert.Equal(t, 1, f.subs.DaysRemaining(sub))

	sub.EndDate = now
	assert.Equal(t, 0, f.subs.DaysRemaining(sub))

	sub.EndDate = now.Add(48 * time.Hour)
	sub.Status = models.SubscriptionCancelled
	assert.Equal(t, 0, f.subs.DaysRemaining(sub))
	assert.Equal(t, 0, f.subs.DaysRemaining(nil))
	assert.False(t, f.subs.IsActive(nil))
}

func TestExtend(t *testing.T) {
	ctx := context.Background()

	t.Run("active subscription extends from its end date", func(t *testing.T) {
		f := newFixture(t)
		sub := f.subscribe(t, 1, models.IntervalMonthly)

		got, err := f.subs.Extend(ctx, ExtendRequest{UserID: 1, TransactionID: "txn_ext", DurationMonths: intPtr(2)})
		require.NoError(t, err)
		assert.True(t, got.EndDate.Equal(sub.EndDate.AddDate(0, 2, 0)))
		assert.Equal(t, "txn_ext", *got.TransactionID)
		assert.Equal(t, models.SubscriptionActive, got.Status)
	})

	t.Run("lapsed subscription extends from now", func(t *testing.T) {
		f := newFixture(t)
		f.subscribe(t, 1, models.IntervalWeekly)

		later := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
		f.clock.Set(later)
		got, err := f.subs.Extend(ctx, ExtendRequest{
			UserID:         1,
			TransactionID:  "txn_ext",
			PlanID:         f.plans[models.IntervalYearly].ID,
			DurationMonths: intPtr(1),
		})
		require.NoError(t, err)
		assert.True(t, got.EndDate.Equal(later.AddDate(0, 1, 0)))
		assert.Equal(t, f.plans[models.IntervalYearly].ID, got.SubscriptionPlanID)
		require.NotNil(t, got.SubscriptionPlan)
		assert.Equal(t, "Yearly", got.SubscriptionPlan.Title)
	})

	t.Run("without months only reactivates", func(t *testing.T) {
		f := newFixture(t)
		sub := f.subscribe(t, 1, models.IntervalWeekly)

		got, err := f.subs.Extend(ctx, ExtendRequest{UserID: 1, TransactionID: "txn_ext"})
		require.NoError(t, err)
		assert.True(t, got.EndDate.Equal(sub.EndDate))
	})

	t.Run("without months a lapsed period is not reactivated", func(t *testing.T) {
		f := newFixture(t)
		sub := f.subscribe(t, 1, models.IntervalWeekly)
		_, err := f.subs.Cancel(ctx, sub)
		require.NoError(t, err)

		f.clock.Set(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
		got, err := f.subs.Extend(ctx, ExtendRequest{UserID: 1, TransactionID: "txn_ext"})
		require.NoError(t, err)
		assert.Equal(t, models.SubscriptionCancelled, got.Status)
		assert.False(t, f.subs.IsActive(got))

		active := f.subscribe(t, 2, models.IntervalWeekly)
		f.clock.Set(active.EndDate.Add(24 * time.Hour))
		got, err = f.subs.Extend(ctx, ExtendRequest{UserID: 2, TransactionID: "txn_ext2"})
		require.NoError(t, err)
		assert.Equal(t, models.SubscriptionExpired, got.Status)
		assert.True(t, got.EndDate.Equal(active.EndDate))
	})

	t.Run("errors", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.subs.Extend(ctx, ExtendRequest{UserID: 1, TransactionID: "txn"})
		assert.ErrorIs(t, err, ErrSubscriptionNotFound)

		_, err = f.subs.Extend(ctx, ExtendRequest{UserID: 1})
		assert.ErrorIs(t, err, ErrValidation)

		_, err = f.subs.Extend(ctx, ExtendRequest{UserID: 1, TransactionID: "txn", DurationMonths: intPtr(0)})
		assert.ErrorIs(t, err, ErrInvalidDuration)

		f.subscribe(t, 1, models.IntervalWeekly)
		_, err = f.subs.Extend(ctx, ExtendRequest{UserID: 1, TransactionID: "txn", PlanID: 999})
		assert.ErrorIs(t, err, ErrPlanNotFound)
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sub := f.subscribe(t, 1, models.IntervalMonthly)
	endDate := sub.EndDate

	got, err := f.subs.Cancel(ctx, sub)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionCancelled, got.Status)
	assert.True(t, got.EndDate.Equal(endDate))
	assert.False(t, f.subs.IsActive(got))

	stored, err := f.subs.GetCurrentSubscription(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionCancelled, stored.Status)

	// cancelled subscriptions are not expired on read
	f.clock.Set(endDate.AddDate(0, 1, 0))
	stored, err = f.subs.CheckAndUpdateExpiry(ctx, stored)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionCancelled, stored.Status)

	_, err = f.subs.Cancel(ctx, nil)
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
	assert.Equal(t, 1, f.events.count(EventSubscriptionCancelled))
}
