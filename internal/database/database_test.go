package database_test

import (
	"context"
	"testing"
	"time"

	"learnhub-api/internal/database"
	"learnhub-api/internal/database/dbtest"
	"learnhub-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func monthlyPlan(t *testing.T, plans *database.PlanStore) models.SubscriptionPlan {
	t.Helper()
	list, err := plans.List(context.Background())
	require.NoError(t, err)
	for _, p := range list {
		if p.Interval == models.IntervalMonthly {
			return p
		}
	}
	t.Fatal("monthly plan not seeded")
	return models.SubscriptionPlan{}
}

func TestSeedDefaultPlans_Idempotent(t *testing.T) {
	db := dbtest.New(t)
	require.NoError(t, database.SeedDefaultPlans(context.Background(), db))

	plans, err := database.NewPlanStore(db).List(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 3)
	assert.Equal(t, "Weekly", plans[0].Title)
	assert.Equal(t, int64(1499), plans[0].PriceMinorUnits())
	assert.Equal(t, "Yearly", plans[2].Title)
}

func TestSubscriptionStore_UpsertCreatesThenRewrites(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	store := database.NewSubscriptionStore(db)
	plan := monthlyPlan(t, database.NewPlanStore(db))
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	first, created, err := store.Upsert(ctx, 7, func(current *models.UserSubscription) (*models.UserSubscription, error) {
		assert.Nil(t, current)
		return &models.UserSubscription{
			SubscriptionPlanID: plan.ID,
			Status:             models.SubscriptionActive,
			StartDate:          now,
			EndDate:            now.AddDate(0, 1, 0),
			PaymentMethod:      models.PaymentMethodStripe,
			PaymentIntentID:    strPtr("pi_1"),
		}, nil
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, first.ID)

	second, created, err := store.Upsert(ctx, 7, func(current *models.UserSubscription) (*models.UserSubscription, error) {
		require.NotNil(t, current)
		assert.Equal(t, first.ID, current.ID)
		return &models.UserSubscription{
			SubscriptionPlanID: plan.ID,
			Status:             models.SubscriptionActive,
			StartDate:          now,
			EndDate:            now.AddDate(0, 2, 0),
			PaymentMethod:      models.PaymentMethodStripe,
			PaymentIntentID:    strPtr("pi_2"),
		}, nil
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	latest, err := store.GetLatestByUser(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "pi_2", *latest.PaymentIntentID)
	assert.True(t, latest.EndDate.Equal(now.AddDate(0, 2, 0)))
	require.NotNil(t, latest.SubscriptionPlan)
	assert.Equal(t, plan.Title, latest.SubscriptionPlan.Title)

	var count int64
	require.NoError(t, db.Model(&models.UserSubscription{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSubscriptionStore_UpsertRejectsForeignPaymentIdentifier(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	store := database.NewSubscriptionStore(db)
	plan := monthlyPlan(t, database.NewPlanStore(db))
	now := time.Now()

	build := func(txID string) func(*models.UserSubscription) (*models.UserSubscription, error) {
		return func(*models.UserSubscription) (*models.UserSubscription, error) {
			return &models.UserSubscription{
				SubscriptionPlanID: plan.ID,
				Status:             models.SubscriptionActive,
				StartDate:          now,
				EndDate:            now.AddDate(0, 1, 0),
				PaymentMethod:      models.PaymentMethodCreditCard,
				TransactionID:      strPtr(txID),
			}, nil
		}
	}

	_, _, err := store.Upsert(ctx, 1, build("txn_1"))
	require.NoError(t, err)

	_, _, err = store.Upsert(ctx, 2, build("txn_1"))
	require.ErrorIs(t, err, database.ErrUniqueViolation)
	var violation *database.UniqueViolationError
	require.ErrorAs(t, err, &violation)
	assert.True(t, violation.Involves("transaction_id"))

	// the same user may keep its own identifier
	_, created, err := store.Upsert(ctx, 1, build("txn_1"))
	require.NoError(t, err)
	assert.False(t, created)
}

func TestSubscriptionStore_UniqueIndexTranslated(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	store := database.NewSubscriptionStore(db)
	plan := monthlyPlan(t, database.NewPlanStore(db))
	now := time.Now()

	rows := []*models.UserSubscription{
		{UserID: 1, SubscriptionPlanID: plan.ID, StartDate: now, EndDate: now, PaymentIntentID: strPtr("pi_x")},
		{UserID: 2, SubscriptionPlanID: plan.ID, StartDate: now, EndDate: now},
		{UserID: 3, SubscriptionPlanID: plan.ID, StartDate: now, EndDate: now},
	}
	for _, row := range rows {
		require.NoError(t, db.Create(row).Error)
	}

	// NULL identifiers never collide, a repeated one does
	rows[2].PaymentIntentID = strPtr("pi_x")
	err := store.Save(ctx, rows[2])
	var violation *database.UniqueViolationError
	require.ErrorAs(t, err, &violation)
	assert.True(t, violation.Involves("payment_intent_id"))
}

func TestSubscriptionStore_NotFoundAndStatus(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	store := database.NewSubscriptionStore(db)

	_, err := store.GetLatestByUser(ctx, 99)
	assert.ErrorIs(t, err, database.ErrNotFound)
	assert.ErrorIs(t, store.UpdateStatus(ctx, 99, models.SubscriptionExpired), database.ErrNotFound)

	plan := monthlyPlan(t, database.NewPlanStore(db))
	sub := &models.UserSubscription{UserID: 5, SubscriptionPlanID: plan.ID, Status: models.SubscriptionActive, StartDate: time.Now(), EndDate: time.Now()}
	require.NoError(t, db.Create(sub).Error)
	require.NoError(t, store.UpdateStatus(ctx, sub.ID, models.SubscriptionExpired))

	got, err := store.GetLatestByUser(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionExpired, got.Status)
}

func TestSubscriptionStore_ExpireLapsed(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	store := database.NewSubscriptionStore(db)
	plan := monthlyPlan(t, database.NewPlanStore(db))

	end := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	sub := &models.UserSubscription{UserID: 5, SubscriptionPlanID: plan.ID, Status: models.SubscriptionActive, StartDate: end.AddDate(0, 0, -7), EndDate: end}
	require.NoError(t, db.Create(sub).Error)

	changed, err := store.ExpireLapsed(ctx, sub.ID, end)
	require.NoError(t, err)
	assert.False(t, changed, "the end instant is still covered")

	// a renewal moved the end date before the expiry write landed
	require.NoError(t, db.Model(sub).Update("end_date", end.AddDate(0, 1, 0)).Error)
	changed, err = store.ExpireLapsed(ctx, sub.ID, end.Add(72*time.Hour))
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = store.ExpireLapsed(ctx, sub.ID, end.AddDate(0, 2, 0))
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := store.GetLatestByUser(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionExpired, got.Status)

	changed, err = store.ExpireLapsed(ctx, sub.ID, end.AddDate(0, 3, 0))
	require.NoError(t, err)
	assert.False(t, changed, "only active rows expire")
}

func TestEnrollmentStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	store := database.NewEnrollmentStore(db)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	for i, courseID := range []uint{10, 11} {
		require.NoError(t, store.Create(ctx, &models.Enrollment{
			UserID:     1,
			CourseID:   courseID,
			EnrolledAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	err := store.Create(ctx, &models.Enrollment{UserID: 1, CourseID: 10, EnrolledAt: base})
	var violation *database.UniqueViolationError
	require.ErrorAs(t, err, &violation)
	assert.True(t, violation.Involves("course_id"))

	list, err := store.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, uint(11), list[0].CourseID)

	exists, err := store.Exists(ctx, 1, 10)
	require.NoError(t, err)
	assert.True(t, exists)

	removed, err := store.Delete(ctx, 1, 10)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = store.Delete(ctx, 1, 10)
	require.NoError(t, err)
	assert.False(t, removed)

	// hard delete frees the pair for a new enrollment
	require.NoError(t, store.Create(ctx, &models.Enrollment{UserID: 1, CourseID: 10, EnrolledAt: base}))

	n, err := store.DeleteAllForUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = store.Find(ctx, 1, 11)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestCourseStore_ContentOrdering(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	store := database.NewCourseStore(db)

	course := &models.Course{
		Title:       "Go Basics",
		Description: "Learn Go",
		Chapters: []models.Chapter{
			{Title: "Second", Position: 2, Videos: []models.Video{{Title: "v2", URL: "/v2.mp4", Position: 1}}},
			{Title: "First", Position: 1, Videos: []models.Video{
				{Title: "b", URL: "/b.mp4", Position: 2},
				{Title: "a", URL: "/a.mp4", Position: 1},
			}},
		},
	}
	require.NoError(t, store.Create(ctx, course))

	got, err := store.GetWithContent(ctx, course.ID)
	require.NoError(t, err)
	require.Len(t, got.Chapters, 2)
	assert.Equal(t, "First", got.Chapters[0].Title)
	require.Len(t, got.Chapters[0].Videos, 2)
	assert.Equal(t, "a", got.Chapters[0].Videos[0].Title)

	found, err := store.FindByIDs(ctx, []uint{course.ID, 999})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Len(t, found[course.ID].Chapters, 2)

	_, err = store.Get(ctx, 999)
	assert.ErrorIs(t, err, database.ErrNotFound)

	random, err := store.Random(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, random, 1)
}

func TestUserStore_EmailNormalized(t *testing.T) {
	ctx := context.Background()
	store := database.NewUserStore(dbtest.New(t))

	require.NoError(t, store.Create(ctx, &models.User{Name: "Ada", Email: " Ada@Example.com ", PasswordHash: "x"}))

	got, err := store.GetByEmail(ctx, "ada@example.COM")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", got.Email)

	err = store.Create(ctx, &models.User{Name: "Other", Email: "ADA@example.com", PasswordHash: "y"})
	assert.ErrorIs(t, err, database.ErrUniqueViolation)
}
