package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"learnhub-api/internal/database"
	"learnhub-api/internal/database/dbtest"
	"learnhub-api/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, body interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if evt, ok := body.(DomainEvent); ok {
		p.events = append(p.events, evt)
	}
	return nil
}

func (p *recordingPublisher) Close() {}

func (p *recordingPublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, evt := range p.events {
		if evt.Type == eventType {
			n++
		}
	}
	return n
}

type recordingMailer struct {
	sent chan Receipt
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{sent: make(chan Receipt, 8)}
}

func (m *recordingMailer) SendSubscriptionReceipt(_ context.Context, receipt Receipt) error {
	m.sent <- receipt
	return nil
}

type fixture struct {
	db          *gorm.DB
	clock       *fakeClock
	events      *recordingPublisher
	users       *database.UserStore
	courses     *database.CourseStore
	enrollStore *database.EnrollmentStore
	subs        *SubscriptionService
	enrollments *EnrollmentService
	plans       map[models.BillingInterval]models.SubscriptionPlan
}

var jan1 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := dbtest.New(t)
	f := &fixture{
		db:          db,
		clock:       newFakeClock(jan1),
		events:      &recordingPublisher{},
		users:       database.NewUserStore(db),
		courses:     database.NewCourseStore(db),
		enrollStore: database.NewEnrollmentStore(db),
		plans:       map[models.BillingInterval]models.SubscriptionPlan{},
	}
	planStore := database.NewPlanStore(db)
	f.subs = NewSubscriptionService(database.NewSubscriptionStore(db), planStore, f.events, f.clock)
	f.enrollments = NewEnrollmentService(f.subs, f.enrollStore, f.courses, f.events, f.clock)

	plans, err := planStore.List(context.Background())
	require.NoError(t, err)
	for _, p := range plans {
		f.plans[p.Interval] = p
	}
	return f
}

func (f *fixture) createUser(t *testing.T, email string) *models.User {
	t.Helper()
	user := &models.User{Name: "Student", Email: email, PasswordHash: "x"}
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}

func (f *fixture) createCourse(t *testing.T, title string, chapters int) *models.Course {
	t.Helper()
	course := &models.Course{Title: title, Description: title + " description", Instructor: "Grace"}
	for i := 1; i <= chapters; i++ {
		course.Chapters = append(course.Chapters, models.Chapter{Title: "Chapter", Position: i})
	}
	require.NoError(t, f.courses.Create(context.Background(), course))
	return course
}

func (f *fixture) subscribe(t *testing.T, userID uint, interval models.BillingInterval) *models.UserSubscription {
	t.Helper()
	sub, _, err := f.subs.CreateOrRenew(context.Background(), RenewRequest{
		UserID: userID,
		PlanID: f.plans[interval].ID,
	})
	require.NoError(t, err)
	return sub
}

func intPtr(n int) *int { return &n }
