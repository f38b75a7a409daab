package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"learnhub-api/internal/database"
	"learnhub-api/internal/models"
	"learnhub-api/pkg/logging"
)

const (
	// ExpiredListingMessage accompanies the empty listing after enrollments are revoked
	ExpiredListingMessage = "Your subscription has expired. Please renew to access courses."
	PlaceholderThumbnail  = "/api/placeholder/280/160"
	FallbackPlanTitle     = "Premium Subscription"
)

// EnrollmentRepository persists enrollments.
type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Save(ctx context.Context, enrollment *models.Enrollment) error
	Find(ctx context.Context, userID, courseID uint) (*models.Enrollment, error)
	Exists(ctx context.Context, userID, courseID uint) (bool, error)
	Delete(ctx context.Context, userID, courseID uint) (bool, error)
	DeleteAllForUser(ctx context.Context, userID uint) (int64, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Enrollment, error)
}

// EnrollmentResult describes a successful enrollment.
type EnrollmentResult struct {
	EnrollmentID     uint   `json:"enrollmentId"`
	CourseTitle      string `json:"courseTitle"`
	SubscriptionPlan string `json:"subscriptionPlan"`
}

// EnrolledCourse is one row of the student's enrolled course listing.
type EnrolledCourse struct {
	EnrollmentID  uint      `json:"enrollmentId"`
	CourseID      uint      `json:"courseId"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Instructor    string    `json:"instructor"`
	Thumbnail     string    `json:"thumbnail"`
	NextLesson    string    `json:"nextLesson"`
	EnrolledAt    time.Time `json:"enrolledAt"`
	LastAccessed  time.Time `json:"lastAccessed"`
	TotalChapters int       `json:"totalChapters"`
	Progress      float64   `json:"progress"`
	IsCompleted   bool      `json:"isCompleted"`
}

// EnrollmentListing is the result of ListEnrollments.
type EnrollmentListing struct {
	EnrolledCourses []EnrolledCourse `json:"enrolledCourses"`
	TotalEnrolled   int              `json:"totalEnrolled"`
	Message         string           `json:"message,omitempty"`
}

// EnrollmentStatus reports whether the user is enrolled in a course.
type EnrollmentStatus struct {
	Enrolled     bool  `json:"enrolled"`
	EnrollmentID *uint `json:"enrollmentId"`
}

// ProgressUpdate marks progress on one chapter.
type ProgressUpdate struct {
	ChapterID uint
	Completed bool
}

// EnrollmentService gates enrollments on an active subscription
type EnrollmentService struct {
	subscriptions *SubscriptionService
	enrollments   EnrollmentRepository
	courses       CourseRepository
	events        Publisher
	clock         Clock
}

// NewEnrollmentService creates a new enrollment service
func NewEnrollmentService(subscriptions *SubscriptionService, enrollments EnrollmentRepository, courses CourseRepository, events Publisher, clock Clock) *EnrollmentService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &EnrollmentService{
		subscriptions: subscriptions,
		enrollments:   enrollments,
		courses:       courses,
		events:        events,
		clock:         clock,
	}
}

// requireActive returns the user's subscription or ErrSubscriptionRequired.
func (s *EnrollmentService) requireActive(ctx context.Context, userID uint) (*models.UserSubscription, error) {
	sub, active, err := s.subscriptions.CurrentActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, ErrSubscriptionRequired
	}
	return sub, nil
}

func (s *EnrollmentService) loadCourse(ctx context.Context, courseID uint) (*models.Course, error) {
	course, err := s.courses.Get(ctx, courseID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to load course %d: %w", courseID, err)
	}
	return course, nil
}

// Enroll grants the user access to a course
func (s *EnrollmentService) Enroll(ctx context.Context, userID, courseID uint) (*EnrollmentResult, error) {
	sub, err := s.requireActive(ctx, userID)
	if err != nil {
		return nil, err
	}

	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	exists, err := s.enrollments.Exists(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}
	if exists {
		return nil, ErrAlreadyEnrolled
	}

	now := s.clock.Now()
	enrollment := &models.Enrollment{
		UserID:     userID,
		CourseID:   courseID,
		EnrolledAt: now,
		NextLesson: models.NextLessonStartCourse,
	}
	if first := FirstChapter(course); first != nil {
		enrollment.NextLesson = models.NextLessonFirstChapter
		enrollment.Progress.CurrentChapterID = &first.ID
	}
	enrollment.Progress.SetCompletedChapterIDs(nil)
	enrollment.Progress.LastAccessed = now

	if err := s.enrollments.Create(ctx, enrollment); err != nil {
		// A concurrent request may have won the unique index
		if errors.Is(err, database.ErrUniqueViolation) {
			return nil, ErrAlreadyEnrolled
		}
		return nil, fmt.Errorf("failed to create enrollment: %w", err)
	}

	planTitle := FallbackPlanTitle
	if sub.SubscriptionPlan != nil && sub.SubscriptionPlan.Title != "" {
		planTitle = sub.SubscriptionPlan.Title
	}

	logging.Infof("User enrolled - user_id: %d, course_id: %d, enrollment_id: %d", userID, courseID, enrollment.ID)
	publishEvent(ctx, s.events, DomainEvent{
		Type:       EventEnrollmentCreated,
		UserID:     userID,
		OccurredAt: now,
		Data:       map[string]interface{}{"courseId": courseID, "enrollmentId": enrollment.ID},
	})

	return &EnrollmentResult{
		EnrollmentID:     enrollment.ID,
		CourseTitle:      course.Title,
		SubscriptionPlan: planTitle,
	}, nil
}

// Unenroll removes the user's enrollment. Managing enrollments requires an
// active subscription, the same as creating them.
func (s *EnrollmentService) Unenroll(ctx context.Context, userID, courseID uint) error {
	if _, err := s.requireActive(ctx, userID); err != nil {
		return err
	}

	removed, err := s.enrollments.Delete(ctx, userID, courseID)
	if err != nil {
		return fmt.Errorf("failed to delete enrollment: %w", err)
	}
	if !removed {
		return ErrEnrollmentNotFound
	}

	logging.Infof("User unenrolled - user_id: %d, course_id: %d", userID, courseID)
	publishEvent(ctx, s.events, DomainEvent{
		Type:       EventEnrollmentRemoved,
		UserID:     userID,
		OccurredAt: s.clock.Now(),
		Data:       map[string]interface{}{"courseId": courseID},
	})
	return nil
}

// ListEnrollments returns the user's enrolled courses. When the subscription
// is no longer active every enrollment of the user is deleted first and an
// empty listing with an expiry message is returned.
func (s *EnrollmentService) ListEnrollments(ctx context.Context, userID uint) (*EnrollmentListing, error) {
	_, active, err := s.subscriptions.CurrentActive(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !active {
		removed, err := s.enrollments.DeleteAllForUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to revoke enrollments: %w", err)
		}
		if removed > 0 {
			logging.Infof("Enrollments revoked - user_id: %d, removed: %d", userID, removed)
			publishEvent(ctx, s.events, DomainEvent{
				Type:       EventEnrollmentsRevoked,
				UserID:     userID,
				OccurredAt: s.clock.Now(),
				Data:       map[string]interface{}{"removed": removed},
			})
		}
		return &EnrollmentListing{
			EnrolledCourses: []EnrolledCourse{},
			TotalEnrolled:   0,
			Message:         ExpiredListingMessage,
		}, nil
	}

	enrollments, err := s.enrollments.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}

	courseIDs := make([]uint, 0, len(enrollments))
	for _, e := range enrollments {
		courseIDs = append(courseIDs, e.CourseID)
	}
	courses, err := s.courses.FindByIDs(ctx, courseIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load enrolled courses: %w", err)
	}

	listing := &EnrollmentListing{EnrolledCourses: make([]EnrolledCourse, 0, len(enrollments))}
	for _, e := range enrollments {
		course, ok := courses[e.CourseID]
		if !ok {
			// course was removed from the catalog
			continue
		}

		thumbnail := course.Image
		if thumbnail == "" {
			thumbnail = PlaceholderThumbnail
		}
		nextLesson := e.NextLesson
		if nextLesson == "" {
			nextLesson = models.NextLessonStartCourse
		}
		lastAccessed := e.Progress.LastAccessed
		if lastAccessed.IsZero() {
			lastAccessed = e.UpdatedAt
		}

		listing.EnrolledCourses = append(listing.EnrolledCourses, EnrolledCourse{
			EnrollmentID:  e.ID,
			CourseID:      course.ID,
			Title:         course.Title,
			Description:   course.Description,
			Instructor:    course.Instructor,
			Thumbnail:     thumbnail,
			NextLesson:    nextLesson,
			EnrolledAt:    e.EnrolledAt,
			LastAccessed:  lastAccessed,
			TotalChapters: ChapterCount(course),
			Progress:      e.Progress.Percentage,
			IsCompleted:   e.IsCompleted,
		})
	}
	listing.TotalEnrolled = len(listing.EnrolledCourses)
	return listing, nil
}

// EnrollmentStatus reports whether the user is enrolled without touching the subscription
func (s *EnrollmentService) EnrollmentStatus(ctx context.Context, userID, courseID uint) (*EnrollmentStatus, error) {
	enrollment, err := s.enrollments.Find(ctx, userID, courseID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return &EnrollmentStatus{Enrolled: false}, nil
		}
		return nil, fmt.Errorf("failed to look up enrollment: %w", err)
	}
	id := enrollment.ID
	return &EnrollmentStatus{Enrolled: true, EnrollmentID: &id}, nil
}

// UpdateProgress records progress on a chapter of an enrolled course
func (s *EnrollmentService) UpdateProgress(ctx context.Context, userID, courseID uint, update ProgressUpdate) (*models.Enrollment, error) {
	if update.ChapterID == 0 {
		return nil, invalid("chapterId", "is required")
	}
	if _, err := s.requireActive(ctx, userID); err != nil {
		return nil, err
	}

	enrollment, err := s.enrollments.Find(ctx, userID, courseID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("failed to look up enrollment: %w", err)
	}

	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	index := -1
	for i := range course.Chapters {
		if course.Chapters[i].ID == update.ChapterID {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, ErrChapterNotFound
	}

	now := s.clock.Now()
	chapterID := update.ChapterID
	enrollment.Progress.CurrentChapterID = &chapterID
	enrollment.Progress.LastAccessed = now

	valid := make(map[uint]bool, len(course.Chapters))
	for _, ch := range course.Chapters {
		valid[ch.ID] = true
	}
	completed := make([]uint, 0, len(course.Chapters))
	seen := make(map[uint]bool)
	for _, id := range enrollment.Progress.CompletedChapterIDs() {
		if valid[id] && !seen[id] {
			seen[id] = true
			completed = append(completed, id)
		}
	}
	if update.Completed && !seen[chapterID] {
		seen[chapterID] = true
		completed = append(completed, chapterID)
	}
	enrollment.Progress.SetCompletedChapterIDs(completed)

	total := len(course.Chapters)
	enrollment.Progress.Percentage = math.Min(100, math.Max(0, float64(len(completed))/float64(total)*100))

	if len(completed) == total {
		if !enrollment.IsCompleted {
			enrollment.IsCompleted = true
			enrollment.CompletedAt = &now
		}
		enrollment.NextLesson = models.NextLessonCompleted
	} else {
		enrollment.NextLesson = fmt.Sprintf("Continue with Chapter %d", nextIncomplete(course.Chapters, seen, index)+1)
	}

	if err := s.enrollments.Save(ctx, enrollment); err != nil {
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}
	return enrollment, nil
}

// nextIncomplete returns the index of the first chapter at or after from that
// is not completed, wrapping to the start of the course.
func nextIncomplete(chapters []models.Chapter, completed map[uint]bool, from int) int {
	for i := 0; i < len(chapters); i++ {
		idx := (from + i) % len(chapters)
		if !completed[chapters[idx].ID] {
			return idx
		}
	}
	return from
}
