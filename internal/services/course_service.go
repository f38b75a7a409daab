package services

import (
	"context"
	"errors"
	"fmt"

	"learnhub-api/internal/database"
	"learnhub-api/internal/models"
)

const (
	DefaultRandomCourses = 3
	MaxRandomCourses     = 20
)

// CourseRepository reads the course catalog.
type CourseRepository interface {
	List(ctx context.Context) ([]models.Course, error)
	Get(ctx context.Context, id uint) (*models.Course, error)
	GetWithContent(ctx context.Context, id uint) (*models.Course, error)
	FindByIDs(ctx context.Context, ids []uint) (map[uint]*models.Course, error)
	Random(ctx context.Context, n int) ([]models.Course, error)
}

// CourseService serves the public catalog
type CourseService struct {
	courses CourseRepository
}

// NewCourseService creates a new course service
func NewCourseService(courses CourseRepository) *CourseService {
	return &CourseService{courses: courses}
}

// List returns every course
func (s *CourseService) List(ctx context.Context) ([]models.Course, error) {
	courses, err := s.courses.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	return courses, nil
}

// Get returns a course with chapters and videos in order
func (s *CourseService) Get(ctx context.Context, id uint) (*models.Course, error) {
	course, err := s.courses.GetWithContent(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to load course %d: %w", id, err)
	}
	return course, nil
}

// Random samples up to size courses. Non-positive sizes use the default,
// larger ones are capped.
func (s *CourseService) Random(ctx context.Context, size int) ([]models.Course, error) {
	if size <= 0 {
		size = DefaultRandomCourses
	}
	if size > MaxRandomCourses {
		size = MaxRandomCourses
	}

	courses, err := s.courses.Random(ctx, size)
	if err != nil {
		return nil, fmt.Errorf("failed to sample courses: %w", err)
	}
	return courses, nil
}

// ChapterCount returns how many chapters a loaded course has
func ChapterCount(course *models.Course) int {
	if course == nil {
		return 0
	}
	return len(course.Chapters)
}

// FirstChapter returns the lowest-positioned chapter, nil when the course has none
func FirstChapter(course *models.Course) *models.Chapter {
	if ChapterCount(course) == 0 {
		return nil
	}
	first := &course.Chapters[0]
	for i := range course.Chapters {
		if course.Chapters[i].Position < first.Position {
			first = &course.Chapters[i]
		}
	}
	return first
}
