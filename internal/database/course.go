package database

import (
	"context"

	"learnhub-api/internal/models"

	"gorm.io/gorm"
)

// CourseStore reads the course catalog. Catalog content is written by the admin tool.
type CourseStore struct {
	db *gorm.DB
}

func NewCourseStore(db *gorm.DB) *CourseStore {
	return &CourseStore{db: db}
}

func orderByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC").Order("id ASC")
}

// List returns every course without its content.
func (s *CourseStore) List(ctx context.Context) ([]models.Course, error) {
	var courses []models.Course
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&courses).Error; err != nil {
		return nil, translateError(err)
	}
	return courses, nil
}

// Get returns a course with its ordered chapters.
func (s *CourseStore) Get(ctx context.Context, id uint) (*models.Course, error) {
	var course models.Course
	err := s.db.WithContext(ctx).
		Preload("Chapters", orderByPosition).
		First(&course, id).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &course, nil
}

// GetWithContent returns a course with ordered chapters and videos.
func (s *CourseStore) GetWithContent(ctx context.Context, id uint) (*models.Course, error) {
	var course models.Course
	err := s.db.WithContext(ctx).
		Preload("Chapters", orderByPosition).
		Preload("Chapters.Videos", orderByPosition).
		First(&course, id).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &course, nil
}

// FindByIDs returns the existing courses among ids, keyed by id, with chapters loaded.
func (s *CourseStore) FindByIDs(ctx context.Context, ids []uint) (map[uint]*models.Course, error) {
	found := make(map[uint]*models.Course, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	var courses []models.Course
	err := s.db.WithContext(ctx).
		Preload("Chapters", orderByPosition).
		Where("id IN ?", ids).
		Find(&courses).Error
	if err != nil {
		return nil, translateError(err)
	}

	for i := range courses {
		found[courses[i].ID] = &courses[i]
	}
	return found, nil
}

// Random returns up to n courses in random order.
func (s *CourseStore) Random(ctx context.Context, n int) ([]models.Course, error) {
	var courses []models.Course
	err := s.db.WithContext(ctx).
		Order("RANDOM()").
		Limit(n).
		Find(&courses).Error
	if err != nil {
		return nil, translateError(err)
	}
	return courses, nil
}

// Create inserts a course with its chapters and videos. Used for seeding and tests.
func (s *CourseStore) Create(ctx context.Context, course *models.Course) error {
	return translateError(s.db.WithContext(ctx).Create(course).Error)
}
