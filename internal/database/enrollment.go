package database

import (
	"context"

	"learnhub-api/internal/models"

	"gorm.io/gorm"
)

// EnrollmentStore persists (user, course) enrollments.
type EnrollmentStore struct {
	db *gorm.DB
}

func NewEnrollmentStore(db *gorm.DB) *EnrollmentStore {
	return &EnrollmentStore{db: db}
}

// Create inserts a new enrollment. A duplicate (user, course) pair yields a *UniqueViolationError.
func (s *EnrollmentStore) Create(ctx context.Context, enrollment *models.Enrollment) error {
	return translateError(s.db.WithContext(ctx).Create(enrollment).Error)
}

// Save writes every column of an existing enrollment.
func (s *EnrollmentStore) Save(ctx context.Context, enrollment *models.Enrollment) error {
	return translateError(s.db.WithContext(ctx).Save(enrollment).Error)
}

// Find returns the user's enrollment in a course.
func (s *EnrollmentStore) Find(ctx context.Context, userID, courseID uint) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&enrollment).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &enrollment, nil
}

// Exists reports whether the user is enrolled in the course.
func (s *EnrollmentStore) Exists(ctx context.Context, userID, courseID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&count).Error
	if err != nil {
		return false, translateError(err)
	}
	return count > 0, nil
}

// Delete removes one enrollment, reporting whether a row existed.
func (s *EnrollmentStore) Delete(ctx context.Context, userID, courseID uint) (bool, error) {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Delete(&models.Enrollment{})
	if result.Error != nil {
		return false, translateError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DeleteAllForUser removes every enrollment of a user and returns how many were removed.
func (s *EnrollmentStore) DeleteAllForUser(ctx context.Context, userID uint) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.Enrollment{})
	if result.Error != nil {
		return 0, translateError(result.Error)
	}
	return result.RowsAffected, nil
}

// ListByUser returns the user's enrollments, newest first.
func (s *EnrollmentStore) ListByUser(ctx context.Context, userID uint) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("enrolled_at DESC").
		Order("id DESC").
		Find(&enrollments).Error
	if err != nil {
		return nil, translateError(err)
	}
	return enrollments, nil
}
