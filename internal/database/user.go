package database

import (
	"context"
	"strings"

	"learnhub-api/internal/models"

	"gorm.io/gorm"
)

// UserStore persists user accounts.
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// Create inserts a user. A taken email yields a *UniqueViolationError.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	user.Email = normalizeEmail(user.Email)
	return translateError(s.db.WithContext(ctx).Create(user).Error)
}

// GetByID returns a user by primary key.
func (s *UserStore) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// GetByEmail returns a user by e-mail, compared case-insensitively.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
