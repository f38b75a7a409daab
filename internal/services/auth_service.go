package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"learnhub-api/internal/database"
	"learnhub-api/internal/models"
	"learnhub-api/pkg/logging"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository persists user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// SessionClaims is the JWT payload of a session token.
type SessionClaims struct {
	UserID uint   `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Session is returned after register and login.
type Session struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// RegisterInput carries a new account's fields.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// AuthConfig holds token and throttling settings.
type AuthConfig struct {
	Secret      string
	TokenTTL    time.Duration
	MaxAttempts int
}

// AuthService registers users and issues and verifies session tokens
type AuthService struct {
	users       UserRepository
	limiter     LoginLimiter
	secret      []byte
	tokenTTL    time.Duration
	maxAttempts int
	clock       Clock
}

// NewAuthService creates a new auth service. A nil limiter disables login throttling.
func NewAuthService(users UserRepository, limiter LoginLimiter, cfg AuthConfig, clock Clock) *AuthService {
	if clock == nil {
		clock = SystemClock{}
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 7 * 24 * time.Hour
	}
	return &AuthService{
		users:       users,
		limiter:     limiter,
		secret:      []byte(cfg.Secret),
		tokenTTL:    cfg.TokenTTL,
		maxAttempts: cfg.MaxAttempts,
		clock:       clock,
	}
}

// Register creates an account and signs the user in
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	switch {
	case in.Name == "":
		return nil, invalid("name", "is required")
	case in.Email == "" || !strings.Contains(in.Email, "@"):
		return nil, invalid("email", "must be a valid e-mail address")
	case in.Password == "":
		return nil, invalid("password", "is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{Name: in.Name, Email: in.Email, PasswordHash: string(hash)}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, database.ErrUniqueViolation) {
			return nil, ErrEmailInUse
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logging.Infof("User registered - user_id: %d", user.ID)
	return s.newSession(user)
}

// Login verifies credentials. Repeated failures for one e-mail are throttled.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, invalid("email", "email and password are required")
	}

	if s.limiter != nil && s.maxAttempts > 0 {
		attempts, err := s.limiter.FailedAttempts(ctx, email)
		if err != nil {
			logging.Errorf("Failed to read login attempts: %v", err)
		} else if attempts >= int64(s.maxAttempts) {
			return nil, ErrTooManyAttempts
		}
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.registerFailure(ctx, email)
		return nil, ErrInvalidCredentials
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, email); err != nil {
			logging.Errorf("Failed to reset login attempts: %v", err)
		}
	}
	return s.newSession(user)
}

func (s *AuthService) registerFailure(ctx context.Context, email string) {
	if s.limiter == nil {
		return
	}
	if _, err := s.limiter.RegisterFailure(ctx, email); err != nil {
		logging.Errorf("Failed to record login failure: %v", err)
	}
}

func (s *AuthService) newSession(user *models.User) (*Session, error) {
	token, expiresAt, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// IssueToken signs an HS256 session token for user
func (s *AuthService) IssueToken(user *models.User) (string, time.Time, error) {
	now := s.clock.Now()
	expiresAt := now.Add(s.tokenTTL)

	claims := SessionClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, expiresAt, nil
}

// ParseToken verifies a session token and returns its claims
func (s *AuthService) ParseToken(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid || claims.UserID == 0 {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

// Authenticate resolves a bearer token to its user
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := s.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}
