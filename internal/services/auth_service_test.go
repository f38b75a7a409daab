package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(t *testing.T, limiter LoginLimiter) (*AuthService, *fixture) {
	f := newFixture(t)
	svc := NewAuthService(f.users, limiter, AuthConfig{
		Secret:      "test-secret",
		TokenTTL:    7 * 24 * time.Hour,
		MaxAttempts: 3,
	}, f.clock)
	return svc, f
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t, nil)

	session, err := svc.Register(ctx, RegisterInput{Name: "Ada", Email: "Ada@Example.com", Password: "hunter2"})
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "ada@example.com", session.User.Email)
	assert.NotEqual(t, "hunter2", session.User.PasswordHash)
	assert.True(t, session.ExpiresAt.Equal(jan1.Add(7*24*time.Hour)))

	_, err = svc.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrEmailInUse)

	_, err = svc.Register(ctx, RegisterInput{Name: "", Email: "b@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrValidation)

	login, err := svc.Login(ctx, "ada@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, login.User.ID)

	_, err = svc.Login(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", "hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_Tokens(t *testing.T) {
	ctx := context.Background()
	svc, f := newAuthService(t, nil)

	session, err := svc.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "pw"})
	require.NoError(t, err)

	claims, err := svc.ParseToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)

	user, err := svc.Authenticate(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Name)

	_, err = svc.Authenticate(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrUnauthorized)

	other := NewAuthService(f.users, nil, AuthConfig{Secret: "other-secret"}, f.clock)
	_, err = other.Authenticate(ctx, session.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)

	f.clock.Set(jan1.Add(8 * 24 * time.Hour))
	_, err = svc.Authenticate(ctx, session.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthService_LoginThrottled(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc, _ := newAuthService(t, NewRedisService(client, 15*time.Minute))
	_, err := svc.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "pw"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = svc.Login(ctx, "ada@example.com", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// even the right password is refused inside the window
	_, err = svc.Login(ctx, "ada@example.com", "pw")
	assert.ErrorIs(t, err, ErrTooManyAttempts)

	mr.FastForward(16 * time.Minute)
	_, err = svc.Login(ctx, "ada@example.com", "pw")
	require.NoError(t, err)
}
