package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "civicvoice/internal/errors"
	"civicvoice/internal/model"
)

func TestAuthService_Register(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	res, err := env.auth.Register(ctx, Registration{
		Email: "alice@example.com", Username: "alice", Password: "alice123", FullName: "Alice",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, model.RoleUser, res.User.Role)
	assert.Empty(t, res.User.PasswordHash)

	claims, err := env.tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID.String(), claims.Subject)

	_, err = env.auth.Register(ctx, Registration{
		Email: "ALICE@example.com", Username: "alice2", Password: "alice123", FullName: "Alice",
	})
	assert.Equal(t, apperrors.ErrDuplicateEmail, err)

	_, err = env.auth.Register(ctx, Registration{
		Email: "other@example.com", Username: "AlIcE", Password: "alice123", FullName: "Alice",
	})
	assert.Equal(t, apperrors.ErrDuplicateUsername, err)
}

func TestAuthService_Login(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	alice := env.register(t, "alice@example.com", "alice", "alice123", model.RoleUser)
	bob := env.register(t, "bob@example.com", "bob", "bob12345", model.RoleUser)
	require.NoError(t, env.store.Users().SetActive(ctx, bob.ID, false, "spam"))

	tests := []struct {
		name          string
		email         string
		password      string
		expectedError error
	}{
		{"valid credentials", "alice@example.com", "alice123", nil},
		{"case-insensitive email", "Alice@Example.COM", "alice123", nil},
		{"wrong password", "alice@example.com", "wrong", apperrors.ErrInvalidCredentials},
		{"unknown email", "nobody@example.com", "alice123", apperrors.ErrInvalidCredentials},
		{"deactivated account", "bob@example.com", "bob12345", apperrors.ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := env.auth.Login(ctx, tt.email, tt.password)
			assert.Equal(t, tt.expectedError, err)
			if tt.expectedError == nil {
				assert.Equal(t, alice.ID, res.User.ID)
			}
		})
	}

	assert.NotNil(t, env.reloadUser(t, alice).LastActiveAt)
}

func TestAuthService_AdminLogin(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	env.register(t, "admin@civicvoice.com", "admin", "admin123", model.RoleAdmin)
	env.register(t, "moderator@civicvoice.com", "moderator", "password123", model.RoleModerator)

	res, err := env.auth.AdminLogin(ctx, "admin@civicvoice.com", "admin123")
	require.NoError(t, err)
	claims, err := env.tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, claims.Role)

	_, err = env.auth.AdminLogin(ctx, "moderator@civicvoice.com", "password123")
	assert.Equal(t, apperrors.ErrNotAdmin, err)

	_, err = env.auth.AdminLogin(ctx, "moderator@civicvoice.com", "wrong")
	assert.Equal(t, apperrors.ErrInvalidCredentials, err)
}

func TestAuthService_NoLockoutAfterFailures(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	env.register(t, "admin@civicvoice.com", "admin", "admin123", model.RoleAdmin)

	for i := 0; i < 3; i++ {
		_, err := env.auth.AdminLogin(ctx, "admin@civicvoice.com", "not-the-password")
		assert.Equal(t, apperrors.ErrInvalidCredentials, err)
	}

	res, err := env.auth.AdminLogin(ctx, "admin@civicvoice.com", "admin123")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
}
