package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"civicvoice/internal/auth"
	"civicvoice/internal/model"
	"civicvoice/internal/repository"
)

type testEnv struct {
	store     *repository.MemoryStore
	users     UserService
	auth      AuthService
	ledger    LedgerService
	analytics AnalyticsService
	tokens    *auth.JWTService
}

func newTestEnv(t *testing.T, allowSelfLike bool) *testEnv {
	t.Helper()
	store := repository.NewMemoryStore()
	tokens := auth.NewJWTService("test-secret", 0, 0)
	users := NewUserService(store.Users(), nil, UserOptions{BcryptCost: bcrypt.MinCost})
	return &testEnv{
		store:     store,
		users:     users,
		auth:      NewAuthService(users, tokens, nil),
		ledger:    NewLedgerService(store, nil, LedgerOptions{AllowSelfLike: allowSelfLike}, nil),
		analytics: NewAnalyticsService(store, 0),
		tokens:    tokens,
	}
}

func (e *testEnv) register(t *testing.T, email, username, password string, role model.Role) *model.User {
	t.Helper()
	ctx := context.Background()
	user, err := e.users.CreateUser(ctx, Registration{
		Email:    email,
		Username: username,
		Password: password,
		FullName: username,
	})
	require.NoError(t, err)
	if role != model.RoleUser {
		require.NoError(t, e.store.Users().SetRole(ctx, user.ID, role))
		user.Role = role
	}
	return user
}

func (e *testEnv) reloadUser(t *testing.T, user *model.User) *model.User {
	t.Helper()
	u, err := e.store.Users().FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	return u
}

// assertCountersMatchLedger recomputes every user's totals from posts.
func (e *testEnv) assertCountersMatchLedger(t *testing.T) {
	t.Helper()
	drift, err := e.analytics.CounterAudit(context.Background())
	require.NoError(t, err)
	require.Empty(t, drift)
}
