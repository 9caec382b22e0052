package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"civicvoice/internal/auth"
	apperrors "civicvoice/internal/errors"
	"civicvoice/internal/metrics"
	"civicvoice/internal/model"
)

// AuthResult is returned by every successful sign-in.
type AuthResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// AuthService handles authentication operations. There is no lockout:
// repeated failures always return ErrInvalidCredentials.
type AuthService interface {
	Register(ctx context.Context, reg Registration) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	AdminLogin(ctx context.Context, email, password string) (*AuthResult, error)
}

type authService struct {
	users  UserService
	tokens *auth.JWTService
	logger *zap.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(users UserService, tokens *auth.JWTService, logger *zap.Logger) AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &authService{users: users, tokens: tokens, logger: logger}
}

// Register creates a user account and signs it in.
func (s *authService) Register(ctx context.Context, reg Registration) (*AuthResult, error) {
	user, err := s.users.CreateUser(ctx, reg)
	if err != nil {
		metrics.AuthEvents.WithLabelValues("register_failure").Inc()
		return nil, err
	}
	metrics.AuthEvents.WithLabelValues("register").Inc()
	s.logger.Info("user registered", zap.String("user_id", user.ID.String()))
	return s.issue(user)
}

// Login authenticates an account and returns a session token.
func (s *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		metrics.AuthEvents.WithLabelValues("login_failure").Inc()
		return nil, err
	}
	metrics.AuthEvents.WithLabelValues("login").Inc()
	return s.issue(user)
}

// AdminLogin is Login restricted to admin accounts. Credentials are
// checked first so NotAdmin is only reported to their owner.
func (s *authService) AdminLogin(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		metrics.AuthEvents.WithLabelValues("admin_login_failure").Inc()
		return nil, err
	}
	if user.Role != model.RoleAdmin {
		metrics.AuthEvents.WithLabelValues("admin_login_failure").Inc()
		s.logger.Info("admin login by non-admin", zap.String("user_id", user.ID.String()))
		return nil, apperrors.ErrNotAdmin
	}
	metrics.AuthEvents.WithLabelValues("admin_login").Inc()
	return s.issue(user)
}

func (s *authService) authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !s.users.VerifyPassword(user, password) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperrors.ErrInvalidCredentials
	}
	if err := s.users.TouchLastActive(ctx, user.ID); err != nil {
		s.logger.Warn("touch last active", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
	return user, nil
}

func (s *authService) issue(user *model.User) (*AuthResult, error) {
	token, _, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	user.PasswordHash = ""
	return &AuthResult{Token: token, User: user}, nil
}
