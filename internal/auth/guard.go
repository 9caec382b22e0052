package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "civicvoice/internal/errors"
	"civicvoice/internal/metrics"
	"civicvoice/internal/model"
)

const (
	// ContextKeyClaims holds the verified *Claims on the echo context.
	ContextKeyClaims = "claims"
	// ContextKeyUser holds the authorized *model.User on the echo context.
	ContextKeyUser = "currentUser"
)

// UserLookup is the slice of the credential store the guard needs.
type UserLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// Guard authenticates bearer tokens and authorizes operations.
type Guard struct {
	tokens  *JWTService
	users   UserLookup
	timeout time.Duration
	logger  *zap.Logger
}

// NewGuard creates a guard. timeout bounds the live user lookup.
func NewGuard(tokens *JWTService, users UserLookup, timeout time.Duration, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{tokens: tokens, users: users, timeout: timeout, logger: logger}
}

// Authenticate extracts and verifies the bearer token from an
// Authorization header value.
func (g *Guard) Authenticate(header string) (*Claims, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, apperrors.ErrNoToken
	}
	token := header
	if scheme, rest, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		token = strings.TrimSpace(rest)
	}
	if token == "" {
		return nil, apperrors.ErrNoToken
	}
	claims, err := g.tokens.Verify(token)
	if err != nil {
		g.logger.Debug("token rejected", zap.Error(err))
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}

// Authorize checks that the caller may perform op. The role comes from
// the token; the active flag is read live so deactivation is immediate.
// Every denial is reported as ErrForbidden.
func (g *Guard) Authorize(ctx context.Context, claims *Claims, op Operation) (*model.User, error) {
	if claims == nil {
		return nil, g.deny(op, "", "missing_claims")
	}
	if !Allowed(claims.Role, op) {
		return nil, g.deny(op, claims.Subject, "insufficient_role")
	}
	id, err := claims.UserID()
	if err != nil {
		return nil, g.deny(op, claims.Subject, "unknown_user")
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	user, err := g.users.FindByID(ctx, id)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, g.deny(op, claims.Subject, "unknown_user")
	}
	if err != nil {
		return nil, fmt.Errorf("authorize lookup: %w", err)
	}
	if !user.IsActive {
		return nil, g.deny(op, claims.Subject, "deactivated")
	}
	return user, nil
}

func (g *Guard) deny(op Operation, subject, reason string) error {
	metrics.AuthorizationDenials.WithLabelValues(reason).Inc()
	g.logger.Info("authorization denied",
		zap.String("operation", string(op)),
		zap.String("subject", subject),
		zap.String("reason", reason),
	)
	return apperrors.ErrForbidden
}

// ParseToken adapts Authenticate to echo-jwt's ParseTokenFunc. The
// extractor has already stripped the scheme.
func (g *Guard) ParseToken(c echo.Context, auth string) (interface{}, error) {
	claims, err := g.Authenticate("Bearer " + auth)
	if err != nil {
		return nil, err
	}
	c.Set(ContextKeyClaims, claims)
	return claims, nil
}

// Require returns middleware that authorizes op for the authenticated
// caller and stores the live user on the context.
func (g *Guard) Require(op Operation) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, _ := c.Get(ContextKeyClaims).(*Claims)
			if claims == nil {
				return apperrors.ErrNoToken
			}
			user, err := g.Authorize(c.Request().Context(), claims, op)
			if err != nil {
				return err
			}
			c.Set(ContextKeyUser, user)
			return next(c)
		}
	}
}

// CurrentUser returns the user stored by Require.
func CurrentUser(c echo.Context) (*model.User, error) {
	user, ok := c.Get(ContextKeyUser).(*model.User)
	if !ok || user == nil {
		return nil, apperrors.ErrNoToken
	}
	return user, nil
}
