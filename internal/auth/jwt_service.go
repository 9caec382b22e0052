package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"civicvoice/internal/model"
)

const (
	// DefaultTokenTTL applies to user and moderator sessions.
	DefaultTokenTTL = 24 * time.Hour
	// DefaultAdminTokenTTL applies to admin sessions.
	DefaultAdminTokenTTL = 12 * time.Hour
)

var (
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenMalformed    = errors.New("token malformed")
	ErrSignatureMismatch = errors.New("token signature mismatch")
)

// Claims represents JWT claims. Role is a snapshot taken at issuance.
type Claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// JWTService issues and verifies HS256 session tokens. Verification is
// pure and never consults the store.
type JWTService struct {
	secret   []byte
	ttl      time.Duration
	adminTTL time.Duration
	parser   *jwt.Parser
	now      func() time.Time
}

// NewJWTService creates a new JWT service with the given secret and lifetimes.
func NewJWTService(secret string, ttl, adminTTL time.Duration) *JWTService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if adminTTL <= 0 {
		adminTTL = DefaultAdminTokenTTL
	}
	return &JWTService{
		secret:   []byte(secret),
		ttl:      ttl,
		adminTTL: adminTTL,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
		now: time.Now,
	}
}

// TTLFor returns the session lifetime for role.
func (s *JWTService) TTLFor(role model.Role) time.Duration {
	if role == model.RoleAdmin {
		return s.adminTTL
	}
	return s.ttl
}

// Issue signs a token for user.
func (s *JWTService) Issue(user *model.User) (string, *Claims, error) {
	now := s.now()
	claims := &Claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TTLFor(user.Role))),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Verify validates a JWT token and returns the claims. The error is one
// of ErrTokenExpired, ErrTokenMalformed or ErrSignatureMismatch.
func (s *JWTService) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return nil, ErrSignatureMismatch
	default:
		return nil, ErrTokenMalformed
	}

	if claims.Subject == "" || claims.ExpiresAt == nil || !claims.Role.Valid() {
		return nil, ErrTokenMalformed
	}
	if _, err := claims.UserID(); err != nil {
		return nil, ErrTokenMalformed
	}
	if !claims.VerifyExpiresAt(s.now(), true) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}
