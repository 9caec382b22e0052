package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"civicvoice/internal/cache"
	apperrors "civicvoice/internal/errors"
	"civicvoice/internal/model"
	"civicvoice/internal/repository"
)

// MinPasswordLength is the shortest password CreateUser accepts.
const MinPasswordLength = 6

const maxBioLength = 500

// Registration is the input of a self-service sign-up.
type Registration struct {
	Email     string
	Username  string
	Password  string
	FullName  string
	Interests []string
}

// UserService is the credential store: user records and password hashes.
// The aggregate counters are written only by the engagement ledger.
type UserService interface {
	CreateUser(ctx context.Context, reg Registration) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// VerifyPassword compares in constant time. A nil user is compared
	// against a dummy hash so unknown emails cost the same as bad passwords.
	VerifyPassword(user *model.User, plaintext string) bool
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, update model.ProfileUpdate) (*model.User, error)
	TouchLastActive(ctx context.Context, id uuid.UUID) error
	ListUsers(ctx context.Context, filter repository.UserFilter) ([]model.User, int64, error)
	SetRole(ctx context.Context, actorID, id uuid.UUID, role model.Role) (*model.User, error)
	SetActive(ctx context.Context, actorID, id uuid.UUID, active bool, reason string) (*model.User, error)
}

// UserOptions tunes a UserService.
type UserOptions struct {
	BcryptCost int
	CacheTTL   time.Duration
	Timeout    time.Duration
}

type userService struct {
	repo  repository.UserRepository
	cache *cache.Client
	opts  UserOptions
	now   func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

// NewUserService builds a UserService with repository and cache.
func NewUserService(repo repository.UserRepository, cache *cache.Client, opts UserOptions) UserService {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	return &userService{repo: repo, cache: cache, opts: opts, now: time.Now}
}

func (s *userService) CreateUser(ctx context.Context, reg Registration) (*model.User, error) {
	email := model.NormalizeIdentity(reg.Email)
	username := model.NormalizeIdentity(reg.Username)
	fullName := strings.TrimSpace(reg.FullName)
	if email == "" || !strings.Contains(email, "@") || username == "" || fullName == "" {
		return nil, apperrors.ErrValidation
	}
	if utf8.RuneCountInString(reg.Password) < MinPasswordLength {
		return nil, apperrors.ErrWeakPassword
	}
	interests, err := validInterests(reg.Interests)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.opts.Timeout)
	defer cancel()

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, apperrors.ErrDuplicateEmail
	} else if !errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if _, err := s.repo.FindByUsername(ctx, username); err == nil {
		return nil, apperrors.ErrDuplicateUsername
	} else if !errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.New(),
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		FullName:     fullName,
		Interests:    interests,
		Role:         model.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateEmail) || errors.Is(err, apperrors.ErrDuplicateUsername) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *userService) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	ctx, cancel := withTimeout(ctx, s.opts.Timeout)
	defer cancel()
	return s.repo.FindByEmail(ctx, email)
}

func (s *userService) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("civicvoice-timing-guard"), s.opts.BcryptCost)
	})
	return s.dummyHash
}

func (s *userService) VerifyPassword(user *model.User, plaintext string) bool {
	if user == nil || user.PasswordHash == "" {
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(plaintext))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(plaintext)) == nil
}

// GetUser returns the profile, served from cache when possible. The
// password hash is never populated.
func (s *userService) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	ctx, cancel := withTimeout(ctx, s.opts.Timeout)
	defer cancel()

	var cached model.User
	if s.cache.GetJSON(ctx, cache.UserKey(id.String()), &cached) {
		return &cached, nil
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	_ = s.cache.SetJSON(ctx, cache.UserKey(id.String()), user, s.opts.CacheTTL)
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, id uuid.UUID, update model.ProfileUpdate) (*model.User, error) {
	if update.FullName != nil {
		name := strings.TrimSpace(*update.FullName)
		if name == "" || utf8.RuneCountInString(name) > 255 {
			return nil, apperrors.ErrValidation
		}
		update.FullName = &name
	}
	if update.Bio != nil && utf8.RuneCountInString(*update.Bio) > maxBioLength {
		return nil, apperrors.ErrValidation
	}
	if update.Interests != nil {
		interests, err := validInterests(update.Interests)
		if err != nil {
			return nil, err
		}
		update.Interests = interests
	}

	ctx, cancel := withTimeout(ctx, s.opts.Timeout)
	defer cancel()
	if err := s.repo.UpdateProfile(ctx, id, update); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return s.fresh(ctx, id)
}

func (s *userService) TouchLastActive(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := withTimeout(ctx, s.opts.Timeout)
	defer cancel()
	return s.repo.TouchLastActive(ctx, id, s.now())
}

func (s *userService) ListUsers(ctx context.Context, filter repository.UserFilter) ([]model.User, int64, error) {
	ctx, cancel := withTimeout(ctx, s.opts.Timeout)
	defer cancel()
	return s.repo.List(ctx, filter)
}

func (s *userService) SetRole(ctx context.Context, actorID, id uuid.UUID, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, apperrors.ErrInvalidRole
	}
	if actorID == id {
		return nil, apperrors.ErrSelfChange
	}
	ctx, cancel := withTimeout(ctx, s.opts.Timeout)
	defer cancel()
	if err := s.repo.SetRole(ctx, id, role); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return s.fresh(ctx, id)
}

func (s *userService) SetActive(ctx context.Context, actorID, id uuid.UUID, active bool, reason string) (*model.User, error) {
	if actorID == id {
		return nil, apperrors.ErrSelfChange
	}
	if active {
		reason = ""
	}
	ctx, cancel := withTimeout(ctx, s.opts.Timeout)
	defer cancel()
	if err := s.repo.SetActive(ctx, id, active, strings.TrimSpace(reason)); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return s.fresh(ctx, id)
}

func (s *userService) fresh(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *userService) invalidate(ctx context.Context, ids ...uuid.UUID) {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, cache.UserKey(id.String()))
	}
	_ = s.cache.Delete(ctx, keys...)
}

func validInterests(in []string) (model.Tags, error) {
	out := model.Tags{}
	seen := map[string]bool{}
	for _, tag := range in {
		if !model.ValidInterest(tag) {
			return nil, apperrors.ErrValidation
		}
		if !seen[tag] {
			seen[tag] = true
			out = append(out, tag)
		}
	}
	return out, nil
}
