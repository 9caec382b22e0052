package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	apperrors "civicvoice/internal/errors"
	"civicvoice/internal/metrics"
	"civicvoice/internal/model"
	"civicvoice/internal/repository"
)

// FollowResult reports both sides of a follow change: how many users the
// caller now follows and how many followers the target now has.
type FollowResult struct {
	Following int64 `json:"following"`
	Followers int64 `json:"followers"`
}

// FollowService maintains the follow graph between users.
type FollowService interface {
	Follow(ctx context.Context, followerID, followeeID uuid.UUID) (*FollowResult, error)
	Unfollow(ctx context.Context, followerID, followeeID uuid.UUID) (*FollowResult, error)
	Followers(ctx context.Context, userID uuid.UUID, page Page) ([]model.User, int64, error)
	Following(ctx context.Context, userID uuid.UUID, page Page) ([]model.User, int64, error)
	Counts(ctx context.Context, userID uuid.UUID) (model.FollowCounts, error)
}

type followService struct {
	store   repository.Store
	timeout time.Duration
	now     func() time.Time
}

// NewFollowService creates a follow service.
func NewFollowService(store repository.Store, timeout time.Duration) FollowService {
	return &followService{store: store, timeout: timeout, now: time.Now}
}

func (s *followService) Follow(ctx context.Context, followerID, followeeID uuid.UUID) (*FollowResult, error) {
	if followerID == followeeID {
		return nil, apperrors.ErrSelfFollow
	}
	return s.change(ctx, "follow", followerID, followeeID, func(ctx context.Context, tx repository.Store) error {
		return tx.Follows().Add(ctx, &model.UserFollow{FollowerID: followerID, FolloweeID: followeeID, CreatedAt: s.now()})
	})
}

func (s *followService) Unfollow(ctx context.Context, followerID, followeeID uuid.UUID) (*FollowResult, error) {
	return s.change(ctx, "unfollow", followerID, followeeID, func(ctx context.Context, tx repository.Store) error {
		return tx.Follows().Remove(ctx, followerID, followeeID)
	})
}

// change checks the target exists, applies fn and reads back both counts
// in one transaction.
func (s *followService) change(ctx context.Context, op string, followerID, followeeID uuid.UUID, fn func(ctx context.Context, tx repository.Store) error) (*FollowResult, error) {
	defer observe(op, time.Now())
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var result FollowResult
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		if _, err := tx.Users().FindByID(ctx, followeeID); err != nil {
			return err
		}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		mine, err := tx.Follows().Counts(ctx, followerID)
		if err != nil {
			return err
		}
		theirs, err := tx.Follows().Counts(ctx, followeeID)
		if err != nil {
			return err
		}
		result = FollowResult{Following: mine.Following, Followers: theirs.Followers}
		return nil
	})
	metrics.EngagementOps.WithLabelValues(op, outcome(err)).Inc()
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *followService) Followers(ctx context.Context, userID uuid.UUID, page Page) ([]model.User, int64, error) {
	return s.list(ctx, userID, page, s.store.Follows().Followers)
}

func (s *followService) Following(ctx context.Context, userID uuid.UUID, page Page) ([]model.User, int64, error) {
	return s.list(ctx, userID, page, s.store.Follows().Following)
}

type followLister func(ctx context.Context, userID uuid.UUID, offset, limit int) ([]model.User, int64, error)

func (s *followService) list(ctx context.Context, userID uuid.UUID, page Page, fetch followLister) ([]model.User, int64, error) {
	page = page.Normalize()
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.store.Users().FindByID(ctx, userID); err != nil {
		return nil, 0, err
	}
	users, total, err := fetch(ctx, userID, page.Offset(), page.Limit)
	if err != nil {
		return nil, 0, err
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, total, nil
}

func (s *followService) Counts(ctx context.Context, userID uuid.UUID) (model.FollowCounts, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	return s.store.Follows().Counts(ctx, userID)
}
