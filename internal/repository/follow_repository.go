package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "civicvoice/internal/errors"
	"civicvoice/internal/model"
)

// FollowRepository defines follow-graph persistence operations.
type FollowRepository interface {
	Add(ctx context.Context, follow *model.UserFollow) error
	Remove(ctx context.Context, followerID, followeeID uuid.UUID) error
	// Followers returns the users following userID, most recent first.
	Followers(ctx context.Context, userID uuid.UUID, offset, limit int) ([]model.User, int64, error)
	// Following returns the users userID follows, most recent first.
	Following(ctx context.Context, userID uuid.UUID, offset, limit int) ([]model.User, int64, error)
	Counts(ctx context.Context, userID uuid.UUID) (model.FollowCounts, error)
}

type followRepository struct {
	db *gorm.DB
}

// NewFollowRepository creates a new follow repository.
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) Add(ctx context.Context, follow *model.UserFollow) error {
	err := r.db.WithContext(ctx).Create(follow).Error
	if dup, _ := isDuplicate(err); dup {
		return apperrors.ErrAlreadyFollowing
	}
	return err
}

func (r *followRepository) Remove(ctx context.Context, followerID, followeeID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&model.UserFollow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFollowing
	}
	return nil
}

func (r *followRepository) Followers(ctx context.Context, userID uuid.UUID, offset, limit int) ([]model.User, int64, error) {
	return r.list(ctx, "user_follows.follower_id", "user_follows.followee_id", userID, offset, limit)
}

func (r *followRepository) Following(ctx context.Context, userID uuid.UUID, offset, limit int) ([]model.User, int64, error) {
	return r.list(ctx, "user_follows.followee_id", "user_follows.follower_id", userID, offset, limit)
}

// list joins users on the other side of the edges where side = userID.
func (r *followRepository) list(ctx context.Context, other, side string, userID uuid.UUID, offset, limit int) ([]model.User, int64, error) {
	query := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&model.User{}).
			Joins("JOIN user_follows ON "+other+" = users.id").
			Where(side+" = ?", userID)
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []model.User
	err := query().
		Select("users.*").
		Order("user_follows.created_at DESC").
		Offset(offset).
		Limit(limitOrAll(limit)).
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *followRepository) Counts(ctx context.Context, userID uuid.UUID) (model.FollowCounts, error) {
	var counts model.FollowCounts
	if err := r.db.WithContext(ctx).Model(&model.UserFollow{}).
		Where("followee_id = ?", userID).Count(&counts.Followers).Error; err != nil {
		return counts, err
	}
	if err := r.db.WithContext(ctx).Model(&model.UserFollow{}).
		Where("follower_id = ?", userID).Count(&counts.Following).Error; err != nil {
		return counts, err
	}
	return counts, nil
}
