package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "civicvoice/internal/errors"
	"civicvoice/internal/model"
)

// UserRepository defines user persistence operations. Lookups by email
// and username are case-insensitive.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	List(ctx context.Context, filter UserFilter) ([]model.User, int64, error)
	All(ctx context.Context) ([]model.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, update model.ProfileUpdate) error
	SetRole(ctx context.Context, id uuid.UUID, role model.Role) error
	SetActive(ctx context.Context, id uuid.UUID, active bool, reason string) error
	TouchLastActive(ctx context.Context, id uuid.UUID, at time.Time) error
	// UpdateCounters applies delta atomically to the stored totals.
	UpdateCounters(ctx context.Context, id uuid.UUID, delta model.CounterDelta) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	user.Email = model.NormalizeIdentity(user.Email)
	user.Username = model.NormalizeIdentity(user.Username)
	err := r.db.WithContext(ctx).Create(user).Error
	if dup, msg := isDuplicate(err); dup {
		if strings.HasSuffix(duplicateKey(msg), "idx_users_username") {
			return apperrors.ErrDuplicateUsername
		}
		return apperrors.ErrDuplicateEmail
	}
	return err
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err, apperrors.ErrUserNotFound)
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", model.NormalizeIdentity(email)).First(&user).Error; err != nil {
		return nil, notFound(err, apperrors.ErrUserNotFound)
	}
	return &user, nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("username = ?", model.NormalizeIdentity(username)).First(&user).Error; err != nil {
		return nil, notFound(err, apperrors.ErrUserNotFound)
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]model.User, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.User{})
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		q = q.Where("LOWER(full_name) LIKE ? OR username LIKE ? OR email LIKE ?", like, like, like)
	}
	if filter.Role != "" {
		q = q.Where("role = ?", filter.Role)
	}
	if filter.Active != nil {
		q = q.Where("is_active = ?", *filter.Active)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []model.User
	if err := q.Order("created_at DESC").Offset(filter.Offset).Limit(limitOrAll(filter.Limit)).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *userRepository) All(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id uuid.UUID, update model.ProfileUpdate) error {
	fields := map[string]interface{}{}
	if update.FullName != nil {
		fields["full_name"] = *update.FullName
	}
	if update.Bio != nil {
		fields["bio"] = *update.Bio
	}
	if update.Interests != nil {
		fields["interests"] = update.Interests
	}
	if len(fields) == 0 {
		_, err := r.FindByID(ctx, id)
		return err
	}
	return r.updates(ctx, id, fields)
}

func (r *userRepository) SetRole(ctx context.Context, id uuid.UUID, role model.Role) error {
	return r.updates(ctx, id, map[string]interface{}{"role": role})
}

func (r *userRepository) SetActive(ctx context.Context, id uuid.UUID, active bool, reason string) error {
	return r.updates(ctx, id, map[string]interface{}{
		"is_active":         active,
		"suspension_reason": reason,
	})
}

func (r *userRepository) TouchLastActive(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		UpdateColumn("last_active_at", at).Error
}

func (r *userRepository) UpdateCounters(ctx context.Context, id uuid.UUID, delta model.CounterDelta) error {
	if delta.IsZero() {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"total_posts": gorm.Expr("total_posts + ?", delta.Posts),
			"total_votes": gorm.Expr("total_votes + ?", delta.Votes),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) updates(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// MySQL reports zero affected rows when values are unchanged.
		_, err := r.FindByID(ctx, id)
		return err
	}
	return nil
}
