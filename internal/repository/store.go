package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"civicvoice/internal/model"
)

// Store groups the repositories that share a transaction boundary.
type Store interface {
	Users() UserRepository
	Posts() PostRepository
	Ratings() RatingRepository
	Follows() FollowRepository
	// WithTransaction runs fn against a transactional view of the store.
	// Returning an error from fn rolls every change back.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
	// Reset deletes every record. Used by the seeder only.
	Reset(ctx context.Context) error
}

// UserFilter narrows a user listing.
type UserFilter struct {
	Search string
	Role   model.Role
	Active *bool
	Offset int
	Limit  int
}

// PostFilter narrows a post listing. Results are newest first.
type PostFilter struct {
	Category   model.Category
	AuthorID   uuid.UUID
	PublicOnly bool
	Reported   *bool
	Offset     int
	Limit      int
}

type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a Store backed by GORM.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Users() UserRepository     { return NewUserRepository(s.db) }
func (s *gormStore) Posts() PostRepository     { return NewPostRepository(s.db) }
func (s *gormStore) Ratings() RatingRepository { return NewRatingRepository(s.db) }
func (s *gormStore) Follows() FollowRepository { return NewFollowRepository(s.db) }

// WithTransaction executes a function within a database transaction.
func (s *gormStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &gormStore{db: tx})
	})
}

func (s *gormStore) Reset(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []interface{}{
			&model.PostReport{}, &model.Comment{}, &model.PostLike{},
			&model.Post{}, &model.Rating{}, &model.UserFollow{}, &model.User{},
		} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Models lists every persisted model for migrations.
func Models() []interface{} {
	return []interface{}{
		&model.User{}, &model.Post{}, &model.PostLike{},
		&model.Comment{}, &model.PostReport{}, &model.Rating{},
		&model.UserFollow{},
	}
}

const mysqlDuplicateEntry = 1062

// isDuplicate reports whether err is a unique-key violation.
func isDuplicate(err error) (bool, string) {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
		return true, mysqlErr.Message
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true, ""
	}
	return false, ""
}

// duplicateKey returns the index named by a MySQL duplicate-entry message,
// e.g. "users.idx_users_username". The entry value itself is ignored.
func duplicateKey(msg string) string {
	const marker = "for key "
	i := strings.LastIndex(msg, marker)
	if i < 0 {
		return ""
	}
	return strings.Trim(msg[i+len(marker):], "'` ")
}

func notFound(err error, domainErr error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domainErr
	}
	return err
}

func limitOrAll(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
