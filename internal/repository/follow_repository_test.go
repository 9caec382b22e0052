package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "civicvoice/internal/errors"
	"civicvoice/internal/model"
)

func TestFollowRepository_AddDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFollowRepository(db)

	mock.ExpectExec("INSERT INTO `user_follows`").
		WillReturnError(&mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry for key 'PRIMARY'"})

	err := repo.Add(context.Background(), &model.UserFollow{FollowerID: uuid.New(), FolloweeID: uuid.New(), CreatedAt: time.Now()})
	assert.Equal(t, apperrors.ErrAlreadyFollowing, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFollowRepository_Remove(t *testing.T) {
	tests := []struct {
		name    string
		rows    int64
		wantErr error
	}{
		{"removed", 1, nil},
		{"not following", 0, apperrors.ErrNotFollowing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewFollowRepository(db)

			mock.ExpectExec("DELETE FROM `user_follows` WHERE follower_id = \\? AND followee_id = \\?").
				WillReturnResult(sqlmock.NewResult(0, tt.rows))

			err := repo.Remove(context.Background(), uuid.New(), uuid.New())
			assert.Equal(t, tt.wantErr, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestFollowRepository_FollowersJoinsUsers(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFollowRepository(db)
	followee, follower := uuid.New(), uuid.New()

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `users` JOIN user_follows ON user_follows.follower_id = users.id WHERE user_follows.followee_id = \\?").
		WithArgs(followee).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT users.\\* FROM `users` JOIN user_follows ON user_follows.follower_id = users.id WHERE user_follows.followee_id = \\?.* ORDER BY user_follows.created_at DESC").
		WithArgs(followee).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "username"}).
			AddRow(follower.String(), "bob@example.com", "bob"))

	users, total, err := repo.Followers(context.Background(), followee, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, users, 1)
	assert.Equal(t, follower, users[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
