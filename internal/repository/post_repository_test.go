package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	apperrors "civicvoice/internal/errors"
	"civicvoice/internal/model"
)

func TestPostRepository_AddLikeDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectExec("INSERT INTO `post_likes`").
		WillReturnError(&mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry for key 'PRIMARY'"})

	err := repo.AddLike(context.Background(), &model.PostLike{PostID: uuid.New(), UserID: uuid.New(), CreatedAt: time.Now()})
	assert.Equal(t, apperrors.ErrAlreadyLiked, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_RemoveLike(t *testing.T) {
	tests := []struct {
		name    string
		rows    int64
		wantErr error
	}{
		{"removed", 1, nil},
		{"not liked", 0, apperrors.ErrNotLiked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewPostRepository(db)

			mock.ExpectExec("DELETE FROM `post_likes` WHERE post_id = \\? AND user_id = \\?").
				WillReturnResult(sqlmock.NewResult(0, tt.rows))

			err := repo.RemoveLike(context.Background(), uuid.New(), uuid.New())
			assert.Equal(t, tt.wantErr, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostRepository_AddReportDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectExec("INSERT INTO `post_reports`").
		WillReturnError(&mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry for key 'PRIMARY'"})

	err := repo.AddReport(context.Background(), &model.PostReport{
		PostID: uuid.New(), UserID: uuid.New(), Reason: model.ReasonSpam, CreatedAt: time.Now(),
	})
	assert.Equal(t, apperrors.ErrAlreadyReported, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_FindForUpdateNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `posts` WHERE id = \\? .*FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindForUpdate(context.Background(), uuid.New())
	assert.Equal(t, apperrors.ErrPostNotFound, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_UpdateContent(t *testing.T) {
	t.Run("updated", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostRepository(db)

		mock.ExpectExec("UPDATE `posts` SET").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateContent(context.Background(), uuid.New(), "edited", model.CategoryEconomy)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing post", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostRepository(db)

		mock.ExpectExec("UPDATE `posts` SET").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT \\* FROM `posts` WHERE id = \\? .*FOR UPDATE").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		err := repo.UpdateContent(context.Background(), uuid.New(), "edited", model.CategoryEconomy)
		assert.Equal(t, apperrors.ErrPostNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
