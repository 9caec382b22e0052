package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "civicvoice/internal/errors"
	"civicvoice/internal/model"
)

func newUser(email, username string) *model.User {
	return &model.User{
		Email:        email,
		Username:     username,
		PasswordHash: "hash",
		FullName:     username,
		Role:         model.RoleUser,
		IsActive:     true,
	}
}

func TestMemoryStore_CreateUserDuplicates(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Users().Create(ctx, newUser("Alice@Example.com", "Alice")))

	err := store.Users().Create(ctx, newUser("alice@example.COM", "someone"))
	assert.Equal(t, apperrors.ErrDuplicateEmail, err)

	err = store.Users().Create(ctx, newUser("other@example.com", "ALICE"))
	assert.Equal(t, apperrors.ErrDuplicateUsername, err)

	found, err := store.Users().FindByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", found.Email)
	assert.Equal(t, "alice", found.Username)
}

func TestMemoryStore_ReadsAreCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	u := newUser("bob@example.com", "bob")
	require.NoError(t, store.Users().Create(ctx, u))

	found, err := store.Users().FindByID(ctx, u.ID)
	require.NoError(t, err)
	found.TotalVotes = 99

	again, err := store.Users().FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), again.TotalVotes)
}

func TestMemoryStore_TransactionRollback(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	author := newUser("carol@example.com", "carol")
	require.NoError(t, store.Users().Create(ctx, author))
	post := &model.Post{AuthorID: author.ID, Content: "hello", Category: model.CategoryGeneral, IsPublic: true}
	require.NoError(t, store.Posts().Create(ctx, post))

	boom := errors.New("boom")
	err := store.WithTransaction(ctx, func(ctx context.Context, tx Store) error {
		if err := tx.Posts().AddLike(ctx, &model.PostLike{PostID: post.ID, UserID: uuid.New()}); err != nil {
			return err
		}
		if err := tx.Users().UpdateCounters(ctx, author.ID, model.CounterDelta{Votes: 1}); err != nil {
			return err
		}
		if err := tx.Posts().AddComment(ctx, &model.Comment{PostID: post.ID, UserID: author.ID, Content: "x"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	reloaded, err := store.Posts().FindByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.LikeCount())
	assert.Equal(t, 0, reloaded.CommentCount())

	u, err := store.Users().FindByID(ctx, author.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), u.TotalVotes)

	// comment ids continue from where the rolled back insert started
	c := &model.Comment{PostID: post.ID, UserID: author.ID, Content: "first"}
	require.NoError(t, store.Posts().AddComment(ctx, c))
	assert.Equal(t, uint(1), c.ID)
}

func TestMemoryStore_LikeSetUniqueness(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	post := &model.Post{AuthorID: uuid.New(), Content: "p", Category: model.CategoryPolitics}
	require.NoError(t, store.Posts().Create(ctx, post))
	liker := uuid.New()

	require.NoError(t, store.Posts().AddLike(ctx, &model.PostLike{PostID: post.ID, UserID: liker}))
	assert.Equal(t, apperrors.ErrAlreadyLiked, store.Posts().AddLike(ctx, &model.PostLike{PostID: post.ID, UserID: liker}))

	n, err := store.Posts().CountLikes(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, store.Posts().RemoveLike(ctx, post.ID, liker))
	assert.Equal(t, apperrors.ErrNotLiked, store.Posts().RemoveLike(ctx, post.ID, liker))
	assert.Equal(t, apperrors.ErrPostNotFound, store.Posts().AddLike(ctx, &model.PostLike{PostID: uuid.New(), UserID: liker}))
}

func TestMemoryStore_ConcurrentCounters(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	u := newUser("dave@example.com", "dave")
	require.NoError(t, store.Users().Create(ctx, u))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Users().UpdateCounters(ctx, u.ID, model.CounterDelta{Posts: 1, Votes: 2})
		}()
	}
	wg.Wait()

	found, err := store.Users().FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), found.TotalPosts)
	assert.Equal(t, int64(100), found.TotalVotes)
}

func TestMemoryStore_ListPostsFilters(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	author := uuid.New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range []model.Category{model.CategoryPolitics, model.CategoryEducation, model.CategoryPolitics} {
		require.NoError(t, store.Posts().Create(ctx, &model.Post{
			AuthorID:  author,
			Content:   "post",
			Category:  c,
			IsPublic:  i != 2,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	posts, total, err := store.Posts().List(ctx, PostFilter{Category: model.CategoryPolitics, PublicOnly: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, posts, 1)

	posts, total, err = store.Posts().List(ctx, PostFilter{Offset: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, posts, 1)
	assert.Equal(t, model.CategoryEducation, posts[0].Category)
}

func TestMemoryStore_RatingUpsert(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	author := uuid.New()

	first := &model.Rating{AuthorID: &author, Category: "economy", Score: decimal.RequireFromString("2.50")}
	require.NoError(t, store.Ratings().Upsert(ctx, first))
	second := &model.Rating{AuthorID: &author, Category: "economy", Score: decimal.RequireFromString("4.00")}
	require.NoError(t, store.Ratings().Upsert(ctx, second))
	assert.Equal(t, first.ID, second.ID)

	ratings, err := store.Ratings().FindByAuthor(ctx, author)
	require.NoError(t, err)
	require.Len(t, ratings, 1)
	assert.True(t, ratings[0].Score.Equal(decimal.NewFromInt(4)))

	summary, err := store.Ratings().Summary(ctx)
	require.NoError(t, err)
	require.Len(t, summary, 1)
	assert.Equal(t, int64(1), summary[0].Count)
}

func TestMemoryStore_Reset(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Users().Create(ctx, newUser("erin@example.com", "erin")))
	require.NoError(t, store.Reset(ctx))

	users, err := store.Users().All(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}
