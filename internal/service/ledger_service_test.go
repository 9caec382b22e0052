package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "civicvoice/internal/errors"
	"civicvoice/internal/model"
)

func TestLedgerService_CreatePost(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	alice := env.register(t, "alice@example.com", "alice", "alice123", model.RoleUser)

	post, err := env.ledger.CreatePost(ctx, alice.ID, "  Hello  ", "")
	require.NoError(t, err)
	assert.Equal(t, "Hello", post.Content)
	assert.Equal(t, model.CategoryGeneral, post.Category)
	assert.True(t, post.IsPublic)
	assert.Equal(t, int64(1), env.reloadUser(t, alice).TotalPosts)

	_, err = env.ledger.CreatePost(ctx, alice.ID, "   ", model.CategoryPolitics)
	assert.Equal(t, apperrors.ErrInvalidContent, err)
	_, err = env.ledger.CreatePost(ctx, alice.ID, strings.Repeat("a", 2001), model.CategoryPolitics)
	assert.Equal(t, apperrors.ErrInvalidContent, err)
	_, err = env.ledger.CreatePost(ctx, alice.ID, "x", model.Category("Cooking"))
	assert.Equal(t, apperrors.ErrInvalidCategory, err)

	_, err = env.ledger.CreatePost(ctx, uuid.New(), "orphan", model.CategoryGeneral)
	assert.Equal(t, apperrors.ErrUserNotFound, err)
	posts, total, err := env.ledger.ListPosts(ctx, PostQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, posts, 1)
	env.assertCountersMatchLedger(t)
}

func TestLedgerService_LikeTwice(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	alice := env.register(t, "alice@example.com", "alice", "alice123", model.RoleUser)
	bob := env.register(t, "bob@example.com", "bob", "bob12345", model.RoleUser)
	post, err := env.ledger.CreatePost(ctx, alice.ID, "Hello", model.CategoryGeneral)
	require.NoError(t, err)

	count, err := env.ledger.Like(ctx, post.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = env.ledger.Like(ctx, post.ID, bob.ID)
	assert.Equal(t, apperrors.ErrAlreadyLiked, err)
	assert.Equal(t, 0, count)

	summary, err := env.ledger.EngagementSummary(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.LikeCount)
	assert.Equal(t, int64(1), env.reloadUser(t, alice).TotalVotes)
	env.assertCountersMatchLedger(t)
}

func TestLedgerService_UnlikeWithoutLike(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	alice := env.register(t, "alice@example.com", "alice", "alice123", model.RoleUser)
	bob := env.register(t, "bob@example.com", "bob", "bob12345", model.RoleUser)
	post, err := env.ledger.CreatePost(ctx, alice.ID, "Hello", model.CategoryGeneral)
	require.NoError(t, err)

	_, err = env.ledger.Unlike(ctx, post.ID, bob.ID)
	assert.Equal(t, apperrors.ErrNotLiked, err)
	assert.Equal(t, int64(0), env.reloadUser(t, alice).TotalVotes)

	_, err = env.ledger.Like(ctx, post.ID, bob.ID)
	require.NoError(t, err)
	count, err := env.ledger.Unlike(ctx, post.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, int64(0), env.reloadUser(t, alice).TotalVotes)

	_, err = env.ledger.Like(ctx, uuid.New(), bob.ID)
	assert.Equal(t, apperrors.ErrPostNotFound, err)
	_, err = env.ledger.Unlike(ctx, uuid.New(), bob.ID)
	assert.Equal(t, apperrors.ErrPostNotFound, err)
	env.assertCountersMatchLedger(t)
}

func TestLedgerService_ConcurrentDuplicateLikes(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	alice := env.register(t, "alice@example.com", "alice", "alice123", model.RoleUser)
	bob := env.register(t, "bob@example.com", "bob", "bob12345", model.RoleUser)
	post, err := env.ledger.CreatePost(ctx, alice.ID, "Hello", model.CategoryGeneral)
	require.NoError(t, err)

	var successes, duplicates int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.ledger.Like(ctx, post.ID, bob.ID)
			switch err {
			case nil:
				atomic.AddInt32(&successes, 1)
			case apperrors.ErrAlreadyLiked:
				atomic.AddInt32(&duplicates, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes)
	assert.Equal(t, int32(31), duplicates)
	reloaded, err := env.ledger.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.LikeCount())
	assert.Equal(t, int64(1), env.reloadUser(t, alice).TotalVotes)
	env.assertCountersMatchLedger(t)
}

func TestLedgerService_ConcurrentLikeUnlikeKeepsCountersConsistent(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	alice := env.register(t, "alice@example.com", "alice", "alice123", model.RoleUser)
	post, err := env.ledger.CreatePost(ctx, alice.ID, "Hello", model.CategoryGeneral)
	require.NoError(t, err)

	likers := make([]*model.User, 10)
	for i := range likers {
		likers[i] = env.register(t, fmt.Sprintf("u%d@example.com", i), fmt.Sprintf("u%d", i), "password1", model.RoleUser)
	}

	var wg sync.WaitGroup
	for _, u := range likers {
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func(id uuid.UUID, j int) {
				defer wg.Done()
				if j%2 == 0 {
					_, _ = env.ledger.Like(ctx, post.ID, id)
				} else {
					_, _ = env.ledger.Unlike(ctx, post.ID, id)
				}
			}(u.ID, j)
		}
	}
	wg.Wait()

	reloaded, err := env.ledger.GetPost(ctx, post.ID)
	require.NoError(t, err)
	seen := map[uuid.UUID]bool{}
	for _, l := range reloaded.Likes {
		assert.False(t, seen[l.UserID], "user liked twice")
		seen[l.UserID] = true
	}
	assert.Equal(t, int64(reloaded.LikeCount()), env.reloadUser(t, alice).TotalVotes)
	env.assertCountersMatchLedger(t)
}

func TestLedgerService_SelfLikePolicy(t *testing.T) {
	ctx := context.Background()

	permitted := newTestEnv(t, true)
	alice := permitted.register(t, "alice@example.com", "alice", "alice123", model.RoleUser)
	post, err := permitted.ledger.CreatePost(ctx, alice.ID, "mine", model.CategoryGeneral)
	require.NoError(t, err)
	_, err = permitted.ledger.Like(ctx, post.ID, alice.ID)
	assert.NoError(t, err)

	denied := newTestEnv(t, false)
	carol := denied.register(t, "carol@example.com", "carol", "carol123", model.RoleUser)
	post, err = denied.ledger.CreatePost(ctx, carol.ID, "mine", model.CategoryGeneral)
	require.NoError(t, err)
	_, err = denied.ledger.Like(ctx, post.ID, carol.ID)
	assert.Equal(t, apperrors.ErrSelfLike, err)
	assert.Equal(t, int64(0), denied.reloadUser(t, carol).TotalVotes)
}

func TestLedgerService_Comments(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	alice := env.register(t, "alice@example.com", "alice", "alice123", model.RoleUser)
	bob := env.register(t, "bob@example.com", "bob", "bob12345", model.RoleUser)
	post, err := env.ledger.CreatePost(ctx, alice.ID, "Hello", model.CategoryGeneral)
	require.NoError(t, err)

	_, _, err = env.ledger.AddComment(ctx, post.ID, bob.ID, "   ")
	assert.Equal(t, apperrors.ErrEmptyText, err)
	_, _, err = env.ledger.AddComment(ctx, post.ID, bob.ID, strings.Repeat("c", 501))
	assert.Equal(t, apperrors.ErrEmptyText, err)
	_, _, err = env.ledger.AddComment(ctx, uuid.New(), bob.ID, "hi")
	assert.Equal(t, apperrors.ErrPostNotFound, err)

	for i, text := range []string{"first", "second", "third"} {
		comment, count, err := env.ledger.AddComment(ctx, post.ID, bob.ID, text)
		require.NoError(t, err)
		assert.Equal(t, text, comment.Content)
		assert.Equal(t, i+1, count)
	}

	reloaded, err := env.ledger.GetPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Comments, 3)
	assert.Equal(t, "first", reloaded.Comments[0].Content)
	assert.Equal(t, "third", reloaded.Comments[2].Content)

	newest, total, err := env.ledger.ListComments(ctx, post.ID, Page{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, newest, 2)
	assert.Equal(t, "third", newest[0].Content)

	// comments never touch vote totals
	assert.Equal(t, int64(0), env.reloadUser(t, alice).TotalVotes)
}

func TestLedgerService_DeletePost(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	alice := env.register(t, "alice@example.com", "alice", "alice123", model.RoleUser)
	bob := env.register(t, "bob@example.com", "bob", "bob12345", model.RoleUser)
	mod := env.register(t, "mod@example.com", "mod", "mod12345", model.RoleModerator)

	first, err := env.ledger.CreatePost(ctx, alice.ID, "one", model.CategoryGeneral)
	require.NoError(t, err)
	second, err := env.ledger.CreatePost(ctx, alice.ID, "two", model.CategoryGeneral)
	require.NoError(t, err)
	_, err = env.ledger.Like(ctx, first.ID, bob.ID)
	require.NoError(t, err)
	_, err = env.ledger.Like(ctx, second.ID, bob.ID)
	require.NoError(t, err)

	assert.Equal(t, apperrors.ErrForbidden, env.ledger.DeletePost(ctx, first.ID, bob))
	require.NoError(t, env.ledger.DeletePost(ctx, first.ID, alice))
	require.NoError(t, env.ledger.DeletePost(ctx, second.ID, mod))
	assert.Equal(t, apperrors.ErrPostNotFound, env.ledger.DeletePost(ctx, second.ID, mod))

	author := env.reloadUser(t, alice)
	assert.Equal(t, int64(0), author.TotalPosts)
	assert.Equal(t, int64(0), author.TotalVotes)
	env.assertCountersMatchLedger(t)
}

func TestLedgerService_ReportAndModerate(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	alice := env.register(t, "alice@example.com", "alice", "alice123", model.RoleUser)
	bob := env.register(t, "bob@example.com", "bob", "bob12345", model.RoleUser)
	post, err := env.ledger.CreatePost(ctx, alice.ID, "spammy", model.CategoryGeneral)
	require.NoError(t, err)

	assert.Equal(t, apperrors.ErrInvalidReason, env.ledger.ReportPost(ctx, post.ID, bob.ID, "boring", ""))
	require.NoError(t, env.ledger.ReportPost(ctx, post.ID, bob.ID, model.ReasonSpam, "ads"))
	assert.Equal(t, apperrors.ErrAlreadyReported, env.ledger.ReportPost(ctx, post.ID, bob.ID, model.ReasonSpam, ""))

	reported, total, err := env.ledger.ListReported(ctx, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, post.ID, reported[0].ID)

	moderated, err := env.ledger.Moderate(ctx, post.ID, model.ActionReject, "spam")
	require.NoError(t, err)
	assert.False(t, moderated.IsPublic)
	assert.True(t, moderated.IsModerated)

	_, total, err = env.ledger.ListPosts(ctx, PostQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)

	moderated, err = env.ledger.Moderate(ctx, post.ID, model.ActionApprove, "")
	require.NoError(t, err)
	assert.False(t, moderated.IsReported)

	_, err = env.ledger.Moderate(ctx, post.ID, "delete", "")
	assert.Equal(t, apperrors.ErrValidation, err)
}

func TestLedgerService_UpdatePost(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	alice := env.register(t, "alice@example.com", "alice", "alice123", model.RoleUser)
	bob := env.register(t, "bob@example.com", "bob", "bob12345", model.RoleUser)
	mod := env.register(t, "mod@example.com", "mod", "mod12345", model.RoleModerator)

	post, err := env.ledger.CreatePost(ctx, alice.ID, "draft", model.CategoryGeneral)
	require.NoError(t, err)
	_, err = env.ledger.Like(ctx, post.ID, bob.ID)
	require.NoError(t, err)
	_, _, err = env.ledger.AddComment(ctx, post.ID, bob.ID, "nice")
	require.NoError(t, err)

	content, politics := "  final  ", model.CategoryPolitics
	updated, err := env.ledger.UpdatePost(ctx, post.ID, alice, model.PostUpdate{Content: &content, Category: &politics})
	require.NoError(t, err)
	assert.Equal(t, "final", updated.Content)
	assert.Equal(t, model.CategoryPolitics, updated.Category)
	assert.Equal(t, 1, updated.LikeCount())
	assert.Equal(t, 1, updated.CommentCount())

	other := "hijacked"
	_, err = env.ledger.UpdatePost(ctx, post.ID, bob, model.PostUpdate{Content: &other})
	assert.Equal(t, apperrors.ErrForbidden, err)

	economy := model.CategoryEconomy
	updated, err = env.ledger.UpdatePost(ctx, post.ID, mod, model.PostUpdate{Category: &economy})
	require.NoError(t, err)
	assert.Equal(t, "final", updated.Content)
	assert.Equal(t, model.CategoryEconomy, updated.Category)

	blank, cooking := "   ", model.Category("Cooking")
	_, err = env.ledger.UpdatePost(ctx, post.ID, alice, model.PostUpdate{Content: &blank})
	assert.Equal(t, apperrors.ErrInvalidContent, err)
	_, err = env.ledger.UpdatePost(ctx, post.ID, alice, model.PostUpdate{Category: &cooking})
	assert.Equal(t, apperrors.ErrInvalidCategory, err)
	_, err = env.ledger.UpdatePost(ctx, uuid.New(), alice, model.PostUpdate{Content: &content})
	assert.Equal(t, apperrors.ErrPostNotFound, err)

	author := env.reloadUser(t, alice)
	assert.Equal(t, int64(1), author.TotalPosts)
	assert.Equal(t, int64(1), author.TotalVotes)
	env.assertCountersMatchLedger(t)
}

func TestLedgerService_QueuedWriterHonorsDeadline(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	alice := env.register(t, "alice@example.com", "alice", "alice123", model.RoleUser)
	bob := env.register(t, "bob@example.com", "bob", "bob12345", model.RoleUser)
	post, err := env.ledger.CreatePost(ctx, alice.ID, "Hello", model.CategoryGeneral)
	require.NoError(t, err)

	ledger := env.ledger.(*ledgerService)
	unlock, err := ledger.locks.acquire(ctx, post.ID)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = env.ledger.Like(waitCtx, post.ID, bob.ID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, ledger.locks.size())

	unlock()
	count, err := env.ledger.Like(ctx, post.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 0, ledger.locks.size())
	env.assertCountersMatchLedger(t)
}

func TestLedgerService_LocksReleasedAfterWrites(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	alice := env.register(t, "alice@example.com", "alice", "alice123", model.RoleUser)
	post, err := env.ledger.CreatePost(ctx, alice.ID, "Hello", model.CategoryGeneral)
	require.NoError(t, err)
	ledger := env.ledger.(*ledgerService)

	for i := 0; i < 20; i++ {
		_, err := env.ledger.Like(ctx, uuid.New(), alice.ID)
		assert.Equal(t, apperrors.ErrPostNotFound, err)
		err = env.ledger.ReportPost(ctx, uuid.New(), alice.ID, model.ReasonSpam, "")
		assert.Equal(t, apperrors.ErrPostNotFound, err)
	}
	assert.Equal(t, 0, ledger.locks.size())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		user := env.register(t, fmt.Sprintf("u%d@example.com", i), fmt.Sprintf("user%d", i), "secret123", model.RoleUser)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = env.ledger.Like(ctx, post.ID, user.ID)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, ledger.locks.size())

	require.NoError(t, env.ledger.DeletePost(ctx, post.ID, alice))
	assert.Equal(t, 0, ledger.locks.size())
	env.assertCountersMatchLedger(t)
}
