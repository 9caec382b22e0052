package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "civicvoice/internal/errors"
	"civicvoice/internal/model"
	"civicvoice/internal/repository"
)

func TestAnalyticsService_DashboardStats(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	alice := env.register(t, "alice@example.com", "alice", "alice123", model.RoleUser)
	bob := env.register(t, "bob@example.com", "bob", "bob12345", model.RoleModerator)

	post, err := env.ledger.CreatePost(ctx, alice.ID, "Fix the roads", model.CategoryPolitics)
	require.NoError(t, err)
	_, err = env.ledger.Like(ctx, post.ID, bob.ID)
	require.NoError(t, err)
	_, _, err = env.ledger.AddComment(ctx, post.ID, bob.ID, "agreed")
	require.NoError(t, err)
	require.NoError(t, env.ledger.ReportPost(ctx, post.ID, bob.ID, model.ReasonOther, ""))

	stats, err := env.analytics.DashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalUsers)
	assert.Equal(t, 1, stats.TotalPosts)
	assert.Equal(t, 2, stats.TotalActiveUsers)
	assert.Equal(t, 1, stats.UsersByRole[model.RoleUser])
	assert.Equal(t, 1, stats.UsersByRole[model.RoleModerator])
	assert.Equal(t, 0, stats.UsersByRole[model.RoleAdmin])
	assert.Equal(t, 1, stats.PostsByCategory[model.CategoryPolitics])
	assert.Equal(t, 0, stats.PostsByCategory[model.CategoryHealthcare])
	assert.Equal(t, 1, stats.TotalLikes)
	assert.Equal(t, 1, stats.TotalComments)
	assert.Equal(t, 1, stats.ReportedPosts)
	require.Len(t, stats.RecentUsers, 2)
	for _, u := range stats.RecentUsers {
		assert.Empty(t, u.PasswordHash)
	}
	require.Len(t, stats.RecentPosts, 1)
	assert.Nil(t, stats.RecentPosts[0].Reports)

	author := env.reloadUser(t, alice)
	assert.Equal(t, int64(1), author.TotalPosts)
	assert.Equal(t, int64(1), author.TotalVotes)
}

func TestAnalyticsService_Idempotent(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	alice := env.register(t, "alice@example.com", "alice", "alice123", model.RoleUser)
	_, err := env.ledger.CreatePost(ctx, alice.ID, "Hello", model.CategoryEducation)
	require.NoError(t, err)

	first, err := env.analytics.UserAnalytics(ctx, "30d")
	require.NoError(t, err)
	second, err := env.analytics.UserAnalytics(ctx, "30d")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "30d", first.Period)

	all, err := env.analytics.UserAnalytics(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "all", all.Period)
}

func TestAnalyticsService_InvalidPeriod(t *testing.T) {
	env := newTestEnv(t, true)
	_, err := env.analytics.UserAnalytics(context.Background(), "2w")
	assert.Equal(t, apperrors.ErrInvalidPeriod, err)
}

func TestAnalyticsService_GrowthBuckets(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	create := func(name string, at time.Time) *model.User {
		u := &model.User{
			ID:        uuid.New(),
			Email:     name + "@example.com",
			Username:  name,
			Role:      model.RoleUser,
			IsActive:  true,
			CreatedAt: at,
			UpdatedAt: at,
		}
		require.NoError(t, store.Users().Create(ctx, u))
		return u
	}
	old := create("old", now.AddDate(0, -2, 0))
	create("a", time.Date(2024, 3, 9, 23, 30, 0, 0, time.UTC))
	create("b", time.Date(2024, 3, 9, 1, 0, 0, 0, time.UTC))
	// 01:00 on the 10th at UTC+3 lands on the 9th in UTC
	create("c", time.Date(2024, 3, 10, 1, 0, 0, 0, time.FixedZone("EAT", 3*3600)))
	recent := create("d", time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC))

	require.NoError(t, store.Posts().Create(ctx, &model.Post{
		ID: uuid.New(), AuthorID: old.ID, Content: "old", Category: model.CategoryGeneral, IsPublic: true,
		CreatedAt: now.AddDate(0, -1, -5), UpdatedAt: now,
	}))
	recentPost := &model.Post{
		ID: uuid.New(), AuthorID: recent.ID, Content: "new", Category: model.CategoryGeneral, IsPublic: true,
		CreatedAt: now.Add(-time.Hour), UpdatedAt: now,
	}
	require.NoError(t, store.Posts().Create(ctx, recentPost))
	require.NoError(t, store.Posts().AddLike(ctx, &model.PostLike{PostID: recentPost.ID, UserID: old.ID, CreatedAt: now.Add(-time.Minute)}))

	svc := &analyticsService{store: store, now: func() time.Time { return now }}

	report, err := svc.UserAnalytics(ctx, "7d")
	require.NoError(t, err)
	assert.Equal(t, 5, report.Users.Total)
	assert.Equal(t, []Bucket{
		{Date: "2024-03-09", Count: 3},
		{Date: "2024-03-10", Count: 1},
	}, report.Users.GrowthOverTime)
	assert.Equal(t, []EngagementBucket{
		{Date: "2024-03-10", Posts: 1, Likes: 1},
	}, report.Posts.EngagementOverTime)

	require.NotEmpty(t, report.Posts.TopAuthors)
	assert.Equal(t, recent.ID, report.Posts.TopAuthors[0].UserID)
	assert.Equal(t, 1, report.Posts.TopAuthors[0].TotalVotes)
	require.NotEmpty(t, report.Posts.TopPosts)
	assert.Equal(t, recentPost.ID, report.Posts.TopPosts[0].PostID)

	everything, err := svc.UserAnalytics(ctx, "all")
	require.NoError(t, err)
	assert.Len(t, everything.Users.GrowthOverTime, 3)
	assert.Equal(t, "2024-01-10", everything.Users.GrowthOverTime[0].Date)
	assert.Len(t, everything.Posts.EngagementOverTime, 2)
}

func TestAnalyticsService_CounterAudit(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	alice := env.register(t, "alice@example.com", "alice", "alice123", model.RoleUser)
	_, err := env.ledger.CreatePost(ctx, alice.ID, "Hello", model.CategoryGeneral)
	require.NoError(t, err)

	drift, err := env.analytics.CounterAudit(ctx)
	require.NoError(t, err)
	assert.NotNil(t, drift)
	assert.Empty(t, drift)

	// bypass the ledger to simulate a lost update
	require.NoError(t, env.store.Users().UpdateCounters(ctx, alice.ID, model.CounterDelta{Votes: 3}))

	drift, err = env.analytics.CounterAudit(ctx)
	require.NoError(t, err)
	require.Len(t, drift, 1)
	assert.Equal(t, CounterDrift{
		UserID:      alice.ID,
		StoredPosts: 1,
		ActualPosts: 1,
		StoredVotes: 3,
		ActualVotes: 0,
	}, drift[0])
}
