package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	apperrors "civicvoice/internal/errors"
	"civicvoice/internal/model"
	"civicvoice/internal/repository"
)

const (
	recentWindow     = 7 * 24 * time.Hour
	leaderboardSize  = 5
	recentListLength = 5
	bucketLayout     = "2006-01-02"
)

// Periods accepted by UserAnalytics. The empty string means all time.
var periods = map[string]time.Duration{
	"":    0,
	"all": 0,
	"1d":  24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
	"90d": 90 * 24 * time.Hour,
	"1y":  365 * 24 * time.Hour,
}

// DashboardStats is the admin overview.
type DashboardStats struct {
	TotalUsers          int                    `json:"totalUsers"`
	TotalPosts          int                    `json:"totalPosts"`
	TotalActiveUsers    int                    `json:"totalActiveUsers"`
	RecentlyActiveUsers int                    `json:"recentlyActiveUsers"`
	UsersByRole         map[model.Role]int     `json:"usersByRole"`
	PostsByCategory     map[model.Category]int `json:"postsByCategory"`
	TotalLikes          int                    `json:"totalLikes"`
	TotalComments       int                    `json:"totalComments"`
	ReportedPosts       int                    `json:"reportedPosts"`
	RecentUsers         []model.User           `json:"recentUsers"`
	RecentPosts         []model.Post           `json:"recentPosts"`
}

// Bucket counts events on one UTC calendar day.
type Bucket struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// EngagementBucket counts content activity on one UTC calendar day.
type EngagementBucket struct {
	Date     string `json:"date"`
	Posts    int    `json:"posts"`
	Likes    int    `json:"likes"`
	Comments int    `json:"comments"`
}

// AuthorStat ranks an author by likes received.
type AuthorStat struct {
	UserID     uuid.UUID `json:"userId"`
	Username   string    `json:"username"`
	FullName   string    `json:"fullName"`
	TotalPosts int       `json:"totalPosts"`
	TotalVotes int       `json:"totalVotes"`
}

// PostStat ranks a post by engagement.
type PostStat struct {
	PostID       uuid.UUID      `json:"postId"`
	AuthorID     uuid.UUID      `json:"authorId"`
	Category     model.Category `json:"category"`
	LikeCount    int            `json:"likeCount"`
	CommentCount int            `json:"commentCount"`
}

// UserStats is the users section of UserAnalytics.
type UserStats struct {
	Total          int                `json:"total"`
	Verified       int                `json:"verified"`
	Active         int                `json:"active"`
	ByRole         map[model.Role]int `json:"byRole"`
	GrowthOverTime []Bucket           `json:"growthOverTime"`
}

// PostStats is the posts section of UserAnalytics.
type PostStats struct {
	Total              int                    `json:"total"`
	ByCategory         map[model.Category]int `json:"byCategory"`
	TotalLikes         int                    `json:"totalLikes"`
	TotalComments      int                    `json:"totalComments"`
	EngagementOverTime []EngagementBucket     `json:"engagementOverTime"`
	TopAuthors         []AuthorStat           `json:"topAuthors"`
	TopPosts           []PostStat             `json:"topPosts"`
}

// UserAnalytics is the admin analytics report.
type UserAnalytics struct {
	Period string    `json:"period"`
	Users  UserStats `json:"users"`
	Posts  PostStats `json:"posts"`
}

// CounterDrift reports a user whose stored totals disagree with the ledger.
type CounterDrift struct {
	UserID      uuid.UUID `json:"userId"`
	StoredPosts int64     `json:"storedPosts"`
	ActualPosts int64     `json:"actualPosts"`
	StoredVotes int64     `json:"storedVotes"`
	ActualVotes int64     `json:"actualVotes"`
}

// AnalyticsService computes read-only rollups. Each scan copies the
// records it reads and aggregates without holding store locks, so results
// are approximately consistent under concurrent writes.
type AnalyticsService interface {
	DashboardStats(ctx context.Context) (*DashboardStats, error)
	UserAnalytics(ctx context.Context, period string) (*UserAnalytics, error)
	CounterAudit(ctx context.Context) ([]CounterDrift, error)
}

type analyticsService struct {
	store   repository.Store
	timeout time.Duration
	now     func() time.Time
}

// NewAnalyticsService creates an analytics aggregator over store.
func NewAnalyticsService(store repository.Store, timeout time.Duration) AnalyticsService {
	return &analyticsService{store: store, timeout: timeout, now: time.Now}
}

func (s *analyticsService) scan(ctx context.Context) ([]model.User, []model.Post, error) {
	defer observe("analytics_scan", time.Now())
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	users, err := s.store.Users().All(ctx)
	if err != nil {
		return nil, nil, err
	}
	posts, err := s.store.Posts().All(ctx)
	if err != nil {
		return nil, nil, err
	}
	return users, posts, nil
}

func emptyRoleCounts() map[model.Role]int {
	out := make(map[model.Role]int, len(model.Roles))
	for _, r := range model.Roles {
		out[r] = 0
	}
	return out
}

func emptyCategoryCounts() map[model.Category]int {
	out := make(map[model.Category]int, len(model.Categories))
	for _, c := range model.Categories {
		out[c] = 0
	}
	return out
}

func (s *analyticsService) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	users, posts, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{
		TotalUsers:      len(users),
		TotalPosts:      len(posts),
		UsersByRole:     emptyRoleCounts(),
		PostsByCategory: emptyCategoryCounts(),
	}
	since := s.now().Add(-recentWindow)
	for _, u := range users {
		stats.UsersByRole[u.Role]++
		if u.IsActive {
			stats.TotalActiveUsers++
		}
		if u.LastActiveAt != nil && u.LastActiveAt.After(since) {
			stats.RecentlyActiveUsers++
		}
	}
	for _, p := range posts {
		stats.PostsByCategory[p.Category]++
		stats.TotalLikes += p.LikeCount()
		stats.TotalComments += p.CommentCount()
		if p.IsReported {
			stats.ReportedPosts++
		}
	}

	stats.RecentUsers = make([]model.User, 0, recentListLength)
	for i := len(users) - 1; i >= 0 && len(stats.RecentUsers) < recentListLength; i-- {
		u := users[i]
		u.PasswordHash = ""
		stats.RecentUsers = append(stats.RecentUsers, u)
	}
	stats.RecentPosts = make([]model.Post, 0, recentListLength)
	for i := len(posts) - 1; i >= 0 && len(stats.RecentPosts) < recentListLength; i-- {
		p := posts[i]
		p.Reports = nil
		stats.RecentPosts = append(stats.RecentPosts, p)
	}
	return stats, nil
}

func (s *analyticsService) UserAnalytics(ctx context.Context, period string) (*UserAnalytics, error) {
	window, ok := periods[period]
	if !ok {
		return nil, apperrors.ErrInvalidPeriod
	}
	users, posts, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}
	var cutoff time.Time
	if window > 0 {
		cutoff = s.now().Add(-window)
	}
	inWindow := func(t time.Time) bool { return cutoff.IsZero() || !t.Before(cutoff) }

	if period == "" {
		period = "all"
	}
	report := &UserAnalytics{
		Period: period,
		Users: UserStats{
			Total:  len(users),
			ByRole: emptyRoleCounts(),
		},
		Posts: PostStats{
			Total:      len(posts),
			ByCategory: emptyCategoryCounts(),
		},
	}

	growth := map[string]int{}
	for _, u := range users {
		report.Users.ByRole[u.Role]++
		if u.IsVerified {
			report.Users.Verified++
		}
		if u.IsActive {
			report.Users.Active++
		}
		if inWindow(u.CreatedAt) {
			growth[day(u.CreatedAt)]++
		}
	}
	report.Users.GrowthOverTime = sortedBuckets(growth)

	engagement := map[string]*EngagementBucket{}
	bucket := func(t time.Time) *EngagementBucket {
		key := day(t)
		b, ok := engagement[key]
		if !ok {
			b = &EngagementBucket{Date: key}
			engagement[key] = b
		}
		return b
	}

	received := map[uuid.UUID]int{}
	authored := map[uuid.UUID]int{}
	topPosts := make([]PostStat, 0, len(posts))
	for _, p := range posts {
		report.Posts.ByCategory[p.Category]++
		report.Posts.TotalLikes += p.LikeCount()
		report.Posts.TotalComments += p.CommentCount()
		received[p.AuthorID] += p.LikeCount()
		authored[p.AuthorID]++
		if inWindow(p.CreatedAt) {
			bucket(p.CreatedAt).Posts++
		}
		for _, l := range p.Likes {
			if inWindow(l.CreatedAt) {
				bucket(l.CreatedAt).Likes++
			}
		}
		for _, c := range p.Comments {
			if inWindow(c.CreatedAt) {
				bucket(c.CreatedAt).Comments++
			}
		}
		topPosts = append(topPosts, PostStat{
			PostID:       p.ID,
			AuthorID:     p.AuthorID,
			Category:     p.Category,
			LikeCount:    p.LikeCount(),
			CommentCount: p.CommentCount(),
		})
	}

	report.Posts.EngagementOverTime = make([]EngagementBucket, 0, len(engagement))
	for _, b := range engagement {
		report.Posts.EngagementOverTime = append(report.Posts.EngagementOverTime, *b)
	}
	sort.Slice(report.Posts.EngagementOverTime, func(i, j int) bool {
		return report.Posts.EngagementOverTime[i].Date < report.Posts.EngagementOverTime[j].Date
	})

	sort.SliceStable(topPosts, func(i, j int) bool {
		a, b := topPosts[i], topPosts[j]
		if a.LikeCount+a.CommentCount != b.LikeCount+b.CommentCount {
			return a.LikeCount+a.CommentCount > b.LikeCount+b.CommentCount
		}
		return a.PostID.String() < b.PostID.String()
	})
	if len(topPosts) > leaderboardSize {
		topPosts = topPosts[:leaderboardSize]
	}
	report.Posts.TopPosts = topPosts

	authors := make([]AuthorStat, 0, len(authored))
	for _, u := range users {
		if authored[u.ID] == 0 {
			continue
		}
		authors = append(authors, AuthorStat{
			UserID:     u.ID,
			Username:   u.Username,
			FullName:   u.FullName,
			TotalPosts: authored[u.ID],
			TotalVotes: received[u.ID],
		})
	}
	sort.SliceStable(authors, func(i, j int) bool {
		if authors[i].TotalVotes != authors[j].TotalVotes {
			return authors[i].TotalVotes > authors[j].TotalVotes
		}
		if authors[i].TotalPosts != authors[j].TotalPosts {
			return authors[i].TotalPosts > authors[j].TotalPosts
		}
		return authors[i].UserID.String() < authors[j].UserID.String()
	})
	if len(authors) > leaderboardSize {
		authors = authors[:leaderboardSize]
	}
	report.Posts.TopAuthors = authors

	return report, nil
}

// CounterAudit recomputes every user's totals from the ledger and returns
// the users whose stored counters differ.
func (s *analyticsService) CounterAudit(ctx context.Context) ([]CounterDrift, error) {
	users, posts, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}
	actualPosts := map[uuid.UUID]int64{}
	actualVotes := map[uuid.UUID]int64{}
	for _, p := range posts {
		actualPosts[p.AuthorID]++
		actualVotes[p.AuthorID] += int64(p.LikeCount())
	}

	drift := []CounterDrift{}
	for _, u := range users {
		if u.TotalPosts == actualPosts[u.ID] && u.TotalVotes == actualVotes[u.ID] {
			continue
		}
		drift = append(drift, CounterDrift{
			UserID:      u.ID,
			StoredPosts: u.TotalPosts,
			ActualPosts: actualPosts[u.ID],
			StoredVotes: u.TotalVotes,
			ActualVotes: actualVotes[u.ID],
		})
	}
	return drift, nil
}

func day(t time.Time) string {
	return t.UTC().Format(bucketLayout)
}

func sortedBuckets(counts map[string]int) []Bucket {
	out := make([]Bucket, 0, len(counts))
	for date, n := range counts {
		out = append(out, Bucket{Date: date, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
