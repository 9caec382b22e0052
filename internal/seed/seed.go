// Package seed loads the demo dataset. Run clears every table first, so
// running it twice leaves the same data behind.
package seed

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"civicvoice/internal/model"
	"civicvoice/internal/repository"
	"civicvoice/internal/service"
)

type demoUser struct {
	email     string
	password  string
	fullName  string
	username  string
	bio       string
	role      model.Role
	verified  bool
	interests model.Tags
}

var demoUsers = []demoUser{
	{"admin@civicvoice.com", "admin123", "Admin User", "admin", "System Administrator", model.RoleAdmin, true,
		model.Tags{"Politics", "Education", "Healthcare"}},
	{"john.doe@example.com", "password123", "John Doe", "johndoe", "Political enthusiast and community advocate", model.RoleUser, true,
		model.Tags{"Politics", "Economy"}},
	{"jane.smith@example.com", "password123", "Jane Smith", "janesmith", "Education reform advocate", model.RoleUser, false,
		model.Tags{"Education", "Healthcare"}},
	{"moderator@civicvoice.com", "password123", "Content Moderator", "moderator", "Community moderator", model.RoleModerator, true,
		model.Tags{"Politics", "Education", "Healthcare"}},
}

// Indices into demoUsers.
const (
	admin = iota
	john
	jane
	moderator
)

type demoPost struct {
	author   int
	content  string
	category model.Category
	likers   []int
	comments []demoComment
}

type demoComment struct {
	author int
	text   string
}

var demoPosts = []demoPost{
	{
		author:   john,
		content:  "The new education policy shows promising results in improving student outcomes. What are your thoughts on the recent changes?",
		category: model.CategoryEducation,
		likers:   []int{jane, moderator},
		comments: []demoComment{{jane, "I agree! The focus on practical learning is much needed."}},
	},
	{
		author:   jane,
		content:  "Healthcare accessibility in rural areas needs immediate attention. We need better infrastructure and more healthcare workers.",
		category: model.CategoryHealthcare,
		likers:   []int{john},
		comments: []demoComment{{john, "Absolutely! Telemedicine could be a game-changer here."}},
	},
	{
		author:   admin,
		content:  "Welcome to CivicVoice! This platform is designed to foster meaningful discussions about important civic issues.",
		category: model.CategoryGeneral,
		likers:   []int{john, jane, moderator},
		comments: []demoComment{
			{john, "Excited to be part of this community!"},
			{jane, "Great initiative! Looking forward to meaningful discussions."},
		},
	},
}

// Result summarizes a seeding run.
type Result struct {
	Users    int `json:"users"`
	Posts    int `json:"posts"`
	Likes    int `json:"likes"`
	Comments int `json:"comments"`
}

// Seeder writes the demo dataset through the engagement ledger so the
// per-user totals are maintained exactly as for live traffic.
type Seeder struct {
	store      repository.Store
	ledger     service.LedgerService
	bcryptCost int
	logger     *zap.Logger
}

// New creates a seeder.
func New(store repository.Store, ledger service.LedgerService, bcryptCost int, logger *zap.Logger) *Seeder {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{store: store, ledger: ledger, bcryptCost: bcryptCost, logger: logger}
}

// Run clears all data and inserts the demo users, posts, likes and comments.
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	if err := s.store.Reset(ctx); err != nil {
		return nil, fmt.Errorf("reset store: %w", err)
	}
	s.logger.Info("cleared existing data")

	ids := make([]uuid.UUID, len(demoUsers))
	for i, du := range demoUsers {
		hash, err := bcrypt.GenerateFromPassword([]byte(du.password), s.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user := &model.User{
			ID:           uuid.New(),
			Email:        du.email,
			Username:     du.username,
			PasswordHash: string(hash),
			FullName:     du.fullName,
			Bio:          du.bio,
			Interests:    du.interests,
			Role:         du.role,
			IsVerified:   du.verified,
			IsActive:     true,
		}
		if err := s.store.Users().Create(ctx, user); err != nil {
			return nil, fmt.Errorf("create user %s: %w", du.username, err)
		}
		ids[i] = user.ID
		s.logger.Info("created user", zap.String("username", du.username), zap.String("role", string(du.role)))
	}

	res := &Result{Users: len(ids)}
	for _, dp := range demoPosts {
		post, err := s.ledger.CreatePost(ctx, ids[dp.author], dp.content, dp.category)
		if err != nil {
			return nil, fmt.Errorf("create post: %w", err)
		}
		res.Posts++
		for _, liker := range dp.likers {
			if _, err := s.ledger.Like(ctx, post.ID, ids[liker]); err != nil {
				return nil, fmt.Errorf("like post: %w", err)
			}
			res.Likes++
		}
		for _, c := range dp.comments {
			if _, _, err := s.ledger.AddComment(ctx, post.ID, ids[c.author], c.text); err != nil {
				return nil, fmt.Errorf("comment on post: %w", err)
			}
			res.Comments++
		}
	}
	s.logger.Info("seed completed",
		zap.Int("users", res.Users),
		zap.Int("posts", res.Posts),
		zap.Int("likes", res.Likes),
		zap.Int("comments", res.Comments),
	)
	return res, nil
}
