package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "civicvoice/internal/errors"
	"civicvoice/internal/model"
)

type memoryData struct {
	mu            sync.RWMutex
	users         map[uuid.UUID]*model.User
	posts         map[uuid.UUID]*model.Post
	ratings       map[uuid.UUID]*model.Rating
	follows       map[followKey]model.UserFollow
	nextCommentID uint
}

type followKey struct {
	follower, followee uuid.UUID
}

func newMemoryData() *memoryData {
	return &memoryData{
		users:   make(map[uuid.UUID]*model.User),
		posts:   make(map[uuid.UUID]*model.Post),
		ratings: make(map[uuid.UUID]*model.Rating),
		follows: make(map[followKey]model.UserFollow),
	}
}

// MemoryStore is a Store kept in process memory. Records are copied on
// every read and write so callers never share state with the store.
// Transactions hold the write lock for their whole duration and undo
// their changes on error.
type MemoryStore struct {
	data *memoryData
	// journal is non-nil on a transactional view; data.mu is then held.
	journal *[]func()
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: newMemoryData()}
}

func (s *MemoryStore) Users() UserRepository     { return &memoryUsers{s} }
func (s *MemoryStore) Posts() PostRepository     { return &memoryPosts{s} }
func (s *MemoryStore) Ratings() RatingRepository { return &memoryRatings{s} }
func (s *MemoryStore) Follows() FollowRepository { return &memoryFollows{s} }

func (s *MemoryStore) inTx() bool {
	return s.journal != nil
}

func (s *MemoryStore) undo(step func()) {
	if s.inTx() {
		*s.journal = append(*s.journal, step)
	}
}

func (s *MemoryStore) write(ctx context.Context, fn func(d *memoryData) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.inTx() {
		return fn(s.data)
	}
	s.data.mu.Lock()
	defer s.data.mu.Unlock()
	return fn(s.data)
}

func (s *MemoryStore) read(ctx context.Context, fn func(d *memoryData) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.inTx() {
		return fn(s.data)
	}
	s.data.mu.RLock()
	defer s.data.mu.RUnlock()
	return fn(s.data)
}

func (s *MemoryStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if s.inTx() {
		return fn(ctx, s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	journal := make([]func(), 0, 8)
	tx := &MemoryStore{data: s.data, journal: &journal}
	if err := fn(ctx, tx); err != nil {
		for i := len(journal) - 1; i >= 0; i-- {
			journal[i]()
		}
		return err
	}
	return nil
}

func (s *MemoryStore) Reset(ctx context.Context) error {
	return s.write(ctx, func(d *memoryData) error {
		users, posts, ratings, follows, next := d.users, d.posts, d.ratings, d.follows, d.nextCommentID
		fresh := newMemoryData()
		d.users, d.posts, d.ratings, d.follows, d.nextCommentID = fresh.users, fresh.posts, fresh.ratings, fresh.follows, 0
		s.undo(func() {
			d.users, d.posts, d.ratings, d.follows, d.nextCommentID = users, posts, ratings, follows, next
		})
		return nil
	})
}

func stamp(t *time.Time) {
	if t.IsZero() {
		*t = time.Now()
	}
}

func copyUser(u *model.User) *model.User {
	c := *u
	if u.Interests != nil {
		c.Interests = append(model.Tags{}, u.Interests...)
	}
	if u.LastActiveAt != nil {
		at := *u.LastActiveAt
		c.LastActiveAt = &at
	}
	return &c
}

func copyPost(p *model.Post, children bool) *model.Post {
	c := *p
	c.Likes, c.Comments, c.Reports = nil, nil, nil
	if children {
		c.Likes = append([]model.PostLike{}, p.Likes...)
		c.Comments = append([]model.Comment{}, p.Comments...)
		c.Reports = append([]model.PostReport{}, p.Reports...)
	}
	return &c
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

type memoryUsers struct {
	s *MemoryStore
}

func (r *memoryUsers) Create(ctx context.Context, user *model.User) error {
	user.Email = model.NormalizeIdentity(user.Email)
	user.Username = model.NormalizeIdentity(user.Username)
	return r.s.write(ctx, func(d *memoryData) error {
		for _, u := range d.users {
			if u.Email == user.Email {
				return apperrors.ErrDuplicateEmail
			}
		}
		for _, u := range d.users {
			if u.Username == user.Username {
				return apperrors.ErrDuplicateUsername
			}
		}
		if user.ID == uuid.Nil {
			user.ID = uuid.New()
		}
		stamp(&user.CreatedAt)
		stamp(&user.UpdatedAt)
		d.users[user.ID] = copyUser(user)
		id := user.ID
		r.s.undo(func() { delete(d.users, id) })
		return nil
	})
}

func (r *memoryUsers) findBy(ctx context.Context, match func(*model.User) bool) (*model.User, error) {
	var found *model.User
	err := r.s.read(ctx, func(d *memoryData) error {
		for _, u := range d.users {
			if match(u) {
				found = copyUser(u)
				return nil
			}
		}
		return apperrors.ErrUserNotFound
	})
	return found, err
}

func (r *memoryUsers) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var found *model.User
	err := r.s.read(ctx, func(d *memoryData) error {
		u, ok := d.users[id]
		if !ok {
			return apperrors.ErrUserNotFound
		}
		found = copyUser(u)
		return nil
	})
	return found, err
}

func (r *memoryUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	email = model.NormalizeIdentity(email)
	return r.findBy(ctx, func(u *model.User) bool { return u.Email == email })
}

func (r *memoryUsers) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	username = model.NormalizeIdentity(username)
	return r.findBy(ctx, func(u *model.User) bool { return u.Username == username })
}

func (r *memoryUsers) snapshot(ctx context.Context, keep func(*model.User) bool) ([]model.User, error) {
	var out []model.User
	err := r.s.read(ctx, func(d *memoryData) error {
		out = make([]model.User, 0, len(d.users))
		for _, u := range d.users {
			if keep == nil || keep(u) {
				out = append(out, *copyUser(u))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, err
}

func (r *memoryUsers) List(ctx context.Context, filter UserFilter) ([]model.User, int64, error) {
	search := strings.ToLower(filter.Search)
	users, err := r.snapshot(ctx, func(u *model.User) bool {
		if search != "" && !strings.Contains(strings.ToLower(u.FullName), search) &&
			!strings.Contains(u.Username, search) && !strings.Contains(u.Email, search) {
			return false
		}
		if filter.Role != "" && u.Role != filter.Role {
			return false
		}
		if filter.Active != nil && u.IsActive != *filter.Active {
			return false
		}
		return true
	})
	if err != nil {
		return nil, 0, err
	}
	for i, j := 0, len(users)-1; i < j; i, j = i+1, j-1 {
		users[i], users[j] = users[j], users[i]
	}
	return page(users, filter.Offset, filter.Limit), int64(len(users)), nil
}

func (r *memoryUsers) All(ctx context.Context) ([]model.User, error) {
	return r.snapshot(ctx, nil)
}

func (r *memoryUsers) mutate(ctx context.Context, id uuid.UUID, fn func(u *model.User)) error {
	return r.s.write(ctx, func(d *memoryData) error {
		u, ok := d.users[id]
		if !ok {
			return apperrors.ErrUserNotFound
		}
		before := copyUser(u)
		fn(u)
		r.s.undo(func() { d.users[id] = before })
		return nil
	})
}

func (r *memoryUsers) UpdateProfile(ctx context.Context, id uuid.UUID, update model.ProfileUpdate) error {
	return r.mutate(ctx, id, func(u *model.User) {
		if update.FullName != nil {
			u.FullName = *update.FullName
		}
		if update.Bio != nil {
			u.Bio = *update.Bio
		}
		if update.Interests != nil {
			u.Interests = append(model.Tags{}, update.Interests...)
		}
		u.UpdatedAt = time.Now()
	})
}

func (r *memoryUsers) SetRole(ctx context.Context, id uuid.UUID, role model.Role) error {
	return r.mutate(ctx, id, func(u *model.User) {
		u.Role = role
		u.UpdatedAt = time.Now()
	})
}

func (r *memoryUsers) SetActive(ctx context.Context, id uuid.UUID, active bool, reason string) error {
	return r.mutate(ctx, id, func(u *model.User) {
		u.IsActive = active
		u.SuspensionReason = reason
		u.UpdatedAt = time.Now()
	})
}

func (r *memoryUsers) TouchLastActive(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.mutate(ctx, id, func(u *model.User) {
		u.LastActiveAt = &at
	})
}

func (r *memoryUsers) UpdateCounters(ctx context.Context, id uuid.UUID, delta model.CounterDelta) error {
	return r.mutate(ctx, id, func(u *model.User) {
		u.TotalPosts += delta.Posts
		u.TotalVotes += delta.Votes
	})
}

type memoryPosts struct {
	s *MemoryStore
}

func (r *memoryPosts) Create(ctx context.Context, post *model.Post) error {
	return r.s.write(ctx, func(d *memoryData) error {
		if post.ID == uuid.Nil {
			post.ID = uuid.New()
		}
		stamp(&post.CreatedAt)
		stamp(&post.UpdatedAt)
		d.posts[post.ID] = copyPost(post, false)
		id := post.ID
		r.s.undo(func() { delete(d.posts, id) })
		return nil
	})
}

func (r *memoryPosts) find(ctx context.Context, id uuid.UUID, children bool) (*model.Post, error) {
	var found *model.Post
	err := r.s.read(ctx, func(d *memoryData) error {
		p, ok := d.posts[id]
		if !ok {
			return apperrors.ErrPostNotFound
		}
		found = copyPost(p, children)
		return nil
	})
	return found, err
}

func (r *memoryPosts) FindByID(ctx context.Context, id uuid.UUID) (*model.Post, error) {
	return r.find(ctx, id, true)
}

func (r *memoryPosts) FindForUpdate(ctx context.Context, id uuid.UUID) (*model.Post, error) {
	return r.find(ctx, id, false)
}

func (r *memoryPosts) snapshot(ctx context.Context, keep func(*model.Post) bool) ([]model.Post, error) {
	var out []model.Post
	err := r.s.read(ctx, func(d *memoryData) error {
		out = make([]model.Post, 0, len(d.posts))
		for _, p := range d.posts {
			if keep == nil || keep(p) {
				out = append(out, *copyPost(p, true))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, err
}

func (r *memoryPosts) List(ctx context.Context, filter PostFilter) ([]model.Post, int64, error) {
	posts, err := r.snapshot(ctx, func(p *model.Post) bool {
		if filter.Category != "" && p.Category != filter.Category {
			return false
		}
		if filter.AuthorID != uuid.Nil && p.AuthorID != filter.AuthorID {
			return false
		}
		if filter.PublicOnly && !p.IsPublic {
			return false
		}
		if filter.Reported != nil && p.IsReported != *filter.Reported {
			return false
		}
		return true
	})
	if err != nil {
		return nil, 0, err
	}
	for i, j := 0, len(posts)-1; i < j; i, j = i+1, j-1 {
		posts[i], posts[j] = posts[j], posts[i]
	}
	return page(posts, filter.Offset, filter.Limit), int64(len(posts)), nil
}

func (r *memoryPosts) All(ctx context.Context) ([]model.Post, error) {
	return r.snapshot(ctx, nil)
}

func (r *memoryPosts) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.write(ctx, func(d *memoryData) error {
		p, ok := d.posts[id]
		if !ok {
			return apperrors.ErrPostNotFound
		}
		delete(d.posts, id)
		r.s.undo(func() { d.posts[id] = p })
		return nil
	})
}

func (r *memoryPosts) mutate(ctx context.Context, id uuid.UUID, fn func(p *model.Post) error) error {
	return r.s.write(ctx, func(d *memoryData) error {
		p, ok := d.posts[id]
		if !ok {
			return apperrors.ErrPostNotFound
		}
		before := copyPost(p, true)
		if err := fn(p); err != nil {
			return err
		}
		r.s.undo(func() { d.posts[id] = before })
		return nil
	})
}

func (r *memoryPosts) UpdateContent(ctx context.Context, id uuid.UUID, content string, category model.Category) error {
	return r.mutate(ctx, id, func(p *model.Post) error {
		p.Content = content
		p.Category = category
		p.UpdatedAt = time.Now()
		return nil
	})
}

func (r *memoryPosts) AddLike(ctx context.Context, like *model.PostLike) error {
	return r.mutate(ctx, like.PostID, func(p *model.Post) error {
		if p.LikedBy(like.UserID) {
			return apperrors.ErrAlreadyLiked
		}
		stamp(&like.CreatedAt)
		p.Likes = append(p.Likes, *like)
		return nil
	})
}

func (r *memoryPosts) RemoveLike(ctx context.Context, postID, userID uuid.UUID) error {
	return r.mutate(ctx, postID, func(p *model.Post) error {
		for i, l := range p.Likes {
			if l.UserID == userID {
				p.Likes = append(p.Likes[:i:i], p.Likes[i+1:]...)
				return nil
			}
		}
		return apperrors.ErrNotLiked
	})
}

func (r *memoryPosts) CountLikes(ctx context.Context, postID uuid.UUID) (int64, error) {
	p, err := r.find(ctx, postID, true)
	if err != nil {
		return 0, err
	}
	return int64(p.LikeCount()), nil
}

func (r *memoryPosts) AddComment(ctx context.Context, comment *model.Comment) error {
	return r.s.write(ctx, func(d *memoryData) error {
		p, ok := d.posts[comment.PostID]
		if !ok {
			return apperrors.ErrPostNotFound
		}
		before := copyPost(p, true)
		next := d.nextCommentID
		d.nextCommentID++
		comment.ID = d.nextCommentID
		stamp(&comment.CreatedAt)
		p.Comments = append(p.Comments, *comment)
		r.s.undo(func() {
			d.posts[comment.PostID] = before
			d.nextCommentID = next
		})
		return nil
	})
}

func (r *memoryPosts) CountComments(ctx context.Context, postID uuid.UUID) (int64, error) {
	p, err := r.find(ctx, postID, true)
	if err != nil {
		return 0, err
	}
	return int64(p.CommentCount()), nil
}

func (r *memoryPosts) ListComments(ctx context.Context, postID uuid.UUID, offset, limit int) ([]model.Comment, int64, error) {
	p, err := r.find(ctx, postID, true)
	if err != nil {
		return nil, 0, err
	}
	comments := make([]model.Comment, 0, len(p.Comments))
	for i := len(p.Comments) - 1; i >= 0; i-- {
		comments = append(comments, p.Comments[i])
	}
	return page(comments, offset, limit), int64(len(comments)), nil
}

func (r *memoryPosts) AddReport(ctx context.Context, report *model.PostReport) error {
	return r.mutate(ctx, report.PostID, func(p *model.Post) error {
		for _, existing := range p.Reports {
			if existing.UserID == report.UserID {
				return apperrors.ErrAlreadyReported
			}
		}
		stamp(&report.CreatedAt)
		p.Reports = append(p.Reports, *report)
		return nil
	})
}

func (r *memoryPosts) UpdateModeration(ctx context.Context, id uuid.UUID, m model.Moderation) error {
	return r.mutate(ctx, id, func(p *model.Post) error {
		p.IsPublic = m.IsPublic
		p.IsReported = m.IsReported
		p.IsModerated = m.IsModerated
		p.ModerationNotes = m.Notes
		p.UpdatedAt = time.Now()
		return nil
	})
}

type memoryRatings struct {
	s *MemoryStore
}

func (r *memoryRatings) Upsert(ctx context.Context, rating *model.Rating) error {
	return r.s.write(ctx, func(d *memoryData) error {
		stamp(&rating.UpdatedAt)
		if rating.AuthorID != nil {
			for id, existing := range d.ratings {
				if existing.AuthorID != nil && *existing.AuthorID == *rating.AuthorID && existing.Category == rating.Category {
					before := *existing
					existing.Score = rating.Score
					existing.UpdatedAt = rating.UpdatedAt
					rating.ID, rating.CreatedAt = existing.ID, existing.CreatedAt
					r.s.undo(func() { d.ratings[id] = &before })
					return nil
				}
			}
		}
		if rating.ID == uuid.Nil {
			rating.ID = uuid.New()
		}
		stamp(&rating.CreatedAt)
		c := *rating
		d.ratings[c.ID] = &c
		r.s.undo(func() { delete(d.ratings, c.ID) })
		return nil
	})
}

func (r *memoryRatings) FindByAuthor(ctx context.Context, authorID uuid.UUID) ([]model.Rating, error) {
	var out []model.Rating
	err := r.s.read(ctx, func(d *memoryData) error {
		for _, rt := range d.ratings {
			if rt.AuthorID != nil && *rt.AuthorID == authorID {
				out = append(out, *rt)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, err
}

func (r *memoryRatings) Summary(ctx context.Context) ([]model.RatingSummary, error) {
	type acc struct {
		sum   decimal.Decimal
		count int64
		last  time.Time
	}
	byCategory := map[model.RatingCategory]*acc{}
	err := r.s.read(ctx, func(d *memoryData) error {
		for _, rt := range d.ratings {
			a, ok := byCategory[rt.Category]
			if !ok {
				a = &acc{}
				byCategory[rt.Category] = a
			}
			a.sum = a.sum.Add(rt.Score)
			a.count++
			if rt.UpdatedAt.After(a.last) {
				a.last = rt.UpdatedAt
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.RatingSummary, 0, len(byCategory))
	for category, a := range byCategory {
		last := a.last
		out = append(out, model.RatingSummary{
			Category:    category,
			Average:     a.sum.Div(decimal.NewFromInt(a.count)),
			Count:       a.count,
			LastUpdated: &last,
		})
	}
	return out, nil
}

type memoryFollows struct {
	s *MemoryStore
}

func (r *memoryFollows) Add(ctx context.Context, follow *model.UserFollow) error {
	return r.s.write(ctx, func(d *memoryData) error {
		key := followKey{follow.FollowerID, follow.FolloweeID}
		if _, ok := d.follows[key]; ok {
			return apperrors.ErrAlreadyFollowing
		}
		stamp(&follow.CreatedAt)
		d.follows[key] = *follow
		r.s.undo(func() { delete(d.follows, key) })
		return nil
	})
}

func (r *memoryFollows) Remove(ctx context.Context, followerID, followeeID uuid.UUID) error {
	return r.s.write(ctx, func(d *memoryData) error {
		key := followKey{followerID, followeeID}
		before, ok := d.follows[key]
		if !ok {
			return apperrors.ErrNotFollowing
		}
		delete(d.follows, key)
		r.s.undo(func() { d.follows[key] = before })
		return nil
	})
}

func (r *memoryFollows) Followers(ctx context.Context, userID uuid.UUID, offset, limit int) ([]model.User, int64, error) {
	return r.list(ctx, offset, limit, func(f model.UserFollow) (uuid.UUID, bool) {
		return f.FollowerID, f.FolloweeID == userID
	})
}

func (r *memoryFollows) Following(ctx context.Context, userID uuid.UUID, offset, limit int) ([]model.User, int64, error) {
	return r.list(ctx, offset, limit, func(f model.UserFollow) (uuid.UUID, bool) {
		return f.FolloweeID, f.FollowerID == userID
	})
}

// list resolves the users on the other side of every matching edge.
func (r *memoryFollows) list(ctx context.Context, offset, limit int, other func(model.UserFollow) (uuid.UUID, bool)) ([]model.User, int64, error) {
	type edge struct {
		user *model.User
		at   time.Time
	}
	var edges []edge
	err := r.s.read(ctx, func(d *memoryData) error {
		for _, f := range d.follows {
			id, ok := other(f)
			if !ok {
				continue
			}
			if u, found := d.users[id]; found {
				edges = append(edges, edge{user: copyUser(u), at: f.CreatedAt})
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].at.Equal(edges[j].at) {
			return edges[i].user.ID.String() < edges[j].user.ID.String()
		}
		return edges[i].at.After(edges[j].at)
	})
	users := make([]model.User, 0, len(edges))
	for _, e := range edges {
		users = append(users, *e.user)
	}
	return page(users, offset, limit), int64(len(users)), nil
}

func (r *memoryFollows) Counts(ctx context.Context, userID uuid.UUID) (model.FollowCounts, error) {
	var counts model.FollowCounts
	err := r.s.read(ctx, func(d *memoryData) error {
		for key := range d.follows {
			if key.followee == userID {
				counts.Followers++
			}
			if key.follower == userID {
				counts.Following++
			}
		}
		return nil
	})
	return counts, err
}
