package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"civicvoice/internal/auth"
	"civicvoice/internal/cache"
	apperrors "civicvoice/internal/errors"
	"civicvoice/internal/metrics"
	"civicvoice/internal/model"
	"civicvoice/internal/repository"
)

const (
	maxPostLength    = 2000
	maxCommentLength = 500
)

// PostQuery selects public posts for a listing.
type PostQuery struct {
	Category model.Category
	AuthorID uuid.UUID
	Page
}

// EngagementSummary is derived from a post's live like set and comment list.
type EngagementSummary struct {
	PostID       uuid.UUID `json:"postId"`
	LikeCount    int       `json:"likeCount"`
	CommentCount int       `json:"commentCount"`
}

// LedgerService owns posts and their likes, comments and reports. Every
// write that changes a user's totals updates them in the same transaction.
type LedgerService interface {
	CreatePost(ctx context.Context, authorID uuid.UUID, content string, category model.Category) (*model.Post, error)
	GetPost(ctx context.Context, postID uuid.UUID) (*model.Post, error)
	ListPosts(ctx context.Context, q PostQuery) ([]model.Post, int64, error)
	UpdatePost(ctx context.Context, postID uuid.UUID, actor *model.User, update model.PostUpdate) (*model.Post, error)
	DeletePost(ctx context.Context, postID uuid.UUID, actor *model.User) error
	Like(ctx context.Context, postID, userID uuid.UUID) (int, error)
	Unlike(ctx context.Context, postID, userID uuid.UUID) (int, error)
	AddComment(ctx context.Context, postID, userID uuid.UUID, text string) (*model.Comment, int, error)
	ListComments(ctx context.Context, postID uuid.UUID, page Page) ([]model.Comment, int64, error)
	EngagementSummary(ctx context.Context, postID uuid.UUID) (*EngagementSummary, error)
	ReportPost(ctx context.Context, postID, userID uuid.UUID, reason model.ReportReason, description string) error
	ListReported(ctx context.Context, page Page) ([]model.Post, int64, error)
	Moderate(ctx context.Context, postID uuid.UUID, action model.ModerationAction, notes string) (*model.Post, error)
}

// LedgerOptions tunes a LedgerService.
type LedgerOptions struct {
	AllowSelfLike bool
	Timeout       time.Duration
}

type ledgerService struct {
	store  repository.Store
	cache  *cache.Client
	opts   LedgerOptions
	logger *zap.Logger
	now    func() time.Time
	// Per-post serialization
	locks postLocks
}

// NewLedgerService creates a new engagement ledger.
func NewLedgerService(store repository.Store, cache *cache.Client, opts LedgerOptions, logger *zap.Logger) LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ledgerService{store: store, cache: cache, opts: opts, logger: logger, now: time.Now}
}

// postLocks is a keyed mutex. An entry lives only while some writer holds
// or waits on it.
type postLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*postLock
}

type postLock struct {
	sem  chan struct{}
	refs int
}

// acquire blocks until the post's lock is free or ctx is done.
func (l *postLocks) acquire(ctx context.Context, postID uuid.UUID) (func(), error) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[uuid.UUID]*postLock)
	}
	lock, ok := l.locks[postID]
	if !ok {
		lock = &postLock{sem: make(chan struct{}, 1)}
		l.locks[postID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	select {
	case lock.sem <- struct{}{}:
		return func() {
			<-lock.sem
			l.release(postID, lock)
		}, nil
	case <-ctx.Done():
		l.release(postID, lock)
		return nil, ctx.Err()
	}
}

func (l *postLocks) release(postID uuid.UUID, lock *postLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, postID)
	}
}

func (l *postLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// locked serializes fn with every other write to the same post and runs it
// inside a store transaction. The configured timeout covers the wait for
// the lock as well as the transaction.
func (s *ledgerService) locked(ctx context.Context, op string, postID uuid.UUID, fn func(ctx context.Context, tx repository.Store) error) error {
	defer observe(op, time.Now())
	ctx, cancel := withTimeout(ctx, s.opts.Timeout)
	defer cancel()

	unlock, err := s.locks.acquire(ctx, postID)
	if err == nil {
		err = s.store.WithTransaction(ctx, fn)
		unlock()
	}
	metrics.EngagementOps.WithLabelValues(op, outcome(err)).Inc()
	if err != nil && apperrors.KindOf(err) == apperrors.KindInternal {
		s.logger.Error("ledger write failed", zap.String("op", op), zap.String("post_id", postID.String()), zap.Error(err))
	}
	return err
}

func (s *ledgerService) invalidate(ctx context.Context, userID uuid.UUID) {
	_ = s.cache.Delete(context.WithoutCancel(ctx), cache.UserKey(userID.String()))
}

func (s *ledgerService) CreatePost(ctx context.Context, authorID uuid.UUID, content string, category model.Category) (*model.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" || utf8.RuneCountInString(content) > maxPostLength {
		return nil, apperrors.ErrInvalidContent
	}
	if category == "" {
		category = model.CategoryGeneral
	}
	if !category.Valid() {
		return nil, apperrors.ErrInvalidCategory
	}

	now := s.now()
	post := &model.Post{
		ID:        uuid.New(),
		AuthorID:  authorID,
		Content:   content,
		Category:  category,
		IsPublic:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	defer observe("create_post", time.Now())
	ctx, cancel := withTimeout(ctx, s.opts.Timeout)
	defer cancel()
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := tx.Posts().Create(ctx, post); err != nil {
			return fmt.Errorf("create post: %w", err)
		}
		return tx.Users().UpdateCounters(ctx, authorID, model.CounterDelta{Posts: 1})
	})
	metrics.EngagementOps.WithLabelValues("create_post", outcome(err)).Inc()
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, authorID)

	post.Likes = []model.PostLike{}
	post.Comments = []model.Comment{}
	return post, nil
}

func (s *ledgerService) GetPost(ctx context.Context, postID uuid.UUID) (*model.Post, error) {
	ctx, cancel := withTimeout(ctx, s.opts.Timeout)
	defer cancel()
	post, err := s.store.Posts().FindByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	post.Reports = nil
	return post, nil
}

func (s *ledgerService) ListPosts(ctx context.Context, q PostQuery) ([]model.Post, int64, error) {
	if q.Category != "" && !q.Category.Valid() {
		return nil, 0, apperrors.ErrInvalidCategory
	}
	page := q.Page.Normalize()
	ctx, cancel := withTimeout(ctx, s.opts.Timeout)
	defer cancel()
	posts, total, err := s.store.Posts().List(ctx, repository.PostFilter{
		Category:   q.Category,
		AuthorID:   q.AuthorID,
		PublicOnly: true,
		Offset:     page.Offset(),
		Limit:      page.Limit,
	})
	if err != nil {
		return nil, 0, err
	}
	for i := range posts {
		posts[i].Reports = nil
	}
	return posts, total, nil
}

// UpdatePost edits the content or category of a post. Only the author or a
// caller allowed to moderate content may edit. Engagement is kept.
func (s *ledgerService) UpdatePost(ctx context.Context, postID uuid.UUID, actor *model.User, update model.PostUpdate) (*model.Post, error) {
	if update.Content != nil {
		content := strings.TrimSpace(*update.Content)
		if content == "" || utf8.RuneCountInString(content) > maxPostLength {
			return nil, apperrors.ErrInvalidContent
		}
		update.Content = &content
	}
	if update.Category != nil && !update.Category.Valid() {
		return nil, apperrors.ErrInvalidCategory
	}

	err := s.locked(ctx, "update_post", postID, func(ctx context.Context, tx repository.Store) error {
		post, err := tx.Posts().FindForUpdate(ctx, postID)
		if err != nil {
			return err
		}
		if post.AuthorID != actor.ID && !auth.Allowed(actor.Role, auth.OpContentModerate) {
			return apperrors.ErrForbidden
		}
		content, category := post.Content, post.Category
		if update.Content != nil {
			content = *update.Content
		}
		if update.Category != nil {
			category = *update.Category
		}
		return tx.Posts().UpdateContent(ctx, postID, content, category)
	})
	if err != nil {
		return nil, err
	}
	return s.GetPost(ctx, postID)
}

// DeletePost removes a post with its likes and comments. Only the author
// or a caller allowed to moderate content may delete.
func (s *ledgerService) DeletePost(ctx context.Context, postID uuid.UUID, actor *model.User) error {
	var authorID uuid.UUID
	err := s.locked(ctx, "delete_post", postID, func(ctx context.Context, tx repository.Store) error {
		post, err := tx.Posts().FindForUpdate(ctx, postID)
		if err != nil {
			return err
		}
		if post.AuthorID != actor.ID && !auth.Allowed(actor.Role, auth.OpContentModerate) {
			return apperrors.ErrForbidden
		}
		likes, err := tx.Posts().CountLikes(ctx, postID)
		if err != nil {
			return err
		}
		if err := tx.Posts().Delete(ctx, postID); err != nil {
			return err
		}
		authorID = post.AuthorID
		return tx.Users().UpdateCounters(ctx, post.AuthorID, model.CounterDelta{Posts: -1, Votes: -likes})
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, authorID)
	return nil
}

// Like adds userID to the post's like set and credits the author. A
// repeated like fails with ErrAlreadyLiked and changes nothing.
func (s *ledgerService) Like(ctx context.Context, postID, userID uuid.UUID) (int, error) {
	var count int64
	var authorID uuid.UUID
	err := s.locked(ctx, "like", postID, func(ctx context.Context, tx repository.Store) error {
		post, err := tx.Posts().FindForUpdate(ctx, postID)
		if err != nil {
			return err
		}
		if !s.opts.AllowSelfLike && post.AuthorID == userID {
			return apperrors.ErrSelfLike
		}
		if err := tx.Posts().AddLike(ctx, &model.PostLike{PostID: postID, UserID: userID, CreatedAt: s.now()}); err != nil {
			return err
		}
		if err := tx.Users().UpdateCounters(ctx, post.AuthorID, model.CounterDelta{Votes: 1}); err != nil {
			return err
		}
		authorID = post.AuthorID
		count, err = tx.Posts().CountLikes(ctx, postID)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, authorID)
	return int(count), nil
}

// Unlike removes userID from the like set and debits the author.
func (s *ledgerService) Unlike(ctx context.Context, postID, userID uuid.UUID) (int, error) {
	var count int64
	var authorID uuid.UUID
	err := s.locked(ctx, "unlike", postID, func(ctx context.Context, tx repository.Store) error {
		post, err := tx.Posts().FindForUpdate(ctx, postID)
		if err != nil {
			return err
		}
		if err := tx.Posts().RemoveLike(ctx, postID, userID); err != nil {
			return err
		}
		if err := tx.Users().UpdateCounters(ctx, post.AuthorID, model.CounterDelta{Votes: -1}); err != nil {
			return err
		}
		authorID = post.AuthorID
		count, err = tx.Posts().CountLikes(ctx, postID)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, authorID)
	return int(count), nil
}

// AddComment appends a comment and returns it with the new comment count.
func (s *ledgerService) AddComment(ctx context.Context, postID, userID uuid.UUID, text string) (*model.Comment, int, error) {
	text = strings.TrimSpace(text)
	if text == "" || utf8.RuneCountInString(text) > maxCommentLength {
		return nil, 0, apperrors.ErrEmptyText
	}

	comment := &model.Comment{PostID: postID, UserID: userID, Content: text, CreatedAt: s.now()}
	var count int64
	err := s.locked(ctx, "comment", postID, func(ctx context.Context, tx repository.Store) error {
		if _, err := tx.Posts().FindForUpdate(ctx, postID); err != nil {
			return err
		}
		if err := tx.Posts().AddComment(ctx, comment); err != nil {
			return err
		}
		var err error
		count, err = tx.Posts().CountComments(ctx, postID)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return comment, int(count), nil
}

func (s *ledgerService) ListComments(ctx context.Context, postID uuid.UUID, page Page) ([]model.Comment, int64, error) {
	page = page.Normalize()
	ctx, cancel := withTimeout(ctx, s.opts.Timeout)
	defer cancel()
	if _, err := s.store.Posts().FindByID(ctx, postID); err != nil {
		return nil, 0, err
	}
	return s.store.Posts().ListComments(ctx, postID, page.Offset(), page.Limit)
}

func (s *ledgerService) EngagementSummary(ctx context.Context, postID uuid.UUID) (*EngagementSummary, error) {
	ctx, cancel := withTimeout(ctx, s.opts.Timeout)
	defer cancel()
	post, err := s.store.Posts().FindByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	return &EngagementSummary{
		PostID:       post.ID,
		LikeCount:    post.LikeCount(),
		CommentCount: post.CommentCount(),
	}, nil
}

// ReportPost flags a post for moderation. Each user may report a post once.
func (s *ledgerService) ReportPost(ctx context.Context, postID, userID uuid.UUID, reason model.ReportReason, description string) error {
	if !reason.Valid() {
		return apperrors.ErrInvalidReason
	}
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) > maxCommentLength {
		return apperrors.ErrValidation
	}
	return s.locked(ctx, "report", postID, func(ctx context.Context, tx repository.Store) error {
		post, err := tx.Posts().FindForUpdate(ctx, postID)
		if err != nil {
			return err
		}
		report := &model.PostReport{PostID: postID, UserID: userID, Reason: reason, Description: description, CreatedAt: s.now()}
		if err := tx.Posts().AddReport(ctx, report); err != nil {
			return err
		}
		m := post.ModerationOf()
		m.IsReported = true
		return tx.Posts().UpdateModeration(ctx, postID, m)
	})
}

func (s *ledgerService) ListReported(ctx context.Context, page Page) ([]model.Post, int64, error) {
	page = page.Normalize()
	reported := true
	ctx, cancel := withTimeout(ctx, s.opts.Timeout)
	defer cancel()
	return s.store.Posts().List(ctx, repository.PostFilter{
		Reported: &reported,
		Offset:   page.Offset(),
		Limit:    page.Limit,
	})
}

// Moderate resolves reports on a post. Approve clears the report flag;
// reject hides the post from public listings.
func (s *ledgerService) Moderate(ctx context.Context, postID uuid.UUID, action model.ModerationAction, notes string) (*model.Post, error) {
	if action != model.ActionApprove && action != model.ActionReject {
		return nil, apperrors.ErrValidation
	}
	err := s.locked(ctx, "moderate", postID, func(ctx context.Context, tx repository.Store) error {
		post, err := tx.Posts().FindForUpdate(ctx, postID)
		if err != nil {
			return err
		}
		m := post.ModerationOf()
		m.IsModerated = true
		m.Notes = strings.TrimSpace(notes)
		switch action {
		case model.ActionApprove:
			m.IsReported = false
		case model.ActionReject:
			m.IsPublic = false
		}
		return tx.Posts().UpdateModeration(ctx, postID, m)
	})
	if err != nil {
		return nil, err
	}
	ctx, cancel := withTimeout(ctx, s.opts.Timeout)
	defer cancel()
	return s.store.Posts().FindByID(ctx, postID)
}
