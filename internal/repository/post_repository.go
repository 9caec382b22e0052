package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "civicvoice/internal/errors"
	"civicvoice/internal/model"
)

// PostRepository defines post persistence operations. Likes, comments
// and reports are rows owned by their post.
type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	// FindByID loads the post with its likes and comments.
	FindByID(ctx context.Context, id uuid.UUID) (*model.Post, error)
	// FindForUpdate loads the bare post row and locks it until the
	// surrounding transaction ends.
	FindForUpdate(ctx context.Context, id uuid.UUID) (*model.Post, error)
	List(ctx context.Context, filter PostFilter) ([]model.Post, int64, error)
	All(ctx context.Context) ([]model.Post, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// UpdateContent replaces the content and category of a post.
	UpdateContent(ctx context.Context, id uuid.UUID, content string, category model.Category) error
	AddLike(ctx context.Context, like *model.PostLike) error
	RemoveLike(ctx context.Context, postID, userID uuid.UUID) error
	CountLikes(ctx context.Context, postID uuid.UUID) (int64, error)
	AddComment(ctx context.Context, comment *model.Comment) error
	CountComments(ctx context.Context, postID uuid.UUID) (int64, error)
	// ListComments returns comments newest first.
	ListComments(ctx context.Context, postID uuid.UUID, offset, limit int) ([]model.Comment, int64, error)
	AddReport(ctx context.Context, report *model.PostReport) error
	UpdateModeration(ctx context.Context, id uuid.UUID, m model.Moderation) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error
}

func (r *postRepository) withChildren(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Likes", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })
}

func (r *postRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Post, error) {
	var post model.Post
	if err := r.withChildren(r.db.WithContext(ctx)).Where("id = ?", id).First(&post).Error; err != nil {
		return nil, notFound(err, apperrors.ErrPostNotFound)
	}
	return &post, nil
}

func (r *postRepository) FindForUpdate(ctx context.Context, id uuid.UUID) (*model.Post, error) {
	var post model.Post
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&post).Error; err != nil {
		return nil, notFound(err, apperrors.ErrPostNotFound)
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, filter PostFilter) ([]model.Post, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Post{})
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.AuthorID != uuid.Nil {
		q = q.Where("author_id = ?", filter.AuthorID)
	}
	if filter.PublicOnly {
		q = q.Where("is_public = ?", true)
	}
	if filter.Reported != nil {
		q = q.Where("is_reported = ?", *filter.Reported)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var posts []model.Post
	err := r.withChildren(q).
		Order("created_at DESC").
		Offset(filter.Offset).
		Limit(limitOrAll(filter.Limit)).
		Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *postRepository) All(ctx context.Context) ([]model.Post, error) {
	var posts []model.Post
	if err := r.withChildren(r.db.WithContext(ctx)).Order("created_at ASC").Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	for _, child := range []interface{}{&model.PostLike{}, &model.Comment{}, &model.PostReport{}} {
		if err := db.Where("post_id = ?", id).Delete(child).Error; err != nil {
			return err
		}
	}
	res := db.Where("id = ?", id).Delete(&model.Post{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrPostNotFound
	}
	return nil
}

func (r *postRepository) UpdateContent(ctx context.Context, id uuid.UUID, content string, category model.Category) error {
	res := r.db.WithContext(ctx).Model(&model.Post{}).Where("id = ?", id).Updates(map[string]interface{}{
		"content":  content,
		"category": category,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		_, err := r.FindForUpdate(ctx, id)
		return err
	}
	return nil
}

func (r *postRepository) AddLike(ctx context.Context, like *model.PostLike) error {
	err := r.db.WithContext(ctx).Create(like).Error
	if dup, _ := isDuplicate(err); dup {
		return apperrors.ErrAlreadyLiked
	}
	return err
}

func (r *postRepository) RemoveLike(ctx context.Context, postID, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&model.PostLike{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotLiked
	}
	return nil
}

func (r *postRepository) CountLikes(ctx context.Context, postID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.PostLike{}).Where("post_id = ?", postID).Count(&n).Error
	return n, err
}

func (r *postRepository) AddComment(ctx context.Context, comment *model.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *postRepository) CountComments(ctx context.Context, postID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Comment{}).Where("post_id = ?", postID).Count(&n).Error
	return n, err
}

func (r *postRepository) ListComments(ctx context.Context, postID uuid.UUID, offset, limit int) ([]model.Comment, int64, error) {
	total, err := r.CountComments(ctx, postID)
	if err != nil {
		return nil, 0, err
	}
	var comments []model.Comment
	err = r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("id DESC").
		Offset(offset).
		Limit(limitOrAll(limit)).
		Find(&comments).Error
	if err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}

func (r *postRepository) AddReport(ctx context.Context, report *model.PostReport) error {
	err := r.db.WithContext(ctx).Create(report).Error
	if dup, _ := isDuplicate(err); dup {
		return apperrors.ErrAlreadyReported
	}
	return err
}

func (r *postRepository) UpdateModeration(ctx context.Context, id uuid.UUID, m model.Moderation) error {
	res := r.db.WithContext(ctx).Model(&model.Post{}).Where("id = ?", id).Updates(map[string]interface{}{
		"is_public":        m.IsPublic,
		"is_reported":      m.IsReported,
		"is_moderated":     m.IsModerated,
		"moderation_notes": m.Notes,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		_, err := r.FindForUpdate(ctx, id)
		return err
	}
	return nil
}
