package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"civicvoice/internal/model"
)

// RatingRepository defines rating persistence operations.
type RatingRepository interface {
	// Upsert stores the rating, replacing the score of an existing
	// rating by the same author for the same category.
	Upsert(ctx context.Context, rating *model.Rating) error
	FindByAuthor(ctx context.Context, authorID uuid.UUID) ([]model.Rating, error)
	Summary(ctx context.Context) ([]model.RatingSummary, error)
}

type ratingRepository struct {
	db *gorm.DB
}

// NewRatingRepository creates a new rating repository.
func NewRatingRepository(db *gorm.DB) RatingRepository {
	return &ratingRepository{db: db}
}

func (r *ratingRepository) Upsert(ctx context.Context, rating *model.Rating) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "author_id"}, {Name: "category"}},
		DoUpdates: clause.AssignmentColumns([]string{"score", "updated_at"}),
	}).Create(rating).Error
	if err != nil || rating.AuthorID == nil {
		return err
	}
	// the row kept on conflict has the original id
	var stored model.Rating
	if err := r.db.WithContext(ctx).
		Where("author_id = ? AND category = ?", *rating.AuthorID, rating.Category).
		First(&stored).Error; err != nil {
		return err
	}
	*rating = stored
	return nil
}

func (r *ratingRepository) FindByAuthor(ctx context.Context, authorID uuid.UUID) ([]model.Rating, error) {
	var ratings []model.Rating
	if err := r.db.WithContext(ctx).Where("author_id = ?", authorID).Order("category ASC").Find(&ratings).Error; err != nil {
		return nil, err
	}
	return ratings, nil
}

func (r *ratingRepository) Summary(ctx context.Context) ([]model.RatingSummary, error) {
	var rows []model.RatingSummary
	err := r.db.WithContext(ctx).Model(&model.Rating{}).
		Select("category, AVG(score) AS average, COUNT(*) AS count, MAX(updated_at) AS last_updated").
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
