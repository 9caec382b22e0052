package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "civicvoice/internal/errors"
	"civicvoice/internal/model"
	"civicvoice/internal/repository"
)

// RatingService records government-performance ratings. Ratings are
// independent of post and user counters.
type RatingService interface {
	Submit(ctx context.Context, authorID *uuid.UUID, category model.RatingCategory, score decimal.Decimal) (*model.Rating, error)
	Summary(ctx context.Context) ([]model.RatingSummary, error)
	ForAuthor(ctx context.Context, authorID uuid.UUID) ([]model.Rating, error)
}

type ratingService struct {
	ratings repository.RatingRepository
	timeout time.Duration
	now     func() time.Time
}

// NewRatingService creates a rating service.
func NewRatingService(ratings repository.RatingRepository, timeout time.Duration) RatingService {
	return &ratingService{ratings: ratings, timeout: timeout, now: time.Now}
}

// Submit stores a score rounded to two decimals. An author re-rating a
// category replaces their previous score.
func (s *ratingService) Submit(ctx context.Context, authorID *uuid.UUID, category model.RatingCategory, score decimal.Decimal) (*model.Rating, error) {
	if !category.Valid() {
		return nil, apperrors.ErrInvalidCategory
	}
	if score.LessThan(model.MinScore) || score.GreaterThan(model.MaxScore) {
		return nil, apperrors.ErrInvalidScore
	}

	now := s.now()
	rating := &model.Rating{
		ID:        uuid.New(),
		AuthorID:  authorID,
		Category:  category,
		Score:     score.Round(2),
		CreatedAt: now,
		UpdatedAt: now,
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.ratings.Upsert(ctx, rating); err != nil {
		return nil, err
	}
	return rating, nil
}

// Summary returns one entry per rating category in display order,
// including categories nobody has rated yet.
func (s *ratingService) Summary(ctx context.Context) ([]model.RatingSummary, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	rows, err := s.ratings.Summary(ctx)
	if err != nil {
		return nil, err
	}
	byCategory := make(map[model.RatingCategory]model.RatingSummary, len(rows))
	for _, r := range rows {
		byCategory[r.Category] = r
	}

	out := make([]model.RatingSummary, 0, len(model.RatingCategories))
	for _, c := range model.RatingCategories {
		row, ok := byCategory[c]
		if !ok {
			row = model.RatingSummary{Category: c, Average: decimal.Zero}
		}
		row.Average = row.Average.Round(2)
		out = append(out, row)
	}
	return out, nil
}

// ForAuthor lists the ratings an author has submitted, ordered by category.
func (s *ratingService) ForAuthor(ctx context.Context, authorID uuid.UUID) ([]model.Rating, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	ratings, err := s.ratings.FindByAuthor(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if ratings == nil {
		ratings = []model.Rating{}
	}
	return ratings, nil
}
