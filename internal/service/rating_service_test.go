package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "civicvoice/internal/errors"
	"civicvoice/internal/model"
	"civicvoice/internal/repository"
)

func TestRatingService_SubmitValidation(t *testing.T) {
	svc := NewRatingService(repository.NewMemoryStore().Ratings(), 0)
	ctx := context.Background()

	tests := []struct {
		name     string
		category model.RatingCategory
		score    string
		wantErr  error
	}{
		{"unknown category", "sports", "3", apperrors.ErrInvalidCategory},
		{"negative", "economy", "-0.5", apperrors.ErrInvalidScore},
		{"too high", "economy", "5.01", apperrors.ErrInvalidScore},
		{"lower bound", "economy", "0", nil},
		{"upper bound", "education", "5", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(ctx, nil, tt.category, decimal.RequireFromString(tt.score))
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRatingService_ResubmitReplaces(t *testing.T) {
	svc := NewRatingService(repository.NewMemoryStore().Ratings(), 0)
	ctx := context.Background()
	author := uuid.New()

	first, err := svc.Submit(ctx, &author, "healthcare", decimal.RequireFromString("2.456"))
	require.NoError(t, err)
	assert.Equal(t, "2.46", first.Score.StringFixed(2))

	second, err := svc.Submit(ctx, &author, "healthcare", decimal.NewFromInt(4))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	mine, err := svc.ForAuthor(ctx, author)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.True(t, decimal.NewFromInt(4).Equal(mine[0].Score))
}

func TestRatingService_Summary(t *testing.T) {
	svc := NewRatingService(repository.NewMemoryStore().Ratings(), 0)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	_, err := svc.Submit(ctx, &a, "economy", decimal.NewFromInt(1))
	require.NoError(t, err)
	_, err = svc.Submit(ctx, &b, "economy", decimal.NewFromInt(2))
	require.NoError(t, err)
	_, err = svc.Submit(ctx, nil, "economy", decimal.NewFromInt(2))
	require.NoError(t, err)

	summary, err := svc.Summary(ctx)
	require.NoError(t, err)
	require.Len(t, summary, len(model.RatingCategories))
	assert.Equal(t, model.RatingCategory("economy"), summary[0].Category)
	assert.Equal(t, int64(3), summary[0].Count)
	assert.Equal(t, "1.67", summary[0].Average.StringFixed(2))
	assert.NotNil(t, summary[0].LastUpdated)

	assert.Equal(t, model.RatingCategory("education"), summary[1].Category)
	assert.Equal(t, int64(0), summary[1].Count)
	assert.True(t, summary[1].Average.IsZero())
	assert.Nil(t, summary[1].LastUpdated)
}
