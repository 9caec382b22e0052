package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RatingCategory is an area of government performance.
type RatingCategory string

// RatingCategories lists every rating category in display order.
var RatingCategories = []RatingCategory{
	"economy", "education", "healthcare", "infrastructure", "security",
	"environment", "governance", "social_welfare", "energy", "food_security",
}

// Valid reports whether c is a known rating category.
func (c RatingCategory) Valid() bool {
	for _, known := range RatingCategories {
		if c == known {
			return true
		}
	}
	return false
}

var (
	// MinScore and MaxScore bound a rating score.
	MinScore = decimal.Zero
	MaxScore = decimal.NewFromInt(5)
)

// Rating is a score for one category. An author holds at most one rating per category.
type Rating struct {
	ID        uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	AuthorID  *uuid.UUID      `json:"authorId,omitempty" gorm:"type:char(36);uniqueIndex:idx_rating_author_category"`
	Category  RatingCategory  `json:"category" gorm:"size:32;not null;uniqueIndex:idx_rating_author_category"`
	Score     decimal.Decimal `json:"score" gorm:"type:decimal(3,2);not null"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"lastUpdated"`
}

// BeforeCreate sets UUID before creating the record.
func (r *Rating) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// RatingSummary aggregates all ratings of one category.
type RatingSummary struct {
	Category    RatingCategory  `json:"category"`
	Average     decimal.Decimal `json:"average"`
	Count       int64           `json:"count"`
	LastUpdated *time.Time      `json:"lastUpdated,omitempty"`
}
