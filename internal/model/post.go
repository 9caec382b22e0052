package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category tags a post with a topic.
type Category string

const (
	CategoryPolitics      Category = "Politics"
	CategoryEducation     Category = "Education"
	CategoryHealthcare    Category = "Healthcare"
	CategoryEconomy       Category = "Economy"
	CategoryEnvironment   Category = "Environment"
	CategoryTechnology    Category = "Technology"
	CategorySports        Category = "Sports"
	CategoryEntertainment Category = "Entertainment"
	CategoryGeneral       Category = "General"
)

// Categories lists every post category.
var Categories = []Category{
	CategoryPolitics, CategoryEducation, CategoryHealthcare, CategoryEconomy,
	CategoryEnvironment, CategoryTechnology, CategorySports, CategoryEntertainment,
	CategoryGeneral,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ReportReason explains why a post was reported.
type ReportReason string

const (
	ReasonSpam             ReportReason = "spam"
	ReasonInappropriate    ReportReason = "inappropriate"
	ReasonHarassment       ReportReason = "harassment"
	ReasonFalseInformation ReportReason = "false_information"
	ReasonOther            ReportReason = "other"
)

// Valid reports whether r is a known reason.
func (r ReportReason) Valid() bool {
	switch r {
	case ReasonSpam, ReasonInappropriate, ReasonHarassment, ReasonFalseInformation, ReasonOther:
		return true
	}
	return false
}

// ModerationAction is a moderator's verdict on a reported post.
type ModerationAction string

const (
	ActionApprove ModerationAction = "approve"
	ActionReject  ModerationAction = "reject"
)

// Post is authored content. It owns its likes, comments and reports.
type Post struct {
	ID              uuid.UUID    `json:"id" gorm:"type:char(36);primaryKey"`
	AuthorID        uuid.UUID    `json:"authorId" gorm:"type:char(36);not null;index"`
	Content         string       `json:"content" gorm:"size:2000;not null"`
	Category        Category     `json:"category" gorm:"size:32;not null;index"`
	IsPublic        bool         `json:"isPublic" gorm:"not null;index"`
	IsReported      bool         `json:"isReported" gorm:"not null;index"`
	IsModerated     bool         `json:"isModerated" gorm:"not null"`
	ModerationNotes string       `json:"moderationNotes,omitempty" gorm:"size:500"`
	Likes           []PostLike   `json:"likes" gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
	Comments        []Comment    `json:"comments" gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
	Reports         []PostReport `json:"reports,omitempty" gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time    `json:"createdAt" gorm:"index"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// BeforeCreate sets UUID before creating the record.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// LikeCount is derived from the like set.
func (p *Post) LikeCount() int {
	return len(p.Likes)
}

// CommentCount is derived from the comment list.
func (p *Post) CommentCount() int {
	return len(p.Comments)
}

// LikedBy reports whether userID is in the like set.
func (p *Post) LikedBy(userID uuid.UUID) bool {
	for _, l := range p.Likes {
		if l.UserID == userID {
			return true
		}
	}
	return false
}

// PostUpdate carries the author-editable fields of a post. Nil leaves a field unchanged.
type PostUpdate struct {
	Content  *string
	Category *Category
}

// Moderation holds the moderation flags of a post.
type Moderation struct {
	IsPublic    bool
	IsReported  bool
	IsModerated bool
	Notes       string
}

// ModerationOf extracts the current moderation flags.
func (p *Post) ModerationOf() Moderation {
	return Moderation{
		IsPublic:    p.IsPublic,
		IsReported:  p.IsReported,
		IsModerated: p.IsModerated,
		Notes:       p.ModerationNotes,
	}
}

// PostLike records a single user's like. The composite key allows one per user.
type PostLike struct {
	PostID    uuid.UUID `json:"-" gorm:"type:char(36);primaryKey"`
	UserID    uuid.UUID `json:"userId" gorm:"type:char(36);primaryKey"`
	CreatedAt time.Time `json:"createdAt" gorm:"index"`
}

// Comment is appended to a post. ID order is insertion order.
type Comment struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	PostID    uuid.UUID `json:"postId" gorm:"type:char(36);not null;index"`
	UserID    uuid.UUID `json:"userId" gorm:"type:char(36);not null;index"`
	Content   string    `json:"content" gorm:"size:500;not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"index"`
}

// PostReport is one user's report of a post.
type PostReport struct {
	PostID      uuid.UUID    `json:"-" gorm:"type:char(36);primaryKey"`
	UserID      uuid.UUID    `json:"userId" gorm:"type:char(36);primaryKey"`
	Reason      ReportReason `json:"reason" gorm:"size:32;not null"`
	Description string       `json:"description,omitempty" gorm:"size:500"`
	CreatedAt   time.Time    `json:"createdAt"`
}
