package model

import (
	"time"

	"github.com/google/uuid"
)

// UserFollow records that FollowerID follows FolloweeID. The composite key
// allows one edge per pair.
type UserFollow struct {
	FollowerID uuid.UUID `json:"followerId" gorm:"type:char(36);primaryKey"`
	FolloweeID uuid.UUID `json:"followeeId" gorm:"type:char(36);primaryKey;index"`
	CreatedAt  time.Time `json:"createdAt" gorm:"index"`
}

// FollowCounts is the size of both sides of a user's follow graph.
type FollowCounts struct {
	Followers int64 `json:"followers"`
	Following int64 `json:"following"`
}
