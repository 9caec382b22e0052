package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is a user's capability tier. Roles are not ordered.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// Roles lists every role in display order.
var Roles = []Role{RoleUser, RoleModerator, RoleAdmin}

// Interests a user may pick on their profile.
var Interests = []string{
	"Politics", "Education", "Healthcare", "Economy",
	"Environment", "Technology", "Sports", "Entertainment",
}

// ValidInterest reports whether tag is one of Interests.
func ValidInterest(tag string) bool {
	for _, i := range Interests {
		if i == tag {
			return true
		}
	}
	return false
}

// Tags is a string set persisted as a JSON text column.
type Tags []string

// Value implements driver.Valuer.
func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (t *Tags) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*t = Tags{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("tags: unsupported scan type %T", src)
	}
	if len(raw) == 0 {
		*t = Tags{}
		return nil
	}
	return json.Unmarshal(raw, (*[]string)(t))
}

// User is a registered member of the platform.
type User struct {
	ID               uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	Email            string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	Username         string     `json:"username" gorm:"uniqueIndex;size:50;not null"`
	PasswordHash     string     `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	FullName         string     `json:"fullName" gorm:"size:255;not null"`
	Bio              string     `json:"bio" gorm:"size:500"`
	Interests        Tags       `json:"interests" gorm:"type:text"`
	Role             Role       `json:"role" gorm:"size:20;not null;index"`
	IsVerified       bool       `json:"isVerified" gorm:"not null"`
	IsActive         bool       `json:"isActive" gorm:"not null;index"`
	SuspensionReason string     `json:"suspensionReason,omitempty" gorm:"size:500"`
	TotalPosts       int64      `json:"totalPosts" gorm:"not null"`
	TotalVotes       int64      `json:"totalVotes" gorm:"not null"`
	LastActiveAt     *time.Time `json:"lastActive,omitempty"`
	CreatedAt        time.Time  `json:"createdAt" gorm:"index"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// BeforeCreate sets UUID before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// NormalizeIdentity lower-cases and trims the email and username.
func NormalizeIdentity(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ProfileUpdate carries the user-editable profile fields. Nil leaves a field unchanged.
type ProfileUpdate struct {
	FullName  *string
	Bio       *string
	Interests Tags
}

// CounterDelta is a signed change to a user's aggregate counters.
type CounterDelta struct {
	Posts int64
	Votes int64
}

// IsZero reports whether the delta changes nothing.
func (d CounterDelta) IsZero() bool {
	return d.Posts == 0 && d.Votes == 0
}
