// doctalk/models/models.go
package models

import (
	"time"
)

// --- Core Data Models ---

// User is the full user row. The password hash and active flag never leave
// the server; everything else is the public projection returned by the API.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	DisplayName  string     `json:"display_name"`
	AvatarIcon   string     `json:"avatar_icon"`
	AvatarPath   *string    `json:"avatar_path,omitempty"`
	IsAdmin      bool       `json:"is_admin"`
	AdminBadge   *string    `json:"admin_badge"`
	ProfileBio   string     `json:"profile_bio,omitempty"`
	IsActive     bool       `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

type Session struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}

// Section is a commentable part of the document site, identified by the
// (type, category, subject) triple. Subject is nil for category-wide
// sections.
type Section struct {
	ID          int64   `json:"id"`
	SectionType string  `json:"section_type"`
	Category    string  `json:"section_category"`
	Subject     *string `json:"section_subject"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	IsActive    bool    `json:"is_active"`
}

// Comment carries the author projection from the join with users. Replies
// and Reactions are filled in after the flat fetch.
type Comment struct {
	ID             int64          `json:"id"`
	UserID         int64          `json:"user_id"`
	SectionID      int64          `json:"-"`
	ParentID       *int64         `json:"parent_comment_id"`
	Content        string         `json:"content"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	IsEdited       bool           `json:"is_edited"`
	Username       string         `json:"username"`
	DisplayName    string         `json:"display_name"`
	AvatarIcon     string         `json:"avatar_icon"`
	AvatarPath     *string        `json:"avatar_path,omitempty"`
	AdminBadge     *string        `json:"admin_badge"`
	TotalReactions int            `json:"total_reactions"`
	Reactions      map[string]int `json:"reactions"`
	UserReaction   string         `json:"user_reaction,omitempty"`
	Replies        []Comment      `json:"replies"`
}

type AvatarIcon struct {
	IconName  string `json:"icon_name"`
	IconEmoji string `json:"icon_emoji"`
	Category  string `json:"category"`
}

// AdminAction is one row of the append-only moderation audit log.
type AdminAction struct {
	ID              int64     `json:"id"`
	AdminUserID     int64     `json:"admin_user_id"`
	AdminUsername   string    `json:"admin_username"`
	ActionType      string    `json:"action_type"`
	TargetUserID    *int64    `json:"target_user_id"`
	TargetCommentID *int64    `json:"target_comment_id"`
	Reason          string    `json:"reason"`
	CreatedAt       time.Time `json:"created_at"`
}

// --- Statistics ---

type CommentStats struct {
	TotalComments int `json:"total_comments"`
	UniqueUsers   int `json:"unique_users"`
}

type ReactionStats struct {
	TotalReactions int `json:"total_reactions"`
	UniqueReactors int `json:"unique_reactors"`
}

// SectionStats combines independently computed reaction and comment totals.
type SectionStats struct {
	Reactions ReactionStats `json:"reactions"`
	Comments  struct {
		TotalComments    int `json:"total_comments"`
		UniqueCommenters int `json:"unique_commenters"`
	} `json:"comments"`
}

type PopularReaction struct {
	SectionType   string  `json:"section_type"`
	Category      string  `json:"section_category"`
	Subject       *string `json:"section_subject"`
	Title         string  `json:"title"`
	ReactionType  string  `json:"reaction_type"`
	ReactionCount int     `json:"reaction_count"`
}
