package models

import "time"

// InteractionKind selects which join table and counter a toggle targets.
type InteractionKind string

const (
	InteractionLike InteractionKind = "like"
	InteractionSave InteractionKind = "save"
)

// Valid reports whether k is a supported interaction kind.
func (k InteractionKind) Valid() bool {
	return k == InteractionLike || k == InteractionSave
}

// Like represents a user's like on a post.
// The combination of UserID and PostID must be unique; unliking deletes the row.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_like_user_post" json:"user_id"`
	PostID    string    `gorm:"type:varchar(26);not null;uniqueIndex:idx_like_user_post;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// SavedPost represents a bookmarked post. Same existence semantics as Like.
type SavedPost struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_saved_user_post" json:"user_id"`
	PostID    string    `gorm:"type:varchar(26);not null;uniqueIndex:idx_saved_user_post;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (SavedPost) TableName() string {
	return "saved_posts"
}

// ToggleResult is the state of an interaction after a toggle.
type ToggleResult struct {
	Active bool `json:"active"`
	Count  int  `json:"count"`
}
