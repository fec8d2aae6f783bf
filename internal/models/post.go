// Package models contains data structures for the application's domain models.
package models

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// PostStatus is the publication state of a post.
type PostStatus string

const (
	PostStatusPublished PostStatus = "published"
	PostStatusDraft     PostStatus = "draft"
	PostStatusArchived  PostStatus = "archived"
)

// Visibility values for posts.
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// Post represents a piece of work shared to the feed.
//
// LikesCount and SavesCount are denormalized from the likes and saved_posts
// tables and are only ever changed inside the interaction store's locked
// scope.
type Post struct {
	ID         string     `gorm:"primaryKey;type:varchar(26);index:idx_posts_feed,priority:2,sort:desc" json:"id"`
	UserID     uint       `gorm:"not null;index" json:"user_id"`
	Author     *User      `gorm:"foreignKey:UserID" json:"author,omitempty"`
	Caption    string     `gorm:"type:text" json:"caption"`
	ImageURL   string     `json:"image_url,omitempty"`
	ImageKey   string     `json:"-"`
	Visibility string     `gorm:"type:varchar(16);not null;default:'public';index" json:"visibility"`
	Status     PostStatus `gorm:"type:varchar(16);not null;default:'published';index" json:"status"`

	Type     string `gorm:"type:varchar(32);index" json:"type,omitempty"`
	Style    string `gorm:"type:varchar(64);index" json:"style,omitempty"`
	BodyPart string `gorm:"type:varchar(64);index" json:"body_part,omitempty"`
	Location string `gorm:"type:varchar(128);index" json:"location,omitempty"`
	Featured bool   `gorm:"not null;default:false;index" json:"featured"`

	LikesCount    int `gorm:"not null;default:0" json:"likes_count"`
	CommentsCount int `gorm:"not null;default:0" json:"comments_count"`
	ViewsCount    int `gorm:"not null;default:0" json:"views_count"`
	SavesCount    int `gorm:"not null;default:0" json:"saves_count"`

	// CreatedAt is written once on insert and never updated.
	CreatedAt time.Time      `gorm:"<-:create;not null;index:idx_posts_feed,priority:1,sort:desc" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns a ULID so ids sort in creation order within the same timestamp.
func (p *Post) BeforeCreate(_ *gorm.DB) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.ID == "" {
		p.ID = NewPostID(p.CreatedAt)
	}
	if p.Visibility == "" {
		p.Visibility = VisibilityPublic
	}
	if p.Status == "" {
		p.Status = PostStatusPublished
	}
	return nil
}

// NewPostID returns a ULID string whose time component is t.
func NewPostID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()
}
