package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"

	"inkfeed/internal/cursor"
	"inkfeed/internal/models"

	"gorm.io/gorm"
)

// PostFilter narrows a feed. The public/published base filter is always applied.
type PostFilter struct {
	Type     string
	Style    string
	BodyPart string
	Location string
	// Featured is tri-state: nil means no constraint.
	Featured *bool
	// AuthorIDs restricts results to these authors when non-nil. A non-nil
	// empty slice matches nothing.
	AuthorIDs       []uint
	ExcludeAuthorID uint
}

// Fingerprint returns a stable key identifying the filter, for count caching.
func (f PostFilter) Fingerprint() string {
	var b strings.Builder
	fmt.Fprintf(&b, "t=%s|s=%s|b=%s|l=%s|", f.Type, f.Style, f.BodyPart, f.Location)
	if f.Featured != nil {
		fmt.Fprintf(&b, "f=%t|", *f.Featured)
	}
	if f.AuthorIDs != nil {
		ids := slices.Clone(f.AuthorIDs)
		slices.Sort(ids)
		fmt.Fprintf(&b, "a=%v|", ids)
	}
	fmt.Fprintf(&b, "x=%d", f.ExcludeAuthorID)
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:12])
}

func (f PostFilter) apply(db *gorm.DB) *gorm.DB {
	db = db.Where("posts.visibility = ? AND posts.status = ?", models.VisibilityPublic, models.PostStatusPublished)
	if f.Type != "" {
		db = db.Where("posts.type = ?", f.Type)
	}
	if f.Style != "" {
		db = db.Where("posts.style = ?", f.Style)
	}
	if f.BodyPart != "" {
		db = db.Where("posts.body_part = ?", f.BodyPart)
	}
	if f.Location != "" {
		db = db.Where("posts.location = ?", f.Location)
	}
	if f.Featured != nil {
		db = db.Where("posts.featured = ?", *f.Featured)
	}
	if f.AuthorIDs != nil {
		if len(f.AuthorIDs) == 0 {
			db = db.Where("1 = 0")
		} else {
			db = db.Where("posts.user_id IN ?", f.AuthorIDs)
		}
	}
	if f.ExcludeAuthorID != 0 {
		db = db.Where("posts.user_id <> ?", f.ExcludeAuthorID)
	}
	return db
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	Delete(ctx context.Context, id string) error
	// ListRecent returns up to n posts in (created_at DESC, id DESC) order,
	// strictly after the cursor when one is given.
	ListRecent(ctx context.Context, filter PostFilter, after *cursor.Cursor, n int) ([]*models.Post, error)
	ListRanked(ctx context.Context, filter PostFilter, sort models.SortMode, offset, limit int) ([]*models.Post, error)
	Count(ctx context.Context, filter PostFilter) (int64, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("posts.id = ?", id).
		Take(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Post{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrPostNotFound
	}
	return nil
}

func (r *postRepository) ListRecent(ctx context.Context, filter PostFilter, after *cursor.Cursor, n int) ([]*models.Post, error) {
	q := filter.apply(r.db.WithContext(ctx).Model(&models.Post{}).Preload("Author"))
	if after != nil {
		sql, args := after.Predicate("posts")
		q = q.Where("("+sql+")", args...)
	}
	var posts []*models.Post
	err := q.Order("posts.created_at DESC").
		Order("posts.id DESC").
		Limit(n).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) ListRanked(ctx context.Context, filter PostFilter, sort models.SortMode, offset, limit int) ([]*models.Post, error) {
	col, err := rankColumn(sort)
	if err != nil {
		return nil, err
	}
	var posts []*models.Post
	err = filter.apply(r.db.WithContext(ctx).Model(&models.Post{}).Preload("Author")).
		Order("posts." + col + " DESC").
		Order("posts.created_at DESC").
		Order("posts.id DESC").
		Offset(offset).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) Count(ctx context.Context, filter PostFilter) (int64, error) {
	var n int64
	err := filter.apply(r.db.WithContext(ctx).Model(&models.Post{})).Count(&n).Error
	return n, err
}

// rankColumn whitelists the counter column for a ranked sort.
func rankColumn(sort models.SortMode) (string, error) {
	switch sort {
	case models.SortPopular:
		return "likes_count", nil
	case models.SortViews:
		return "views_count", nil
	case models.SortComments:
		return "comments_count", nil
	}
	return "", fmt.Errorf("sort %q is not a ranked mode", sort)
}
