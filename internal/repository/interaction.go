package repository

import (
	"context"
	"errors"
	"fmt"

	"inkfeed/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InteractionStore flips a user's like or save on a post and keeps the
// post's denormalized counter in step with the join table.
type InteractionStore interface {
	// Toggle runs as one atomic scope. It returns ErrPostNotFound when the
	// post is missing and a conflict (see IsConflict) on lock contention.
	Toggle(ctx context.Context, kind models.InteractionKind, userID uint, postID string) (models.ToggleResult, error)
}

type interactionTarget struct {
	table   string
	counter string
	row     func(userID uint, postID string) any
	model   any
}

func targetFor(kind models.InteractionKind) (interactionTarget, error) {
	switch kind {
	case models.InteractionLike:
		return interactionTarget{
			table:   "likes",
			counter: "likes_count",
			row: func(userID uint, postID string) any {
				return &models.Like{UserID: userID, PostID: postID}
			},
			model: &models.Like{},
		}, nil
	case models.InteractionSave:
		return interactionTarget{
			table:   "saved_posts",
			counter: "saves_count",
			row: func(userID uint, postID string) any {
				return &models.SavedPost{UserID: userID, PostID: postID}
			},
			model: &models.SavedPost{},
		}, nil
	}
	return interactionTarget{}, fmt.Errorf("unsupported interaction kind %q", kind)
}

type interactionStore struct {
	db *gorm.DB
}

// NewInteractionStore creates the GORM-backed interaction store.
func NewInteractionStore(db *gorm.DB) InteractionStore {
	return &interactionStore{db: db}
}

func (s *interactionStore) Toggle(ctx context.Context, kind models.InteractionKind, userID uint, postID string) (models.ToggleResult, error) {
	target, err := targetFor(kind)
	if err != nil {
		return models.ToggleResult{}, err
	}

	var result models.ToggleResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The row lock serializes every toggle on this post until commit.
		var post models.Post
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "likes_count", "saves_count").
			Where("id = ?", postID).
			Take(&post).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPostNotFound
		}
		if err != nil {
			return err
		}
		current := post.LikesCount
		if kind == models.InteractionSave {
			current = post.SavesCount
		}

		var existing int64
		if err := tx.Table(target.table).
			Where("user_id = ? AND post_id = ?", userID, postID).
			Count(&existing).Error; err != nil {
			return err
		}

		if existing > 0 {
			if err := tx.Where("user_id = ? AND post_id = ?", userID, postID).
				Delete(target.model).Error; err != nil {
				return err
			}
			decrement := gorm.Expr(fmt.Sprintf("CASE WHEN %[1]s > 0 THEN %[1]s - 1 ELSE 0 END", target.counter))
			if err := tx.Model(&models.Post{}).Where("id = ?", postID).
				UpdateColumn(target.counter, decrement).Error; err != nil {
				return err
			}
			result = models.ToggleResult{Active: false, Count: max(current-1, 0)}
			return nil
		}

		if err := tx.Create(target.row(userID, postID)).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Post{}).Where("id = ?", postID).
			UpdateColumn(target.counter, gorm.Expr(target.counter+" + 1")).Error; err != nil {
			return err
		}
		result = models.ToggleResult{Active: true, Count: current + 1}
		return nil
	})
	if err != nil {
		return models.ToggleResult{}, err
	}
	return result, nil
}
