package repository

import (
	"context"

	"inkfeed/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RelationshipRepository answers bulk viewer-relationship lookups and
// maintains the follow graph.
type RelationshipRepository interface {
	LikedPostIDs(ctx context.Context, userID uint, postIDs []string) ([]string, error)
	SavedPostIDs(ctx context.Context, userID uint, postIDs []string) ([]string, error)
	// FollowedAmong returns the subset of authorIDs that followerID follows.
	FollowedAmong(ctx context.Context, followerID uint, authorIDs []uint) ([]uint, error)
	FollowingIDs(ctx context.Context, followerID uint) ([]uint, error)
	Follow(ctx context.Context, followerID, followingID uint) error
	Unfollow(ctx context.Context, followerID, followingID uint) error
}

type relationshipRepository struct {
	db *gorm.DB
}

// NewRelationshipRepository creates a new relationship repository
func NewRelationshipRepository(db *gorm.DB) RelationshipRepository {
	return &relationshipRepository{db: db}
}

func (r *relationshipRepository) LikedPostIDs(ctx context.Context, userID uint, postIDs []string) ([]string, error) {
	return r.pluckPostIDs(ctx, &models.Like{}, userID, postIDs)
}

func (r *relationshipRepository) SavedPostIDs(ctx context.Context, userID uint, postIDs []string) ([]string, error) {
	return r.pluckPostIDs(ctx, &models.SavedPost{}, userID, postIDs)
}

func (r *relationshipRepository) pluckPostIDs(ctx context.Context, model any, userID uint, postIDs []string) ([]string, error) {
	if len(postIDs) == 0 {
		return []string{}, nil
	}
	var ids []string
	err := r.db.WithContext(ctx).Model(model).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error
	return ids, err
}

func (r *relationshipRepository) FollowedAmong(ctx context.Context, followerID uint, authorIDs []uint) ([]uint, error) {
	if len(authorIDs) == 0 {
		return []uint{}, nil
	}
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND following_id IN ?", followerID, authorIDs).
		Pluck("following_id", &ids).Error
	return ids, err
}

func (r *relationshipRepository) FollowingIDs(ctx context.Context, followerID uint) ([]uint, error) {
	ids := []uint{}
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ?", followerID).
		Order("following_id").
		Pluck("following_id", &ids).Error
	return ids, err
}

// Follow is idempotent.
func (r *relationshipRepository) Follow(ctx context.Context, followerID, followingID uint) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "follower_id"}, {Name: "following_id"}},
			DoNothing: true,
		}).
		Create(&models.Follow{FollowerID: followerID, FollowingID: followingID}).Error
}

func (r *relationshipRepository) Unfollow(ctx context.Context, followerID, followingID uint) error {
	return r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&models.Follow{}).Error
}
