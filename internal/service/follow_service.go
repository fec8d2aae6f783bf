package service

import (
	"context"
	"errors"

	"inkfeed/internal/cache"
	"inkfeed/internal/models"
	"inkfeed/internal/observability"
	"inkfeed/internal/repository"
)

// FollowService maintains the follow graph behind the following feed.
type FollowService struct {
	users repository.UserRepository
	rels  repository.RelationshipRepository
	cache cache.Store
}

func NewFollowService(users repository.UserRepository, rels repository.RelationshipRepository, store cache.Store) *FollowService {
	return &FollowService{users: users, rels: rels, cache: store}
}

func (s *FollowService) Follow(ctx context.Context, followerID, targetID uint) error {
	if err := s.validate(ctx, followerID, targetID); err != nil {
		return err
	}
	if err := s.rels.Follow(ctx, followerID, targetID); err != nil {
		return models.NewInternalError(err)
	}
	s.invalidate(ctx, followerID)
	return nil
}

func (s *FollowService) Unfollow(ctx context.Context, followerID, targetID uint) error {
	if err := s.validate(ctx, followerID, targetID); err != nil {
		return err
	}
	if err := s.rels.Unfollow(ctx, followerID, targetID); err != nil {
		return models.NewInternalError(err)
	}
	s.invalidate(ctx, followerID)
	return nil
}

func (s *FollowService) validate(ctx context.Context, followerID, targetID uint) error {
	if followerID == 0 {
		return models.NewUnauthorizedError("Authentication required")
	}
	if followerID == targetID {
		return models.NewValidationError("You cannot follow yourself")
	}
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.NewNotFoundError("User", targetID)
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (s *FollowService) invalidate(ctx context.Context, followerID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cache.FollowingKey(followerID)); err != nil {
		observability.Logger.WarnContext(ctx, "failed to invalidate following cache", "user_id", followerID, "error", err)
	}
}
