package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"inkfeed/internal/cache"
	"inkfeed/internal/media"
	"inkfeed/internal/models"
	"inkfeed/internal/observability"
	"inkfeed/internal/repository"
	"inkfeed/internal/scheduler"
	"inkfeed/internal/storage"

	"github.com/google/uuid"
)

const maxCaptionLen = 2200

type PostService struct {
	posts   repository.PostRepository
	objects storage.ObjectStore
	sched   *scheduler.Scheduler
	cache   cache.Store
}

type CreatePostInput struct {
	UserID     uint
	Caption    string
	Type       string
	Style      string
	BodyPart   string
	Location   string
	Visibility string
	// Image is the raw upload; empty for caption-only posts.
	Image            []byte
	ImageContentType string
}

type DeletePostInput struct {
	UserID uint
	PostID string
}

func NewPostService(
	posts repository.PostRepository,
	objects storage.ObjectStore,
	sched *scheduler.Scheduler,
	store cache.Store,
) *PostService {
	return &PostService{
		posts:   posts,
		objects: objects,
		sched:   sched,
		cache:   store,
	}
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if in.UserID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	caption := strings.TrimSpace(in.Caption)
	if utf8.RuneCountInString(caption) > maxCaptionLen {
		return nil, models.NewValidationError(fmt.Sprintf("Caption too long (max %d characters)", maxCaptionLen))
	}
	if caption == "" && len(in.Image) == 0 {
		return nil, models.NewValidationError("A post needs a caption or an image")
	}
	visibility := in.Visibility
	switch visibility {
	case "":
		visibility = models.VisibilityPublic
	case models.VisibilityPublic, models.VisibilityPrivate:
	default:
		return nil, models.NewValidationError("Invalid visibility")
	}

	post := &models.Post{
		UserID:     in.UserID,
		Caption:    caption,
		Type:       strings.TrimSpace(in.Type),
		Style:      strings.TrimSpace(in.Style),
		BodyPart:   strings.TrimSpace(in.BodyPart),
		Location:   strings.TrimSpace(in.Location),
		Visibility: visibility,
		Status:     models.PostStatusPublished,
	}

	if len(in.Image) > 0 {
		stored, err := scheduler.Do(ctx, s.sched, scheduler.Normal, func(ctx context.Context) (storedObject, error) {
			return s.storeImage(ctx, in.UserID, in.Image, in.ImageContentType)
		})
		if err != nil {
			var appErr *models.AppError
			if errors.As(err, &appErr) {
				return nil, appErr
			}
			return nil, models.NewInternalError(err)
		}
		post.ImageURL = stored.url
		post.ImageKey = stored.key
	}

	if err := s.posts.Create(ctx, post); err != nil {
		if post.ImageKey != "" {
			s.deleteObjectLater(ctx, post.ImageKey)
		}
		return nil, models.NewInternalError(err)
	}
	bumpCountGeneration(ctx, s.cache)
	return post, nil
}

type storedObject struct {
	url string
	key string
}

func (s *PostService) storeImage(ctx context.Context, userID uint, content []byte, contentType string) (storedObject, error) {
	img, err := media.Normalize(userID, content, contentType)
	if err != nil {
		return storedObject{}, err
	}
	key := fmt.Sprintf("%s/%s/%s.webp", img.Hash[:2], img.Hash[:16], uuid.NewString())
	url, err := s.objects.Put(ctx, key, img.Data, img.MimeType)
	if err != nil {
		return storedObject{}, err
	}
	return storedObject{url: url, key: key}, nil
}

// GetPost returns a post visible to viewerID. Private posts are only
// visible to their author.
func (s *PostService) GetPost(ctx context.Context, id string, viewerID uint) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if errors.Is(err, repository.ErrPostNotFound) {
		return nil, models.NewNotFoundError("Post", id)
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if post.Visibility != models.VisibilityPublic && post.UserID != viewerID {
		return nil, models.NewNotFoundError("Post", id)
	}
	return post, nil
}

// DeletePost soft-deletes the caller's own post and schedules removal of its
// media. Media removal is best-effort.
func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) error {
	post, err := s.posts.GetByID(ctx, in.PostID)
	if errors.Is(err, repository.ErrPostNotFound) {
		return models.NewNotFoundError("Post", in.PostID)
	}
	if err != nil {
		return models.NewInternalError(err)
	}
	if post.UserID != in.UserID {
		return models.NewForbiddenError("You can only delete your own posts")
	}

	if err := s.posts.Delete(ctx, in.PostID); err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			return models.NewNotFoundError("Post", in.PostID)
		}
		return models.NewInternalError(err)
	}
	bumpCountGeneration(ctx, s.cache)

	if post.ImageKey != "" {
		s.deleteObjectLater(ctx, post.ImageKey)
	}
	return nil
}

func (s *PostService) deleteObjectLater(ctx context.Context, key string) {
	observability.LogAsyncOperationStart(ctx, "media.delete", "key", key)
	s.sched.Submit(ctx, scheduler.Low, func(ctx context.Context) (any, error) {
		if err := s.objects.Delete(ctx, key); err != nil {
			observability.StorageDeleteFailures.Inc()
			observability.Logger.WarnContext(ctx, "media delete failed", "key", key, "error", err)
		}
		return nil, nil
	})
}
