package service

import (
	"context"

	"inkfeed/internal/models"
	"inkfeed/internal/observability"
	"inkfeed/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// ResponseAssembler decorates posts with the viewer's like, save and follow
// flags using one bulk lookup per flag.
type ResponseAssembler struct {
	rels repository.RelationshipRepository
}

func NewResponseAssembler(rels repository.RelationshipRepository) *ResponseAssembler {
	return &ResponseAssembler{rels: rels}
}

// Assemble returns one item per post, in order. Anonymous viewers (id 0)
// get all flags false without touching the store.
func (a *ResponseAssembler) Assemble(ctx context.Context, viewerID uint, posts []*models.Post) ([]models.FeedItem, error) {
	items := make([]models.FeedItem, len(posts))
	for i, p := range posts {
		items[i] = models.FeedItem{Post: p}
	}
	if viewerID == 0 || len(posts) == 0 {
		return items, nil
	}

	span, ctx := observability.NewSpan(ctx, "feed.assemble",
		attribute.Int("posts", len(posts)),
	)
	defer span.End()

	postIDs := make([]string, 0, len(posts))
	seenAuthor := make(map[uint]struct{}, len(posts))
	authorIDs := make([]uint, 0, len(posts))
	for _, p := range posts {
		postIDs = append(postIDs, p.ID)
		if p.UserID == viewerID {
			continue
		}
		if _, ok := seenAuthor[p.UserID]; !ok {
			seenAuthor[p.UserID] = struct{}{}
			authorIDs = append(authorIDs, p.UserID)
		}
	}

	liked, err := a.rels.LikedPostIDs(ctx, viewerID, postIDs)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	saved, err := a.rels.SavedPostIDs(ctx, viewerID, postIDs)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	var followed []uint
	if len(authorIDs) > 0 {
		followed, err = a.rels.FollowedAmong(ctx, viewerID, authorIDs)
		if err != nil {
			span.SetError(err)
			return nil, err
		}
	}

	likedSet := toSet(liked)
	savedSet := toSet(saved)
	followedSet := toSet(followed)
	for i := range items {
		_, items[i].IsLiked = likedSet[items[i].ID]
		_, items[i].IsSaved = savedSet[items[i].ID]
		_, items[i].IsFollowingAuthor = followedSet[items[i].UserID]
	}
	return items, nil
}

func toSet[K comparable](keys []K) map[K]struct{} {
	m := make(map[K]struct{}, len(keys))
	for _, k := range keys {
		m[k] = struct{}{}
	}
	return m
}
