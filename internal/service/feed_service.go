package service

import (
	"context"
	"fmt"
	"time"

	"inkfeed/internal/cache"
	"inkfeed/internal/config"
	"inkfeed/internal/cursor"
	"inkfeed/internal/models"
	"inkfeed/internal/observability"
	"inkfeed/internal/repository"
	"inkfeed/internal/scheduler"

	"go.opentelemetry.io/otel/attribute"
)

// FeedScope selects which authors a feed draws from.
type FeedScope string

const (
	ScopeGlobal    FeedScope = "global"
	ScopeFollowing FeedScope = "following"
)

// FeedQuery is a single page request.
type FeedQuery struct {
	Scope  FeedScope
	Filter repository.PostFilter
	// Cursor is the opaque token from a previous recent-mode page.
	Cursor string
	// Page is 1-based and only used by ranked sorts.
	Page int
	// Limit is nil when the caller did not ask for a page size.
	Limit    *int
	Sort     models.SortMode
	ViewerID uint
}

// FeedPage is one page of decorated posts. NextCursor is set only in
// recent mode when more rows exist; Pagination only in ranked modes.
type FeedPage struct {
	Items      []models.FeedItem
	NextCursor *string
	Pagination *models.PageInfo
	Sort       models.SortMode
}

// FeedConfig carries the feed policies.
type FeedConfig struct {
	DefaultLimit        int
	MaxLimit            int
	FollowingFallback   string
	InvalidCursorPolicy string
	CountCacheTTL       time.Duration
}

// FeedConfigFrom extracts the feed policies from application config.
func FeedConfigFrom(cfg *config.Config) FeedConfig {
	return FeedConfig{
		DefaultLimit:        cfg.FeedDefaultLimit,
		MaxLimit:            cfg.FeedMaxLimit,
		FollowingFallback:   cfg.FollowingFallback,
		InvalidCursorPolicy: cfg.InvalidCursorPolicy,
		CountCacheTTL:       cfg.FeedCountCacheTTL,
	}
}

func (c FeedConfig) withDefaults() FeedConfig {
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = 20
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = 50
	}
	if c.FollowingFallback == "" {
		c.FollowingFallback = config.FollowingFallbackPublic
	}
	if c.InvalidCursorPolicy == "" {
		c.InvalidCursorPolicy = config.InvalidCursorReset
	}
	if c.CountCacheTTL <= 0 {
		c.CountCacheTTL = 30 * time.Second
	}
	return c
}

// FeedService serves the global and following feeds.
type FeedService struct {
	posts     repository.PostRepository
	rels      repository.RelationshipRepository
	assembler *ResponseAssembler
	cache     cache.Store
	sched     *scheduler.Scheduler
	cfg       FeedConfig
}

// NewFeedService wires the feed engine. store and sched may be nil, in which
// case counts are not cached and queries run on the caller's goroutine.
func NewFeedService(
	posts repository.PostRepository,
	rels repository.RelationshipRepository,
	assembler *ResponseAssembler,
	store cache.Store,
	sched *scheduler.Scheduler,
	cfg FeedConfig,
) *FeedService {
	return &FeedService{
		posts:     posts,
		rels:      rels,
		assembler: assembler,
		cache:     store,
		sched:     sched,
		cfg:       cfg.withDefaults(),
	}
}

// Query returns one page of the feed described by q.
func (s *FeedService) Query(ctx context.Context, q FeedQuery) (*FeedPage, error) {
	if q.Scope == "" {
		q.Scope = ScopeGlobal
	}
	if q.Sort == "" {
		q.Sort = models.SortRecent
	}
	if _, ok := models.ParseSortMode(string(q.Sort)); !ok {
		return nil, models.NewValidationError("Invalid sortBy")
	}
	limit, err := s.resolveLimit(q.Limit)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer observability.ObserveSince(observability.FeedQueryLatency.WithLabelValues(string(q.Scope), string(q.Sort)), start)

	span, ctx := observability.NewSpan(ctx, "feed.query",
		attribute.String("feed.scope", string(q.Scope)),
		attribute.String("feed.sort", string(q.Sort)),
		attribute.Int("feed.limit", limit),
	)
	defer span.End()

	filter := q.Filter
	switch q.Scope {
	case ScopeGlobal:
	case ScopeFollowing:
		if q.ViewerID == 0 {
			return nil, models.NewUnauthorizedError("Sign in to see posts from people you follow")
		}
		following, err := s.followingIDs(ctx, q.ViewerID)
		if err != nil {
			span.SetError(err)
			return nil, models.NewInternalError(err)
		}
		if len(following) == 0 {
			if s.cfg.FollowingFallback == config.FollowingFallbackEmpty {
				return emptyPage(q, limit), nil
			}
			filter.ExcludeAuthorID = q.ViewerID
		} else {
			filter.AuthorIDs = following
		}
	default:
		return nil, models.NewValidationError(fmt.Sprintf("Invalid feed scope %q", q.Scope))
	}

	var page *FeedPage
	if q.Sort.Ranked() {
		page, err = s.queryRanked(ctx, filter, q, limit)
	} else {
		page, err = s.queryRecent(ctx, filter, q, limit)
	}
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	span.AddAttributes(attribute.Int("feed.items", len(page.Items)))
	return page, nil
}

func (s *FeedService) resolveLimit(limit *int) (int, error) {
	if limit == nil {
		return s.cfg.DefaultLimit, nil
	}
	if *limit < 1 || *limit > s.cfg.MaxLimit {
		return 0, models.NewValidationError(fmt.Sprintf("limit must be between 1 and %d", s.cfg.MaxLimit))
	}
	return *limit, nil
}

func (s *FeedService) queryRecent(ctx context.Context, filter repository.PostFilter, q FeedQuery, limit int) (*FeedPage, error) {
	var after *cursor.Cursor
	if q.Cursor != "" {
		c, ok := cursor.Decode(q.Cursor)
		if !ok {
			observability.FeedInvalidCursors.Inc()
			if s.cfg.InvalidCursorPolicy == config.InvalidCursorReject {
				return nil, models.NewValidationError("Invalid cursor")
			}
			observability.Logger.DebugContext(ctx, "ignoring malformed feed cursor")
		} else {
			after = &c
		}
	}

	rows, err := s.run(ctx, scheduler.High, func(ctx context.Context) ([]*models.Post, error) {
		return s.posts.ListRecent(ctx, filter, after, limit+1)
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}

	items, err := s.assembler.Assemble(ctx, q.ViewerID, rows)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	page := &FeedPage{Items: items, Sort: q.Sort}
	if hasMore {
		last := rows[len(rows)-1]
		next := cursor.Encode(last.CreatedAt, last.ID)
		page.NextCursor = &next
	}
	return page, nil
}

func (s *FeedService) queryRanked(ctx context.Context, filter repository.PostFilter, q FeedQuery, limit int) (*FeedPage, error) {
	pageNum := max(q.Page, 1)

	// The count runs alongside the page fetch.
	var countFuture *scheduler.Future
	if s.sched != nil {
		countFuture = s.sched.Submit(ctx, scheduler.Normal, func(ctx context.Context) (any, error) {
			return s.count(ctx, filter)
		})
	}

	rows, err := s.run(ctx, scheduler.High, func(ctx context.Context) ([]*models.Post, error) {
		return s.posts.ListRanked(ctx, filter, q.Sort, (pageNum-1)*limit, limit)
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	var total int64
	if countFuture != nil {
		v, err := countFuture.Wait(ctx)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		total, _ = v.(int64)
	} else if total, err = s.count(ctx, filter); err != nil {
		return nil, models.NewInternalError(err)
	}

	items, err := s.assembler.Assemble(ctx, q.ViewerID, rows)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	return &FeedPage{
		Items: items,
		Sort:  q.Sort,
		Pagination: &models.PageInfo{
			Page:       pageNum,
			TotalPages: int((total + int64(limit) - 1) / int64(limit)),
			TotalItems: total,
			PageSize:   limit,
		},
	}, nil
}

func (s *FeedService) count(ctx context.Context, filter repository.PostFilter) (int64, error) {
	var total int64
	key := cache.FeedCountKey(countGeneration(ctx, s.cache) + ":" + filter.Fingerprint())
	err := cache.Aside(ctx, s.cache, key, &total, s.cfg.CountCacheTTL, func() error {
		n, err := s.posts.Count(ctx, filter)
		total = n
		return err
	})
	return total, err
}

func (s *FeedService) followingIDs(ctx context.Context, viewerID uint) ([]uint, error) {
	var ids []uint
	err := cache.Aside(ctx, s.cache, cache.FollowingKey(viewerID), &ids, cache.FollowingTTL, func() error {
		got, err := s.rels.FollowingIDs(ctx, viewerID)
		ids = got
		return err
	})
	return ids, err
}

func (s *FeedService) run(ctx context.Context, p scheduler.Priority, fn func(context.Context) ([]*models.Post, error)) ([]*models.Post, error) {
	if s.sched == nil {
		return fn(ctx)
	}
	return scheduler.Do(ctx, s.sched, p, fn)
}

func emptyPage(q FeedQuery, limit int) *FeedPage {
	page := &FeedPage{Items: []models.FeedItem{}, Sort: q.Sort}
	if q.Sort.Ranked() {
		page.Pagination = &models.PageInfo{Page: max(q.Page, 1), PageSize: limit}
	}
	return page
}

// countGeneration reads the token that scopes cached feed counts. Writes
// that change which posts are visible call bumpCountGeneration so stale
// counts stop being read.
func countGeneration(ctx context.Context, store cache.Store) string {
	var gen string
	if found, err := cache.GetJSON(ctx, store, cache.FeedCountGenerationKey, &gen); err != nil || !found {
		return "0"
	}
	return gen
}

func bumpCountGeneration(ctx context.Context, store cache.Store) {
	gen := fmt.Sprintf("%x", time.Now().UnixNano())
	if err := cache.SetJSON(ctx, store, cache.FeedCountGenerationKey, gen, 0); err != nil {
		observability.Logger.WarnContext(ctx, "failed to bump feed count generation", "error", err)
	}
}
