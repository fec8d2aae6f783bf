package server

import (
	"inkfeed/internal/models"
	"inkfeed/internal/service"

	"github.com/gofiber/fiber/v2"
)

// RecentFeedResponse is the cursor-paginated feed body.
type RecentFeedResponse struct {
	Items      []models.FeedItem `json:"items"`
	NextCursor *string           `json:"nextCursor"`
}

// RankedFeedResponse is the offset-paginated feed body.
type RankedFeedResponse struct {
	Items      []models.FeedItem `json:"items"`
	Pagination *models.PageInfo  `json:"pagination"`
}

// GetFeed godoc
// @Summary Global feed
// @Description Public posts, newest first with an opaque cursor, or ranked with page numbers
// @Tags feed
// @Produce json
// @Param cursor query string false "Cursor from a previous page"
// @Param limit query int false "Page size (1-50)"
// @Param page query int false "Page number for ranked sorts"
// @Param sortBy query string false "recent, popular, views or comments"
// @Param type query string false "Post type"
// @Param style query string false "Style"
// @Param bodyPart query string false "Body part"
// @Param location query string false "Location"
// @Param featured query bool false "Featured only / non-featured only"
// @Success 200 {object} RecentFeedResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /feed [get]
func (s *Server) GetFeed(c *fiber.Ctx) error {
	return s.serveFeed(c, service.ScopeGlobal)
}

// GetFollowingFeed godoc
// @Summary Following feed
// @Description Posts from authors the caller follows. Same parameters as the global feed.
// @Tags feed
// @Produce json
// @Security BearerAuth
// @Success 200 {object} RecentFeedResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /feed/following [get]
func (s *Server) GetFollowingFeed(c *fiber.Ctx) error {
	return s.serveFeed(c, service.ScopeFollowing)
}

func (s *Server) serveFeed(c *fiber.Ctx, scope service.FeedScope) error {
	q, err := parseFeedQuery(c, scope)
	if err != nil {
		return respondError(c, err)
	}

	page, err := s.feedService.Query(c.UserContext(), q)
	if err != nil {
		return respondError(c, err)
	}

	items := page.Items
	if items == nil {
		items = []models.FeedItem{}
	}

	if page.Pagination != nil {
		return c.JSON(RankedFeedResponse{Items: items, Pagination: page.Pagination})
	}
	return c.JSON(RecentFeedResponse{Items: items, NextCursor: page.NextCursor})
}
