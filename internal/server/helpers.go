package server

import (
	"errors"
	"strconv"
	"strings"

	"inkfeed/internal/middleware"
	"inkfeed/internal/models"
	"inkfeed/internal/observability"
	"inkfeed/internal/repository"
	"inkfeed/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/oklog/ulid/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// respondError writes err with the status its code implies. Internal errors
// are logged here since their cause is not echoed to the client.
func respondError(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	if status == fiber.StatusInternalServerError {
		observability.Logger.ErrorContext(c.UserContext(), "request error",
			"path", c.Path(), "error", err)
	}
	return models.RespondWithError(c, status, err)
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// parsePostID extracts a ULID post id. Same contract as parseID.
func parsePostID(c *fiber.Ctx, param string) (string, error) {
	raw := strings.ToUpper(c.Params(param))
	if _, err := ulid.ParseStrict(raw); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid post ID"))
		return "", errResponseWritten
	}
	return raw, nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "userId" -> "user ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if prefix, ok := strings.CutSuffix(param, "Id"); ok && prefix != "" {
		return strings.ToLower(prefix) + " ID"
	}
	return param
}

// parseFeedQuery reads the feed query parameters shared by both scopes.
func parseFeedQuery(c *fiber.Ctx, scope service.FeedScope) (service.FeedQuery, error) {
	q := service.FeedQuery{
		Scope:    scope,
		Cursor:   c.Query("cursor"),
		ViewerID: middleware.UserID(c),
		Filter: repository.PostFilter{
			Type:     strings.TrimSpace(c.Query("type")),
			Style:    strings.TrimSpace(c.Query("style")),
			BodyPart: strings.TrimSpace(c.Query("bodyPart")),
			Location: strings.TrimSpace(c.Query("location")),
		},
	}

	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, models.NewValidationError("limit must be an integer")
		}
		q.Limit = &n
	}

	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, models.NewValidationError("page must be an integer")
		}
		q.Page = n
	}

	sort, ok := models.ParseSortMode(c.Query("sortBy"))
	if !ok {
		return q, models.NewValidationError("sortBy must be one of: recent, popular, views, comments")
	}
	q.Sort = sort

	if raw := c.Query("featured"); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			return q, models.NewValidationError("featured must be true or false")
		}
		q.Filter.Featured = &featured
	}

	return q, nil
}
