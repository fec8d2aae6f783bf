package server

import (
	"strings"

	"inkfeed/internal/middleware"
	"inkfeed/internal/models"

	"github.com/gofiber/fiber/v2"
)

// TogglePostInteraction godoc
// @Summary Toggle like or save
// @Description Flips the caller's like or save on a post and returns the new state
// @Tags interactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Param kind query string false "like or save (may also be sent in the body)"
// @Success 200 {object} models.ToggleResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /posts/{id}/toggle [post]
func (s *Server) TogglePostInteraction(c *fiber.Ctx) error {
	var req struct {
		Kind string `json:"kind" form:"kind"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
	}
	if req.Kind == "" {
		req.Kind = c.Query("kind")
	}
	return s.toggle(c, models.InteractionKind(strings.ToLower(strings.TrimSpace(req.Kind))))
}

// toggleKind serves the fixed-kind aliases /like and /save.
func (s *Server) toggleKind(kind models.InteractionKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return s.toggle(c, kind)
	}
}

func (s *Server) toggle(c *fiber.Ctx, kind models.InteractionKind) error {
	postID, err := parsePostID(c, "id")
	if err != nil {
		return nil
	}

	result, err := s.interactionService.Toggle(c.UserContext(), middleware.UserID(c), postID, kind)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}
