package server

import (
	"errors"
	"io"

	"inkfeed/internal/middleware"
	"inkfeed/internal/models"
	"inkfeed/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

type createPostRequest struct {
	Caption    string `json:"caption" form:"caption"`
	Type       string `json:"type" form:"type"`
	Style      string `json:"style" form:"style"`
	BodyPart   string `json:"bodyPart" form:"bodyPart"`
	Location   string `json:"location" form:"location"`
	Visibility string `json:"visibility" form:"visibility"`
}

// CreatePost godoc
// @Summary Create a post
// @Description Multipart form with an optional "image" file, or a JSON body for caption-only posts
// @Tags posts
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param caption formData string false "Caption"
// @Param image formData file false "JPEG, PNG or WebP image"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req createPostRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	in := service.CreatePostInput{
		UserID:     middleware.UserID(c),
		Caption:    req.Caption,
		Type:       req.Type,
		Style:      req.Style,
		BodyPart:   req.BodyPart,
		Location:   req.Location,
		Visibility: req.Visibility,
	}

	fh, err := c.FormFile("image")
	switch {
	case err == nil:
		f, err := fh.Open()
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Unable to read image"))
		}
		defer func() { _ = f.Close() }()
		if in.Image, err = io.ReadAll(f); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Unable to read image"))
		}
		in.ImageContentType = fh.Header.Get(fiber.HeaderContentType)
	case errors.Is(err, fasthttp.ErrMissingFile), errors.Is(err, fasthttp.ErrNoMultipartForm):
		// caption-only post
	default:
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid multipart form"))
	}

	post, err := s.postService.CreatePost(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPost godoc
// @Summary Get a post
// @Tags posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := parsePostID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.UserContext(), id, middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// DeletePost godoc
// @Summary Delete a post
// @Tags posts
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := parsePostID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.UserContext(), service.DeletePostInput{
		UserID: middleware.UserID(c),
		PostID: id,
	}); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
