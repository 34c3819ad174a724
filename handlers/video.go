package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"tubescribe/errors"
	"tubescribe/models"
	"tubescribe/repository"
	"tubescribe/services/video"
)

type VideoHandler struct {
	service    video.Service
	categories repository.CategoryRepository
}

func NewVideoHandler(service video.Service, categories repository.CategoryRepository) *VideoHandler {
	return &VideoHandler{service: service, categories: categories}
}

type submitRequest struct {
	URLs []string `json:"urls"`
}

func (h *VideoHandler) Submit(c *fiber.Ctx) error {
	var req submitRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.InvalidInput("VideoHandler.Submit", err, "Invalid request body")
	}
	if len(req.URLs) == 0 {
		return errors.InvalidInput("VideoHandler.Submit", nil, "No URLs provided")
	}

	videos, err := h.service.Submit(c.Context(), req.URLs)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    h.toResponses(c, videos),
	})
}

func (h *VideoHandler) List(c *fiber.Ctx) error {
	categoryID := int64(c.QueryInt("category_id", 0))

	videos, err := h.service.List(c.Context(), categoryID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.toResponses(c, videos),
	})
}

func (h *VideoHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	v, err := h.service.Get(c.Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.toResponse(c, v),
	})
}

func (h *VideoHandler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Context(), id); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Video deleted successfully",
	})
}

func (h *VideoHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.Context())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    stats,
	})
}

func parseID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.InvalidInput("handlers.parseID", err, "Invalid video ID")
	}
	return id, nil
}

func (h *VideoHandler) toResponse(c *fiber.Ctx, v *models.Video) *models.VideoResponse {
	var category *models.Category
	if v.CategoryID != nil {
		if found, err := h.categories.Find(c.Context(), *v.CategoryID); err == nil {
			category = found
		}
	}
	return models.NewVideoResponse(v, category)
}

// toResponses resolves categories in one query instead of per video.
func (h *VideoHandler) toResponses(c *fiber.Ctx, videos []*models.Video) []*models.VideoResponse {
	byID := make(map[int64]*models.Category)
	if cats, err := h.categories.List(c.Context()); err == nil {
		for _, cat := range cats {
			byID[cat.ID] = cat
		}
	}

	responses := make([]*models.VideoResponse, 0, len(videos))
	for _, v := range videos {
		var category *models.Category
		if v.CategoryID != nil {
			category = byID[*v.CategoryID]
		}
		responses = append(responses, models.NewVideoResponse(v, category))
	}
	return responses
}
