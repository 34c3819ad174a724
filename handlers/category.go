package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"tubescribe/errors"
	"tubescribe/models"
	"tubescribe/repository"
)

type CategoryHandler struct {
	categories repository.CategoryRepository
}

func NewCategoryHandler(categories repository.CategoryRepository) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

func (h *CategoryHandler) List(c *fiber.Ctx) error {
	cats, err := h.categories.List(c.Context())
	if err != nil {
		return errors.Internal("CategoryHandler.List", err, "Failed to list categories")
	}

	responses := make([]*models.CategoryResponse, 0, len(cats))
	for _, cat := range cats {
		responses = append(responses, models.NewCategoryResponse(cat))
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    responses,
	})
}

type createCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

func (h *CategoryHandler) Create(c *fiber.Ctx) error {
	const op = "CategoryHandler.Create"

	var req createCategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.InvalidInput(op, err, "Invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return errors.InvalidInput(op, nil, "Category name is required")
	}

	// Creating an existing category returns it unchanged.
	if existing, err := h.categories.FindByName(c.Context(), req.Name); err == nil {
		return c.JSON(fiber.Map{
			"success": true,
			"data":    models.NewCategoryResponse(existing),
		})
	}

	category := &models.Category{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
	}
	if err := h.categories.Create(c.Context(), category); err != nil {
		return errors.Internal(op, err, "Failed to create category")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    models.NewCategoryResponse(category),
	})
}

func (h *CategoryHandler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := h.categories.Delete(c.Context(), id); err != nil {
		if errors.IsNotFound(err) {
			return err
		}
		return errors.Internal("CategoryHandler.Delete", err, "Failed to delete category")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Category deleted successfully",
	})
}
