package models

import (
	"time"
)

// DefaultCategoryColor is used for categories created through the API
// without an explicit color.
const DefaultCategoryColor = "#3B82F6"

// palette holds the colors assigned to auto-created categories, rotated by
// the number of categories that already exist. Colors repeat only once the
// palette is exhausted.
var palette = [...]string{
	"#EF4444",
	"#F97316",
	"#F59E0B",
	"#EAB308",
	"#84CC16",
	"#22C55E",
	"#10B981",
	"#14B8A6",
	"#06B6D4",
	"#0EA5E9",
	"#3B82F6",
	"#6366F1",
	"#8B5CF6",
	"#A855F7",
	"#D946EF",
	"#EC4899",
	"#F43F5E",
}

// PaletteColor returns the color for the nth auto-created category.
func PaletteColor(n int) string {
	if n < 0 {
		n = 0
	}
	return palette[n%len(palette)]
}

// PaletteSize returns the number of distinct palette colors.
func PaletteSize() int { return len(palette) }

type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"created_at"`

	// VideoCount is populated by list queries, not stored.
	VideoCount int `json:"video_count"`
}

// CategoryResponse represents the API response for a category.
type CategoryResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"created_at"`
	VideoCount  int       `json:"video_count"`
}

func NewCategoryResponse(c *Category) *CategoryResponse {
	return &CategoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Color:       c.Color,
		CreatedAt:   c.CreatedAt,
		VideoCount:  c.VideoCount,
	}
}
