package repository

import (
	"context"

	"tubescribe/models"
)

type VideoRepository interface {
	Create(ctx context.Context, video *models.Video) error
	Find(ctx context.Context, id int64) (*models.Video, error)
	FindByURL(ctx context.Context, url string) (*models.Video, error)
	Update(ctx context.Context, video *models.Video) error
	Delete(ctx context.Context, id int64) error

	// List returns videos newest first. A categoryID of zero means no
	// category filter.
	List(ctx context.Context, categoryID int64) ([]*models.Video, error)

	Count(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context, status models.Status) (int, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	Find(ctx context.Context, id int64) (*models.Category, error)
	FindByName(ctx context.Context, name string) (*models.Category, error)
	List(ctx context.Context) ([]*models.Category, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
}
