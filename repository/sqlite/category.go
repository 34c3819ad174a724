package sqlite

import (
	"context"
	"database/sql"
	"time"

	"tubescribe/errors"
	"tubescribe/models"
)

type CategoryRepository struct {
	db    *sql.DB
	stmts *preparedStatements
}

// NewCategoryRepository shares the prepared statement set with the video
// repository when both are backed by the same handle.
func NewCategoryRepository(ctx context.Context, db *sql.DB, videos *VideoRepository) (*CategoryRepository, error) {
	if videos != nil {
		return &CategoryRepository{db: db, stmts: videos.stmts}, nil
	}

	stmts := &preparedStatements{}
	if err := stmts.prepare(ctx, db); err != nil {
		return nil, err
	}
	return &CategoryRepository{db: db, stmts: stmts}, nil
}

func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	const op = "SQLiteCategoryRepository.Create"

	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now().UTC()
	}
	if category.Color == "" {
		category.Color = models.DefaultCategoryColor
	}

	res, err := execWithRetry(ctx, func() (sql.Result, error) {
		return r.stmts.createCategory.ExecContext(ctx,
			category.Name,
			category.Description,
			category.Color,
			category.CreatedAt,
		)
	})
	if err != nil {
		return errors.Internal(op, err, "Failed to create category")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return errors.Internal(op, err, "Failed to read created category id")
	}
	category.ID = id
	return nil
}

func (r *CategoryRepository) Find(ctx context.Context, id int64) (*models.Category, error) {
	const op = "SQLiteCategoryRepository.Find"
	return scanCategoryRow(op, r.stmts.getCategory.QueryRowContext(ctx, id))
}

func (r *CategoryRepository) FindByName(ctx context.Context, name string) (*models.Category, error) {
	const op = "SQLiteCategoryRepository.FindByName"
	return scanCategoryRow(op, r.stmts.getByName.QueryRowContext(ctx, name))
}

func (r *CategoryRepository) List(ctx context.Context) ([]*models.Category, error) {
	const op = "SQLiteCategoryRepository.List"

	rows, err := r.db.QueryContext(ctx, `
        SELECT c.id, c.name, c.description, c.color, c.created_at,
               (SELECT COUNT(*) FROM videos v WHERE v.category_id = c.id)
        FROM categories c
        ORDER BY c.name ASC
    `)
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to list categories")
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		category := &models.Category{}
		var description sql.NullString
		if err := rows.Scan(
			&category.ID,
			&category.Name,
			&description,
			&category.Color,
			&category.CreatedAt,
			&category.VideoCount,
		); err != nil {
			return nil, errors.Internal(op, err, "Failed to scan category row")
		}
		category.Description = description.String
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal(op, err, "Failed while iterating categories")
	}

	return categories, nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	const op = "SQLiteCategoryRepository.Delete"

	res, err := execWithRetry(ctx, func() (sql.Result, error) {
		return r.stmts.deleteCategory.ExecContext(ctx, id)
	})
	if err != nil {
		return errors.Internal(op, err, "Failed to delete category")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Internal(op, err, "Failed to read delete result")
	}
	if affected == 0 {
		return errors.NotFound(op, nil, "Category not found")
	}
	return nil
}

func (r *CategoryRepository) Count(ctx context.Context) (int, error) {
	const op = "SQLiteCategoryRepository.Count"

	var count int
	if err := r.stmts.countCats.QueryRowContext(ctx).Scan(&count); err != nil {
		return 0, errors.Internal(op, err, "Failed to count categories")
	}
	return count, nil
}

func scanCategoryRow(op string, row *sql.Row) (*models.Category, error) {
	category := &models.Category{}
	var description sql.NullString

	err := row.Scan(
		&category.ID,
		&category.Name,
		&description,
		&category.Color,
		&category.CreatedAt,
		&category.VideoCount,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound(op, nil, "Category not found")
	}
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to query category")
	}

	category.Description = description.String
	return category, nil
}
