package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"tubescribe/errors"
)

const (
	createVideoQuery = `
        INSERT INTO videos (
            url, title, thumbnail_url, transcript_path, summary,
            status, current_step, progress, error_message, category_id,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `

	videoColumns = `id, url, title, thumbnail_url, transcript_path, summary,
               status, current_step, progress, error_message, category_id,
               created_at, updated_at`

	getVideoQuery = `
        SELECT ` + videoColumns + `
        FROM videos WHERE id = ?
    `

	getVideoByURLQuery = `
        SELECT ` + videoColumns + `
        FROM videos WHERE url = ?
    `

	updateVideoQuery = `
        UPDATE videos SET
            title = ?,
            thumbnail_url = ?,
            transcript_path = ?,
            summary = ?,
            status = ?,
            current_step = ?,
            progress = ?,
            error_message = ?,
            category_id = ?,
            updated_at = ?
        WHERE id = ?
    `

	deleteVideoQuery = `
        DELETE FROM videos WHERE id = ?
    `

	countVideosQuery = `
        SELECT COUNT(*) FROM videos
    `

	countVideosByStatusQuery = `
        SELECT COUNT(*) FROM videos WHERE status = ?
    `

	createCategoryQuery = `
        INSERT INTO categories (name, description, color, created_at)
        VALUES (?, ?, ?, ?)
    `

	getCategoryQuery = `
        SELECT id, name, description, color, created_at,
               (SELECT COUNT(*) FROM videos v WHERE v.category_id = categories.id)
        FROM categories WHERE id = ?
    `

	getCategoryByNameQuery = `
        SELECT id, name, description, color, created_at,
               (SELECT COUNT(*) FROM videos v WHERE v.category_id = categories.id)
        FROM categories WHERE name = ?
    `

	deleteCategoryQuery = `
        DELETE FROM categories WHERE id = ?
    `

	countCategoriesQuery = `
        SELECT COUNT(*) FROM categories
    `
)

type preparedStatements struct {
	createVideo    *sql.Stmt
	getVideo       *sql.Stmt
	getVideoByURL  *sql.Stmt
	updateVideo    *sql.Stmt
	deleteVideo    *sql.Stmt
	countVideos    *sql.Stmt
	countByStatus  *sql.Stmt
	createCategory *sql.Stmt
	getCategory    *sql.Stmt
	getByName      *sql.Stmt
	deleteCategory *sql.Stmt
	countCats      *sql.Stmt
}

func (stmts *preparedStatements) prepare(ctx context.Context, db *sql.DB) error {
	const op = "sqlite.preparedStatements.prepare"

	targets := []struct {
		stmt  **sql.Stmt
		query string
		name  string
	}{
		{&stmts.createVideo, createVideoQuery, "create video"},
		{&stmts.getVideo, getVideoQuery, "get video"},
		{&stmts.getVideoByURL, getVideoByURLQuery, "get video by url"},
		{&stmts.updateVideo, updateVideoQuery, "update video"},
		{&stmts.deleteVideo, deleteVideoQuery, "delete video"},
		{&stmts.countVideos, countVideosQuery, "count videos"},
		{&stmts.countByStatus, countVideosByStatusQuery, "count videos by status"},
		{&stmts.createCategory, createCategoryQuery, "create category"},
		{&stmts.getCategory, getCategoryQuery, "get category"},
		{&stmts.getByName, getCategoryByNameQuery, "get category by name"},
		{&stmts.deleteCategory, deleteCategoryQuery, "delete category"},
		{&stmts.countCats, countCategoriesQuery, "count categories"},
	}

	for _, target := range targets {
		stmt, err := db.PrepareContext(ctx, target.query)
		if err != nil {
			return errors.Internal(op, err, fmt.Sprintf("failed to prepare %s statement", target.name))
		}
		*target.stmt = stmt
	}

	return nil
}

func (stmts *preparedStatements) close() error {
	var errs []error

	statements := [...]*sql.Stmt{
		stmts.createVideo,
		stmts.getVideo,
		stmts.getVideoByURL,
		stmts.updateVideo,
		stmts.deleteVideo,
		stmts.countVideos,
		stmts.countByStatus,
		stmts.createCategory,
		stmts.getCategory,
		stmts.getByName,
		stmts.deleteCategory,
		stmts.countCats,
	}

	for _, stmt := range statements {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to close prepared statements: %v", errs)
	}

	return nil
}
