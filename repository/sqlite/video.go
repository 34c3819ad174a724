package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"tubescribe/errors"
	"tubescribe/models"

	sq "github.com/Masterminds/squirrel"
)

type VideoRepository struct {
	db    *sql.DB
	stmts *preparedStatements
}

func NewVideoRepository(ctx context.Context, db *sql.DB) (*VideoRepository, error) {
	stmts := &preparedStatements{}
	if err := stmts.prepare(ctx, db); err != nil {
		return nil, err
	}
	return &VideoRepository{db: db, stmts: stmts}, nil
}

func (r *VideoRepository) Close() error {
	return r.stmts.close()
}

func (r *VideoRepository) Create(ctx context.Context, video *models.Video) error {
	const op = "SQLiteVideoRepository.Create"

	now := time.Now().UTC()
	if video.CreatedAt.IsZero() {
		video.CreatedAt = now
	}
	video.UpdatedAt = now

	res, err := execWithRetry(ctx, func() (sql.Result, error) {
		return r.stmts.createVideo.ExecContext(ctx,
			video.URL,
			video.Title,
			video.ThumbnailURL,
			video.TranscriptPath,
			video.Summary,
			string(video.Status),
			video.CurrentStep,
			video.Progress,
			video.ErrorMessage,
			video.CategoryID,
			video.CreatedAt,
			video.UpdatedAt,
		)
	})
	if err != nil {
		return errors.Internal(op, err, "Failed to create video")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return errors.Internal(op, err, "Failed to read created video id")
	}
	video.ID = id
	return nil
}

func (r *VideoRepository) Find(ctx context.Context, id int64) (*models.Video, error) {
	const op = "SQLiteVideoRepository.Find"
	return r.scanOne(op, r.stmts.getVideo.QueryRowContext(ctx, id))
}

func (r *VideoRepository) FindByURL(ctx context.Context, url string) (*models.Video, error) {
	const op = "SQLiteVideoRepository.FindByURL"
	return r.scanOne(op, r.stmts.getVideoByURL.QueryRowContext(ctx, url))
}

func (r *VideoRepository) Update(ctx context.Context, video *models.Video) error {
	const op = "SQLiteVideoRepository.Update"

	video.UpdatedAt = time.Now().UTC()

	_, err := execWithRetry(ctx, func() (sql.Result, error) {
		return r.stmts.updateVideo.ExecContext(ctx,
			video.Title,
			video.ThumbnailURL,
			video.TranscriptPath,
			video.Summary,
			string(video.Status),
			video.CurrentStep,
			video.Progress,
			video.ErrorMessage,
			video.CategoryID,
			video.UpdatedAt,
			video.ID,
		)
	})
	if err != nil {
		return errors.Internal(op, err, "Failed to update video")
	}
	return nil
}

func (r *VideoRepository) Delete(ctx context.Context, id int64) error {
	const op = "SQLiteVideoRepository.Delete"

	res, err := execWithRetry(ctx, func() (sql.Result, error) {
		return r.stmts.deleteVideo.ExecContext(ctx, id)
	})
	if err != nil {
		return errors.Internal(op, err, "Failed to delete video")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Internal(op, err, "Failed to read delete result")
	}
	if affected == 0 {
		return errors.NotFound(op, nil, "Video not found")
	}
	return nil
}

// List builds the query dynamically since the category filter is optional.
func (r *VideoRepository) List(ctx context.Context, categoryID int64) ([]*models.Video, error) {
	const op = "SQLiteVideoRepository.List"

	builder := sq.Select(
		"id", "url", "title", "thumbnail_url", "transcript_path", "summary",
		"status", "current_step", "progress", "error_message", "category_id",
		"created_at", "updated_at",
	).
		From("videos").
		OrderBy("created_at DESC", "id DESC")

	if categoryID > 0 {
		builder = builder.Where(sq.Eq{"category_id": categoryID})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to build list query")
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to list videos")
	}
	defer rows.Close()

	var videos []*models.Video
	for rows.Next() {
		video, err := scanVideo(rows.Scan)
		if err != nil {
			return nil, errors.Internal(op, err, "Failed to scan video row")
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal(op, err, "Failed while iterating videos")
	}

	return videos, nil
}

func (r *VideoRepository) Count(ctx context.Context) (int, error) {
	const op = "SQLiteVideoRepository.Count"

	var count int
	if err := r.stmts.countVideos.QueryRowContext(ctx).Scan(&count); err != nil {
		return 0, errors.Internal(op, err, "Failed to count videos")
	}
	return count, nil
}

func (r *VideoRepository) CountByStatus(ctx context.Context, status models.Status) (int, error) {
	const op = "SQLiteVideoRepository.CountByStatus"

	var count int
	if err := r.stmts.countByStatus.QueryRowContext(ctx, string(status)).Scan(&count); err != nil {
		return 0, errors.Internal(op, err, "Failed to count videos by status")
	}
	return count, nil
}

func (r *VideoRepository) scanOne(op string, row *sql.Row) (*models.Video, error) {
	video, err := scanVideo(row.Scan)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound(op, nil, "Video not found")
	}
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to query video")
	}
	return video, nil
}

func scanVideo(scan func(dest ...interface{}) error) (*models.Video, error) {
	video := &models.Video{}
	var status string
	var categoryID sql.NullInt64

	err := scan(
		&video.ID,
		&video.URL,
		&video.Title,
		&video.ThumbnailURL,
		&video.TranscriptPath,
		&video.Summary,
		&status,
		&video.CurrentStep,
		&video.Progress,
		&video.ErrorMessage,
		&categoryID,
		&video.CreatedAt,
		&video.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	video.Status = models.Status(status)
	if categoryID.Valid {
		video.CategoryID = &categoryID.Int64
	}
	return video, nil
}

// execWithRetry retries writes that lose the race for the sqlite write lock.
func execWithRetry(ctx context.Context, fn func() (sql.Result, error)) (sql.Result, error) {
	var res sql.Result
	var err error

	for i := 0; i < 3; i++ {
		res, err = fn()
		if err == nil {
			return res, nil
		}
		if !isLockError(err) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(i+1) * 100 * time.Millisecond):
		}
	}
	return nil, err
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "database is locked") ||
		strings.Contains(err.Error(), "busy")
}
