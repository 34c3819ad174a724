package video

import (
	"context"
	"time"

	"tubescribe/models"
	"tubescribe/transcription"
)

// Service is the pipeline orchestrator. Submit accepts URLs and kicks
// off background processing; the read methods serve the API.
type Service interface {
	// Submit queues the given URLs for processing. Already-known URLs
	// are returned as is, invalid ones are skipped.
	Submit(ctx context.Context, urls []string) ([]*models.Video, error)

	Get(ctx context.Context, id int64) (*models.Video, error)

	// List returns videos newest first, optionally filtered by
	// category (0 means no filter).
	List(ctx context.Context, categoryID int64) ([]*models.Video, error)

	// Delete removes a video record along with its cached audio,
	// metadata and transcript.
	Delete(ctx context.Context, id int64) error

	Stats(ctx context.Context) (*models.Stats, error)
}

// Transcriber produces a transcript for a downloaded audio file.
type Transcriber interface {
	Transcribe(ctx context.Context, videoID, audioPath string) (*transcription.Result, error)
	CachePath(videoID string) string
	RemoveCache(videoID string) error
}

type Config struct {
	// ProcessTimeout bounds one full pipeline run per video.
	ProcessTimeout time.Duration `json:"process_timeout"`

	// MaxConcurrent caps simultaneously running pipelines.
	MaxConcurrent int `json:"max_concurrent"`
}
