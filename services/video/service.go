package video

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"tubescribe/errors"
	"tubescribe/media"
	"tubescribe/models"
	"tubescribe/progress"
	"tubescribe/repository"
	"tubescribe/services/summary"
	"tubescribe/validation"
)

type service struct {
	repo        repository.VideoRepository
	categories  repository.CategoryRepository
	fetcher     media.Fetcher
	transcriber Transcriber
	summarizer  summary.Service
	validator   *validation.Validator
	registry    *progress.Registry
	config      Config
	log         *logrus.Logger

	// slots bounds concurrent pipeline runs; acquired inside the
	// worker goroutine so Submit never blocks.
	slots chan struct{}
}

func NewService(
	repo repository.VideoRepository,
	categories repository.CategoryRepository,
	fetcher media.Fetcher,
	transcriber Transcriber,
	summarizer summary.Service,
	validator *validation.Validator,
	registry *progress.Registry,
	config Config,
	log *logrus.Logger,
) Service {
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = 1
	}
	return &service{
		repo:        repo,
		categories:  categories,
		fetcher:     fetcher,
		transcriber: transcriber,
		summarizer:  summarizer,
		validator:   validator,
		registry:    registry,
		config:      config,
		log:         log,
		slots:       make(chan struct{}, config.MaxConcurrent),
	}
}

func (s *service) Submit(ctx context.Context, urls []string) ([]*models.Video, error) {
	const op = "VideoService.Submit"

	videos := make([]*models.Video, 0, len(urls))
	for _, url := range urls {
		url = strings.TrimSpace(url)
		if url == "" {
			continue
		}
		if err := s.validator.ValidateURL(url); err != nil {
			s.log.WithField("url", url).Warn("skipping invalid url")
			continue
		}

		if existing, err := s.repo.FindByURL(ctx, url); err == nil {
			videos = append(videos, existing)
			continue
		} else if !errors.IsNotFound(err) {
			return nil, errors.Internal(op, err, "Failed to look up video")
		}

		video, err := s.createQueued(ctx, url)
		if err != nil {
			return nil, err
		}
		videos = append(videos, video)
	}

	if len(videos) == 0 {
		return nil, errors.InvalidInput(op, nil, "No valid URLs provided")
	}
	return videos, nil
}

// createQueued writes the initial record, registers the task and spawns
// the pipeline goroutine. The tracker is registered before the goroutine
// starts so clients can join the task as soon as Submit returns.
func (s *service) createQueued(ctx context.Context, url string) (*models.Video, error) {
	const op = "VideoService.createQueued"

	video := &models.Video{
		URL:         url,
		Title:       "Processing...",
		Status:      models.StatusQueued,
		CurrentStep: models.StepWaiting,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	// Best-effort metadata fetch so the UI shows a title right away.
	ytID := validation.ExtractVideoID(url)
	metaCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	if meta, err := s.fetcher.Lookup(metaCtx, ytID, url); err == nil {
		video.Title = meta.Title
		video.ThumbnailURL = meta.Thumbnail
	} else {
		s.log.WithError(err).WithField("url", url).Debug("metadata lookup failed, deferring to download")
	}
	cancel()

	if err := s.repo.Create(ctx, video); err != nil {
		return nil, errors.Internal(op, err, "Failed to create video")
	}

	tracker, created := s.registry.Register(video.ID)
	if !created {
		return video, nil
	}
	tracker.SetStatus(models.StatusQueued, models.StepWaiting, 0)

	go s.process(video.ID, url)

	s.log.WithFields(logrus.Fields{
		"video_id": video.ID,
		"url":      url,
	}).Info("video queued for processing")
	return video, nil
}

func (s *service) Get(ctx context.Context, id int64) (*models.Video, error) {
	const op = "VideoService.Get"
	video, err := s.repo.Find(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NotFound(op, err, "Video not found")
		}
		return nil, errors.Internal(op, err, "Failed to get video")
	}
	return video, nil
}

func (s *service) List(ctx context.Context, categoryID int64) ([]*models.Video, error) {
	const op = "VideoService.List"
	videos, err := s.repo.List(ctx, categoryID)
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to list videos")
	}
	return videos, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	const op = "VideoService.Delete"

	video, err := s.repo.Find(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return errors.NotFound(op, err, "Video not found")
		}
		return errors.Internal(op, err, "Failed to get video")
	}

	if ytID := validation.ExtractVideoID(video.URL); ytID != "" {
		if err := s.fetcher.Invalidate(ytID); err != nil {
			s.log.WithError(err).WithField("video_id", id).Warn("failed to remove cached media")
		}
		if err := s.transcriber.RemoveCache(ytID); err != nil {
			s.log.WithError(err).WithField("video_id", id).Warn("failed to remove cached transcript")
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return errors.Internal(op, err, "Failed to delete video")
	}
	s.log.WithField("video_id", id).Info("video deleted")
	return nil
}

func (s *service) Stats(ctx context.Context) (*models.Stats, error) {
	const op = "VideoService.Stats"

	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to count videos")
	}
	completed, err := s.repo.CountByStatus(ctx, models.StatusCompleted)
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to count completed videos")
	}
	processing, err := s.repo.CountByStatus(ctx, models.StatusProcessing)
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to count processing videos")
	}
	failed, err := s.repo.CountByStatus(ctx, models.StatusError)
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to count errored videos")
	}
	categories, err := s.categories.Count(ctx)
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to count categories")
	}

	return &models.Stats{
		TotalVideos:      total,
		CompletedVideos:  completed,
		ProcessingVideos: processing,
		ErrorVideos:      failed,
		TotalCategories:  categories,
	}, nil
}
