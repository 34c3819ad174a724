package video

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"tubescribe/models"
	"tubescribe/progress"
	"tubescribe/transcription"
	"tubescribe/validation"
)

// process runs the full pipeline for one video. Each checkpoint writes
// the record before broadcasting, so the database never lags behind
// what clients have seen.
func (s *service) process(videoID int64, url string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ProcessTimeout)
	defer cancel()

	// The tracker must outlive any failure path; only terminal states
	// remove it, including panics.
	defer s.registry.Remove(videoID)
	defer func() {
		if r := recover(); r != nil {
			s.log.WithField("video_id", videoID).Errorf("pipeline panic: %v", r)
			s.fail(videoID, fmt.Errorf("internal error: %v", r))
		}
	}()

	select {
	case s.slots <- struct{}{}:
	case <-ctx.Done():
		s.fail(videoID, fmt.Errorf("timed out waiting for a processing slot"))
		return
	}
	defer func() { <-s.slots }()

	tracker, ok := s.registry.Get(videoID)
	if !ok {
		tracker = nil
	}
	logger := s.log.WithFields(logrus.Fields{
		"video_id": videoID,
		"url":      url,
	})
	logger.Info("starting video processing")

	ytID := validation.ExtractVideoID(url)

	// Download
	if _, err := s.update(ctx, videoID, tracker, func(v *models.Video) {
		v.Status = models.StatusProcessing
		v.CurrentStep = models.StepDownloading
		v.Progress = 5
	}); err != nil {
		s.fail(videoID, err)
		return
	}

	audioPath, meta, err := s.fetcher.Fetch(ctx, ytID, url)
	if err != nil {
		s.fail(videoID, fmt.Errorf("Download failed: %w", err))
		return
	}

	video, err := s.update(ctx, videoID, tracker, func(v *models.Video) {
		if meta.Title != "" {
			v.Title = meta.Title
		}
		v.ThumbnailURL = meta.Thumbnail
		v.Progress = 15
	})
	if err != nil {
		s.fail(videoID, err)
		return
	}
	logger.Info("download complete")

	// Transcribe
	if _, err := s.update(ctx, videoID, tracker, func(v *models.Video) {
		v.CurrentStep = models.StepTranscribing
		v.Progress = 35
	}); err != nil {
		s.fail(videoID, err)
		return
	}

	result, err := s.transcriber.Transcribe(ctx, ytID, audioPath)
	if err != nil {
		if transcription.IsCorruptMedia(err) {
			// Purge the bad download so a resubmission starts clean.
			// The transcript cache is untouched; there is nothing in it.
			if cleanupErr := s.fetcher.Invalidate(ytID); cleanupErr != nil {
				logger.WithError(cleanupErr).Warn("failed to purge corrupted media")
			} else {
				logger.Info("purged corrupted media cache")
			}
		}
		s.fail(videoID, fmt.Errorf("Transcription failed: %w", err))
		return
	}

	// Summarize
	if _, err := s.update(ctx, videoID, tracker, func(v *models.Video) {
		v.CurrentStep = models.StepSummarizing
		v.Progress = 65
	}); err != nil {
		s.fail(videoID, err)
		return
	}

	summaryText := s.summarizer.Summarize(ctx, video.Title, result.Text)
	if _, err := s.update(ctx, videoID, tracker, func(v *models.Video) {
		v.Summary = summaryText
		v.TranscriptPath = s.transcriber.CachePath(ytID)
		v.Progress = 75
	}); err != nil {
		s.fail(videoID, err)
		return
	}
	logger.Info("summary generated")

	// Categorize; failures here never fail the pipeline.
	if _, err := s.update(ctx, videoID, tracker, func(v *models.Video) {
		v.CurrentStep = models.StepCategorizing
		v.Progress = 85
	}); err != nil {
		s.fail(videoID, err)
		return
	}

	var categoryID *int64
	categoryName := s.summarizer.Categorize(ctx, video.Title, summaryText)
	if category, err := s.ensureCategory(ctx, categoryName); err != nil {
		logger.WithError(err).WithField("category", categoryName).Warn("categorization skipped")
	} else {
		categoryID = &category.ID
		logger.WithField("category", category.Name).Info("category assigned")
	}

	// Complete
	if _, err := s.update(ctx, videoID, tracker, func(v *models.Video) {
		if categoryID != nil {
			v.CategoryID = categoryID
		}
		v.Status = models.StatusCompleted
		v.CurrentStep = models.StepComplete
		v.Progress = 100
	}); err != nil {
		s.fail(videoID, err)
		return
	}
	logger.Info("video processing complete")
}

// update applies a mutation to the stored record and then broadcasts
// the new state, in that order.
func (s *service) update(ctx context.Context, videoID int64, tracker *progress.Tracker, mutate func(*models.Video)) (*models.Video, error) {
	video, err := s.repo.Find(ctx, videoID)
	if err != nil {
		return nil, err
	}
	mutate(video)
	video.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, video); err != nil {
		return nil, err
	}
	if tracker != nil {
		tracker.SetStatus(video.Status, video.CurrentStep, video.Progress)
	}
	return video, nil
}

// fail marks a video as errored. It uses a fresh context because the
// pipeline context may already be expired.
func (s *service) fail(videoID int64, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.log.WithError(cause).WithField("video_id", videoID).Error("video processing failed")

	tracker, _ := s.registry.Get(videoID)
	if _, err := s.update(ctx, videoID, tracker, func(v *models.Video) {
		v.Status = models.StatusError
		v.CurrentStep = models.StepError
		v.ErrorMessage = cause.Error()
		v.Progress = 0
	}); err != nil {
		s.log.WithError(err).WithField("video_id", videoID).Error("failed to record error state")
	}
}

// ensureCategory returns the category with the given name, creating it
// with the next palette color when it does not exist yet.
func (s *service) ensureCategory(ctx context.Context, name string) (*models.Category, error) {
	if name == "" {
		return nil, fmt.Errorf("empty category name")
	}

	category, err := s.categories.FindByName(ctx, name)
	if err == nil {
		return category, nil
	}

	count, err := s.categories.Count(ctx)
	if err != nil {
		return nil, err
	}

	category = &models.Category{
		Name:        name,
		Description: fmt.Sprintf("Videos about %s", name),
		Color:       models.PaletteColor(count),
	}
	if err := s.categories.Create(ctx, category); err != nil {
		// Lost a create race; the row exists now.
		if existing, findErr := s.categories.FindByName(ctx, name); findErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return category, nil
}
