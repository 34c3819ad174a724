package transcription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// AudioValidator checks and repairs audio files before transcription.
type AudioValidator interface {
	Validate(ctx context.Context, path string) (bool, string)
	RepairMono(ctx context.Context, path string) bool
}

// Service wraps an engine with validation, retries, mono repair and a
// per-video transcript cache.
type Service struct {
	engine    Engine
	validator AudioValidator
	cacheDir  string
	retries   int
	log       *logrus.Logger
}

func NewService(engine Engine, validator AudioValidator, cacheDir string, retries int, log *logrus.Logger) *Service {
	if retries < 1 {
		retries = 1
	}
	return &Service{
		engine:    engine,
		validator: validator,
		cacheDir:  cacheDir,
		retries:   retries,
		log:       log,
	}
}

// CachePath returns where the transcript sidecar for a video lives.
func (s *Service) CachePath(videoID string) string {
	return filepath.Join(s.cacheDir, videoID+"_transcription.json")
}

// RemoveCache deletes a cached transcript if present.
func (s *Service) RemoveCache(videoID string) error {
	err := os.Remove(s.CachePath(videoID))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Transcribe produces the transcript for a video's audio file. A cached
// transcript with text is returned as is; an unreadable or empty cache
// falls through to a fresh run.
func (s *Service) Transcribe(ctx context.Context, videoID, audioPath string) (*Result, error) {
	if cached, ok := s.readCache(videoID); ok {
		s.log.WithField("video_id", videoID).Debug("transcript cache hit")
		return cached, nil
	}

	var lastErr error
	for attempt := 1; attempt <= s.retries; attempt++ {
		valid, reason := s.validator.Validate(ctx, audioPath)
		if !valid {
			return nil, &ValidationError{Reason: reason}
		}

		s.log.WithFields(logrus.Fields{
			"video_id": videoID,
			"attempt":  attempt,
			"retries":  s.retries,
		}).Info("transcribing audio")

		result, err := s.engine.Transcribe(ctx, audioPath)
		if err == nil {
			if strings.TrimSpace(result.Text) == "" {
				return nil, &EmptyTranscriptError{}
			}
			if err := s.writeCache(videoID, result); err != nil {
				s.log.WithError(err).WithField("video_id", videoID).Warn("failed to cache transcript")
			}
			s.log.WithFields(logrus.Fields{
				"video_id": videoID,
				"chars":    len(result.Text),
				"language": result.Language,
			}).Info("transcription successful")
			return result, nil
		}

		var formatErr *MediaFormatError
		if errors.As(err, &formatErr) {
			if attempt == s.retries {
				return nil, &CorruptMediaError{FileSize: fileSize(audioPath)}
			}

			s.log.WithField("video_id", videoID).Warn("audio format issue, re-encoding to mono")
			if !s.validator.RepairMono(ctx, audioPath) {
				return nil, &CorruptMediaError{FileSize: fileSize(audioPath), RepairFailed: true}
			}
			if valid, reason := s.validator.Validate(ctx, audioPath); !valid {
				return nil, &ValidationError{Reason: fmt.Sprintf("Re-encoded audio still invalid: %s", reason)}
			}
			lastErr = err
			continue
		}

		lastErr = err
		if attempt < s.retries {
			s.log.WithError(err).WithFields(logrus.Fields{
				"video_id": videoID,
				"attempt":  attempt,
			}).Warn("transcription attempt failed, retrying")
		}
	}

	return nil, fmt.Errorf("transcription failed after %d attempts: %w", s.retries, lastErr)
}

func (s *Service) readCache(videoID string) (*Result, bool) {
	data, err := os.ReadFile(s.CachePath(videoID))
	if err != nil {
		return nil, false
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		s.log.WithError(err).WithField("video_id", videoID).Warn("unreadable transcript cache, re-transcribing")
		return nil, false
	}
	if strings.TrimSpace(result.Text) == "" {
		return nil, false
	}
	return &result, true
}

func (s *Service) writeCache(videoID string, result *Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return os.WriteFile(s.CachePath(videoID), data, 0o644)
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
