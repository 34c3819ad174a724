package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lrstanley/go-ytdlp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	apperrors "tubescribe/errors"
)

// Metadata is the sidecar record cached next to each downloaded audio
// file as <video_id>_metadata.json.
type Metadata struct {
	Title       string  `json:"title"`
	Thumbnail   string  `json:"thumbnail"`
	Duration    float64 `json:"duration"`
	Description string  `json:"description"`
}

// Fetcher downloads and caches audio for a video.
type Fetcher interface {
	// Fetch returns the path to the audio file for a video, downloading
	// it if not already cached, along with its metadata.
	Fetch(ctx context.Context, videoID, url string) (string, *Metadata, error)
	// Lookup returns cached metadata, fetching it remotely if needed,
	// without downloading audio.
	Lookup(ctx context.Context, videoID, url string) (*Metadata, error)
	// AudioPath returns where the audio for a video lives on disk,
	// whether or not it exists yet.
	AudioPath(videoID string) string
	// Invalidate removes the cached audio and metadata for a video.
	Invalidate(videoID string) error
}

// FetchError reports a failed download attempt.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch audio for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// YTDLPFetcher fetches audio through yt-dlp, extracting mp3 and keeping
// a JSON metadata sidecar per video. Remote calls are paced by a rate
// limiter so bursts of submissions do not hammer the upstream site.
type YTDLPFetcher struct {
	downloadDir string
	limiter     *rate.Limiter
	log         *logrus.Logger
}

func NewYTDLPFetcher(downloadDir string, limiter *rate.Limiter, log *logrus.Logger) *YTDLPFetcher {
	return &YTDLPFetcher{
		downloadDir: downloadDir,
		limiter:     limiter,
		log:         log,
	}
}

func (f *YTDLPFetcher) AudioPath(videoID string) string {
	return filepath.Join(f.downloadDir, videoID+".mp3")
}

func (f *YTDLPFetcher) metadataPath(videoID string) string {
	return filepath.Join(f.downloadDir, videoID+"_metadata.json")
}

func (f *YTDLPFetcher) Fetch(ctx context.Context, videoID, url string) (string, *Metadata, error) {
	const op = "YTDLPFetcher.Fetch"

	audioPath := f.AudioPath(videoID)
	if meta, ok := f.readSidecar(videoID); ok {
		if info, err := os.Stat(audioPath); err == nil && info.Size() > 0 {
			f.log.WithFields(logrus.Fields{
				"video_id": videoID,
				"path":     audioPath,
			}).Debug("audio cache hit")
			return audioPath, meta, nil
		}
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return "", nil, apperrors.Internal(op, err, "rate limit wait interrupted")
	}

	f.log.WithFields(logrus.Fields{
		"video_id": videoID,
		"url":      url,
	}).Info("downloading audio")

	dl := ytdlp.New().
		Format("bestaudio/best").
		ExtractAudio().
		AudioFormat("mp3").
		AudioQuality("192K").
		EmbedMetadata().
		NoPlaylist().
		Output(filepath.Join(f.downloadDir, videoID+".%(ext)s"))

	result, err := dl.Run(ctx, url)
	if err != nil {
		return "", nil, &FetchError{URL: url, Err: err}
	}

	meta := metadataFromResult(result)
	if err := f.writeSidecar(videoID, meta); err != nil {
		f.log.WithError(err).WithField("video_id", videoID).Warn("failed to write metadata sidecar")
	}

	if _, err := os.Stat(audioPath); err != nil {
		return "", nil, &FetchError{URL: url, Err: fmt.Errorf("audio file missing after download: %w", err)}
	}
	return audioPath, meta, nil
}

func (f *YTDLPFetcher) Lookup(ctx context.Context, videoID, url string) (*Metadata, error) {
	if meta, ok := f.readSidecar(videoID); ok {
		return meta, nil
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, apperrors.Internal("YTDLPFetcher.Lookup", err, "rate limit wait interrupted")
	}

	result, err := ytdlp.New().SkipDownload().NoPlaylist().Run(ctx, url)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	meta := metadataFromResult(result)
	if err := f.writeSidecar(videoID, meta); err != nil {
		f.log.WithError(err).WithField("video_id", videoID).Warn("failed to write metadata sidecar")
	}
	return meta, nil
}

func (f *YTDLPFetcher) Invalidate(videoID string) error {
	var firstErr error
	for _, path := range []string{f.AudioPath(videoID), f.metadataPath(videoID)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	f.log.WithField("video_id", videoID).Info("invalidated cached media")
	return firstErr
}

func (f *YTDLPFetcher) readSidecar(videoID string) (*Metadata, bool) {
	data, err := os.ReadFile(f.metadataPath(videoID))
	if err != nil {
		return nil, false
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, false
	}
	return &meta, true
}

func (f *YTDLPFetcher) writeSidecar(videoID string, meta *Metadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return os.WriteFile(f.metadataPath(videoID), data, 0o644)
}

func metadataFromResult(result *ytdlp.Result) *Metadata {
	meta := &Metadata{Title: "Untitled"}
	if result == nil {
		return meta
	}
	info, err := result.GetExtractedInfo()
	if err != nil || len(info) == 0 {
		return meta
	}
	entry := info[0]
	if entry.Title != nil {
		meta.Title = *entry.Title
	}
	if entry.Thumbnail != nil {
		meta.Thumbnail = *entry.Thumbnail
	}
	if entry.Duration != nil {
		meta.Duration = *entry.Duration
	}
	if entry.Description != nil {
		meta.Description = *entry.Description
	}
	return meta
}
