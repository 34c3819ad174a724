package transcription

import (
	"errors"
	"fmt"
)

// ValidationError means the audio file failed the ffprobe checks. The
// pipeline treats this as a corrupted download and purges the cache.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Audio validation failed: %s", e.Reason)
}

// MediaFormatError is a transcription engine fault caused by the shape
// of the audio, typically a channel or tensor size mismatch. It is
// repairable by downmixing to mono.
type MediaFormatError struct {
	Stderr string
}

func (e *MediaFormatError) Error() string {
	return fmt.Sprintf("audio format issue: %s", e.Stderr)
}

// EmptyTranscriptError means the engine ran but produced no text.
// Retrying cannot help, so the pipeline fails the task immediately.
type EmptyTranscriptError struct{}

func (e *EmptyTranscriptError) Error() string {
	return "Transcription returned empty text - the audio contains no speech content. " +
		"This often happens with: 1) Music videos 2) Silent videos 3) Videos with sound effects but no voice 4) Very short clips (< 5s). " +
		"Try a video with spoken narration."
}

// CorruptMediaError means the audio could not be made transcribable,
// either because the mono repair failed or because format faults
// persisted through every attempt.
type CorruptMediaError struct {
	FileSize     int64
	RepairFailed bool
}

func (e *CorruptMediaError) Error() string {
	if e.RepairFailed {
		return fmt.Sprintf("Video cannot be transcribed. The audio appears corrupted or empty (size: %d bytes). "+
			"Common causes: 1) Silent videos with no speech 2) Very short videos (< 1 second) 3) Videos with audio track as music/sound effects but no narration. "+
			"Please try a different video with spoken content and narration.", e.FileSize)
	}
	return fmt.Sprintf("Transcription failed: Video has no detectable speech content (file size: %d bytes). "+
		"This happens with: silent videos, music videos, very short videos, or videos with no audio track. "+
		"Please use a video with spoken narration.", e.FileSize)
}

// IsCorruptMedia reports whether an error indicates the cached audio is
// unusable and should be deleted before any retry.
func IsCorruptMedia(err error) bool {
	var validationErr *ValidationError
	var corruptErr *CorruptMediaError
	return errors.As(err, &validationErr) || errors.As(err, &corruptErr)
}
