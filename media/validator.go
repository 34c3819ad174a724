package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	minAudioBytes   = 1024
	minAudioSeconds = 1.0
	maxAudioSeconds = 7200.0

	probeTimeout  = 10 * time.Second
	repairTimeout = 60 * time.Second
)

// runCommand is replaced in tests to avoid spawning real processes.
var runCommand = func(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// Validator checks downloaded audio with ffprobe before it reaches the
// transcription engine, and can re-encode stereo tracks to mono.
type Validator struct {
	log *logrus.Logger
}

func NewValidator(log *logrus.Logger) *Validator {
	return &Validator{log: log}
}

// Validate reports whether an audio file is usable for transcription.
// The returned reason is human readable and surfaces in the video's
// error message when validation fails.
func (v *Validator) Validate(ctx context.Context, path string) (bool, string) {
	info, err := os.Stat(path)
	if err != nil {
		return false, "Audio file does not exist"
	}
	if info.Size() < minAudioBytes {
		return false, fmt.Sprintf("Audio file too small (%d bytes) - video may be silent or have no audio track", info.Size())
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	stdout, _, err := runCommand(probeCtx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		if errors.Is(probeCtx.Err(), context.DeadlineExceeded) {
			return false, "Audio validation timeout"
		}
		return false, "Invalid audio file (ffprobe failed)"
	}

	durationStr := strings.TrimSpace(stdout)
	if durationStr == "" {
		return false, "Unable to read audio duration"
	}
	duration, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return false, "Invalid audio duration format"
	}
	if duration < minAudioSeconds {
		return false, fmt.Sprintf("Audio too short for transcription (%.1fs) - minimum: 1 second", duration)
	}
	if duration > maxAudioSeconds {
		return false, fmt.Sprintf("Audio too long for efficient processing (%.1f minutes) - maximum: 2 hours", duration/60)
	}

	streamCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	_, _, err = runCommand(streamCtx, "ffprobe",
		"-v", "error",
		"-show_entries", "stream=codec_type,duration,nb_samples,codec_name",
		"-select_streams", "a:0",
		"-of", "json",
		path,
	)
	if err != nil {
		if errors.Is(streamCtx.Err(), context.DeadlineExceeded) {
			return false, "Audio validation timeout"
		}
		return false, "Invalid audio stream - may be corrupted or silent"
	}

	return true, fmt.Sprintf("Audio file valid, duration: %.1fs", duration)
}

// RepairMono downmixes a multi-channel audio file to mono in place.
// It returns true when the file is already mono or the conversion
// succeeded, false when the repair could not be performed.
func (v *Validator) RepairMono(ctx context.Context, path string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	stdout, _, err := runCommand(probeCtx, "ffprobe",
		"-v", "error",
		"-show_entries", "stream=channels",
		"-select_streams", "a:0",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		v.log.WithError(err).WithField("path", path).Warn("could not check audio channels")
		return false
	}

	channels := strings.TrimSpace(stdout)
	if channels == "" {
		v.log.WithField("path", path).Warn("no audio stream info available")
		return false
	}
	if channels == "1" || channels == "0" || channels == "unknown" {
		return true
	}

	v.log.WithFields(logrus.Fields{
		"path":     path,
		"channels": channels,
	}).Info("converting audio to mono")

	return v.downmix(ctx, path)
}

func (v *Validator) downmix(ctx context.Context, path string) bool {
	repairCtx, cancel := context.WithTimeout(ctx, repairTimeout)
	defer cancel()

	// ffmpeg cannot write its own input, so encode to a temp file
	// and swap it in on success.
	tmp := path + ".mono.tmp.mp3"
	_, stderr, err := runCommand(repairCtx, "ffmpeg", "-i", path, "-ac", "1", "-y", tmp)
	if err != nil {
		v.log.WithFields(logrus.Fields{
			"path":   path,
			"stderr": strings.TrimSpace(stderr),
		}).Warn("mono conversion failed")
		os.Remove(tmp)
		return false
	}
	if err := os.Rename(tmp, path); err != nil {
		v.log.WithError(err).WithField("path", path).Warn("failed to replace audio with mono version")
		os.Remove(tmp)
		return false
	}
	return true
}
