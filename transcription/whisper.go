package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
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

// WhisperEngine runs the whisper CLI as a subprocess and reads back the
// JSON transcript it writes.
type WhisperEngine struct {
	binary string
	model  string
	log    *logrus.Logger
}

func NewWhisperEngine(binary, model string, log *logrus.Logger) *WhisperEngine {
	return &WhisperEngine{binary: binary, model: model, log: log}
}

func (e *WhisperEngine) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	outDir, err := os.MkdirTemp("", "whisper-out")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create whisper output dir")
	}
	defer os.RemoveAll(outDir)

	e.log.WithFields(logrus.Fields{
		"audio": audioPath,
		"model": e.model,
	}).Info("running whisper")

	_, stderr, err := runCommand(ctx, e.binary,
		audioPath,
		"--model", e.model,
		"--output_format", "json",
		"--output_dir", outDir,
		"--fp16", "False",
	)
	if err != nil {
		if isFormatFault(stderr) {
			return nil, &MediaFormatError{Stderr: strings.TrimSpace(stderr)}
		}
		return nil, errors.Wrapf(err, "whisper failed: %s", strings.TrimSpace(stderr))
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	data, err := os.ReadFile(filepath.Join(outDir, base+".json"))
	if err != nil {
		return nil, errors.Wrap(err, "whisper produced no transcript file")
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(err, "failed to parse whisper output")
	}
	if result.Language == "" {
		result.Language = "unknown"
	}
	return &result, nil
}

// isFormatFault matches the engine errors caused by channel layout or
// tensor shape problems, which a mono re-encode can fix.
func isFormatFault(stderr string) bool {
	lower := strings.ToLower(stderr)
	return strings.Contains(lower, "tensor size mismatch") ||
		strings.Contains(stderr, "Expected key.size(1)") ||
		strings.Contains(stderr, "0 elements")
}
