package transcription

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

type fakeEngine struct {
	results []func() (*Result, error)
	calls   int
}

func (f *fakeEngine) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	if f.calls >= len(f.results) {
		return nil, errors.New("unexpected engine call")
	}
	r := f.results[f.calls]
	f.calls++
	return r()
}

type fakeValidator struct {
	validOK      bool
	validReason  string
	repairOK     bool
	repairCalls  int
	validCalls   int
	invalidAfter int // fail validation starting at this call number, 0 = never
}

func (f *fakeValidator) Validate(ctx context.Context, path string) (bool, string) {
	f.validCalls++
	if f.invalidAfter > 0 && f.validCalls >= f.invalidAfter {
		return false, f.validReason
	}
	return f.validOK, f.validReason
}

func (f *fakeValidator) RepairMono(ctx context.Context, path string) bool {
	f.repairCalls++
	return f.repairOK
}

func ok(text string) func() (*Result, error) {
	return func() (*Result, error) {
		return &Result{Text: text, Language: "en"}, nil
	}
}

func fail(err error) func() (*Result, error) {
	return func() (*Result, error) { return nil, err }
}

func newTestService(t *testing.T, engine Engine, validator AudioValidator) *Service {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewService(engine, validator, t.TempDir(), 3, log)
}

func TestTranscribeSuccess(t *testing.T) {
	engine := &fakeEngine{results: []func() (*Result, error){ok("hello world")}}
	validator := &fakeValidator{validOK: true}
	svc := newTestService(t, engine, validator)

	result, err := svc.Transcribe(context.Background(), "vid1", "/tmp/vid1.mp3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "hello world" {
		t.Errorf("unexpected text %q", result.Text)
	}

	// second call hits the cache, engine must not run again
	result2, err := svc.Transcribe(context.Background(), "vid1", "/tmp/vid1.mp3")
	if err != nil {
		t.Fatalf("unexpected error on cached call: %v", err)
	}
	if result2.Text != "hello world" || engine.calls != 1 {
		t.Errorf("expected cache hit, engine ran %d times", engine.calls)
	}
}

func TestTranscribeValidationFailureIsImmediate(t *testing.T) {
	engine := &fakeEngine{}
	validator := &fakeValidator{validOK: false, validReason: "Audio file does not exist"}
	svc := newTestService(t, engine, validator)

	_, err := svc.Transcribe(context.Background(), "vid2", "/tmp/vid2.mp3")
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !IsCorruptMedia(err) {
		t.Error("validation failure should count as corrupt media")
	}
	if engine.calls != 0 {
		t.Errorf("engine should not run on invalid audio, ran %d times", engine.calls)
	}
}

func TestTranscribeEmptyTextIsTerminal(t *testing.T) {
	engine := &fakeEngine{results: []func() (*Result, error){ok("   ")}}
	validator := &fakeValidator{validOK: true}
	svc := newTestService(t, engine, validator)

	_, err := svc.Transcribe(context.Background(), "vid3", "/tmp/vid3.mp3")
	var emptyErr *EmptyTranscriptError
	if !errors.As(err, &emptyErr) {
		t.Fatalf("expected EmptyTranscriptError, got %v", err)
	}
	if engine.calls != 1 {
		t.Errorf("empty text must not retry, engine ran %d times", engine.calls)
	}
}

func TestTranscribeFormatFaultRepairsAndRetries(t *testing.T) {
	engine := &fakeEngine{results: []func() (*Result, error){
		fail(&MediaFormatError{Stderr: "tensor size mismatch"}),
		ok("recovered text"),
	}}
	validator := &fakeValidator{validOK: true, repairOK: true}
	svc := newTestService(t, engine, validator)

	result, err := svc.Transcribe(context.Background(), "vid4", "/tmp/vid4.mp3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "recovered text" {
		t.Errorf("unexpected text %q", result.Text)
	}
	if validator.repairCalls != 1 {
		t.Errorf("expected one mono repair, got %d", validator.repairCalls)
	}
}

func TestTranscribeRepairFailureAborts(t *testing.T) {
	engine := &fakeEngine{results: []func() (*Result, error){
		fail(&MediaFormatError{Stderr: "Expected key.size(1)"}),
	}}
	validator := &fakeValidator{validOK: true, repairOK: false}
	svc := newTestService(t, engine, validator)

	_, err := svc.Transcribe(context.Background(), "vid5", "/tmp/vid5.mp3")
	var corruptErr *CorruptMediaError
	if !errors.As(err, &corruptErr) {
		t.Fatalf("expected CorruptMediaError, got %v", err)
	}
	if !corruptErr.RepairFailed {
		t.Error("expected RepairFailed to be set")
	}
	if !IsCorruptMedia(err) {
		t.Error("expected corrupt media classification")
	}
	if engine.calls != 1 {
		t.Errorf("expected a single engine call, got %d", engine.calls)
	}
}

func TestTranscribeFormatFaultOnFinalAttempt(t *testing.T) {
	engine := &fakeEngine{results: []func() (*Result, error){
		fail(&MediaFormatError{Stderr: "tensor size mismatch"}),
		fail(&MediaFormatError{Stderr: "tensor size mismatch"}),
		fail(&MediaFormatError{Stderr: "tensor size mismatch"}),
	}}
	validator := &fakeValidator{validOK: true, repairOK: true}
	svc := newTestService(t, engine, validator)

	_, err := svc.Transcribe(context.Background(), "vid6", "/tmp/vid6.mp3")
	var corruptErr *CorruptMediaError
	if !errors.As(err, &corruptErr) {
		t.Fatalf("expected CorruptMediaError after exhausting attempts, got %v", err)
	}
	if corruptErr.RepairFailed {
		t.Error("expected exhaustion variant, not repair failure")
	}
	if validator.repairCalls != 2 {
		t.Errorf("expected repairs on the first two faults only, got %d", validator.repairCalls)
	}
}

func TestTranscribeGenericErrorRetries(t *testing.T) {
	engine := &fakeEngine{results: []func() (*Result, error){
		fail(errors.New("transient failure")),
		ok("second time lucky"),
	}}
	validator := &fakeValidator{validOK: true}
	svc := newTestService(t, engine, validator)

	result, err := svc.Transcribe(context.Background(), "vid7", "/tmp/vid7.mp3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "second time lucky" {
		t.Errorf("unexpected text %q", result.Text)
	}
}

func TestTranscribeGenericErrorExhausted(t *testing.T) {
	boom := errors.New("engine exploded")
	engine := &fakeEngine{results: []func() (*Result, error){
		fail(boom), fail(boom), fail(boom),
	}}
	validator := &fakeValidator{validOK: true}
	svc := newTestService(t, engine, validator)

	_, err := svc.Transcribe(context.Background(), "vid8", "/tmp/vid8.mp3")
	if err == nil || !errors.Is(err, boom) {
		t.Fatalf("expected wrapped engine error, got %v", err)
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("expected attempt count in error, got %q", err.Error())
	}
	if IsCorruptMedia(err) {
		t.Error("generic failures must not trigger cache cleanup")
	}
}

func TestTranscribeEmptyCacheFallsThrough(t *testing.T) {
	engine := &fakeEngine{results: []func() (*Result, error){ok("fresh text")}}
	validator := &fakeValidator{validOK: true}
	svc := newTestService(t, engine, validator)

	// seed a cache entry with no text
	empty, _ := json.Marshal(&Result{Text: "", Language: "en"})
	if err := os.WriteFile(svc.CachePath("vid9"), empty, 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := svc.Transcribe(context.Background(), "vid9", "/tmp/vid9.mp3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "fresh text" || engine.calls != 1 {
		t.Errorf("expected empty cache to be ignored, text=%q calls=%d", result.Text, engine.calls)
	}
}

func TestRemoveCache(t *testing.T) {
	svc := newTestService(t, &fakeEngine{}, &fakeValidator{})

	if err := svc.RemoveCache("nothing-there"); err != nil {
		t.Errorf("removing a missing cache should not error: %v", err)
	}

	path := svc.CachePath("vid10")
	if err := os.WriteFile(path, []byte(`{"text":"x"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := svc.RemoveCache("vid10"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected cache file to be gone")
	}
}

func TestIsFormatFault(t *testing.T) {
	tests := []struct {
		stderr string
		want   bool
	}{
		{"RuntimeError: Tensor size mismatch at dim 1", true},
		{"Expected key.size(1) == value.size(1)", true},
		{"cannot reshape tensor of 0 elements", true},
		{"CUDA out of memory", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isFormatFault(tt.stderr); got != tt.want {
			t.Errorf("isFormatFault(%q) = %v, want %v", tt.stderr, got, tt.want)
		}
	}
}
