package transcription

import "context"

// Segment is one timed span of transcribed speech.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is the full output of a transcription run and the shape of
// the cached <video_id>_transcription.json sidecar.
type Result struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments,omitempty"`
	Language string    `json:"language"`
}

// Engine turns an audio file into text.
type Engine interface {
	Transcribe(ctx context.Context, audioPath string) (*Result, error)
}
