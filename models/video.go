package models

import (
	"time"
)

type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Pipeline step labels shown to clients while a video is processing.
const (
	StepWaiting      = "Waiting to start..."
	StepDownloading  = "Downloading audio..."
	StepTranscribing = "Transcribing audio..."
	StepSummarizing  = "Generating summary..."
	StepCategorizing = "Categorizing video..."
	StepComplete     = "Complete"
	StepError        = "Error"
)

type Video struct {
	ID             int64     `json:"id"`
	URL            string    `json:"url"`
	Title          string    `json:"title"`
	ThumbnailURL   string    `json:"thumbnail_url,omitempty"`
	TranscriptPath string    `json:"transcript_path,omitempty"`
	Summary        string    `json:"summary,omitempty"`
	Status         Status    `json:"status"`
	CurrentStep    string    `json:"current_step,omitempty"`
	Progress       int       `json:"progress"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	CategoryID     *int64    `json:"category_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Status check methods
func (v *Video) IsQueued() bool     { return v.Status == StatusQueued }
func (v *Video) IsProcessing() bool { return v.Status == StatusProcessing }
func (v *Video) IsCompleted() bool  { return v.Status == StatusCompleted }
func (v *Video) IsFailed() bool     { return v.Status == StatusError }

// IsTerminal reports whether the video has finished processing one way or
// the other.
func (v *Video) IsTerminal() bool {
	return v.Status == StatusCompleted || v.Status == StatusError
}

// VideoResponse represents the API response for a single video, with the
// category resolved inline.
type VideoResponse struct {
	ID             int64             `json:"id"`
	URL            string            `json:"url"`
	Title          string            `json:"title"`
	ThumbnailURL   string            `json:"thumbnail_url"`
	TranscriptPath string            `json:"transcript_path,omitempty"`
	Summary        string            `json:"summary,omitempty"`
	Status         Status            `json:"status"`
	CurrentStep    string            `json:"current_step,omitempty"`
	Progress       int               `json:"progress"`
	ErrorMessage   string            `json:"error_message,omitempty"`
	Category       *CategoryResponse `json:"category"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// NewVideoResponse creates a response from a video model. The category may be
// nil when the video has not been categorized.
func NewVideoResponse(v *Video, c *Category) *VideoResponse {
	resp := &VideoResponse{
		ID:             v.ID,
		URL:            v.URL,
		Title:          v.Title,
		ThumbnailURL:   v.ThumbnailURL,
		TranscriptPath: v.TranscriptPath,
		Summary:        v.Summary,
		Status:         v.Status,
		CurrentStep:    v.CurrentStep,
		Progress:       v.Progress,
		ErrorMessage:   v.ErrorMessage,
		CreatedAt:      v.CreatedAt,
		UpdatedAt:      v.UpdatedAt,
	}
	if c != nil {
		resp.Category = NewCategoryResponse(c)
	}
	return resp
}

// Stats summarizes the state of the video library.
type Stats struct {
	TotalVideos      int `json:"total_videos"`
	CompletedVideos  int `json:"completed_videos"`
	ProcessingVideos int `json:"processing_videos"`
	ErrorVideos      int `json:"error_videos"`
	TotalCategories  int `json:"total_categories"`
}
