package summary

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
	"syscall"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"tubescribe/config"
)

const (
	// FallbackCategory is assigned when categorization cannot produce a
	// usable answer.
	FallbackCategory = "general"

	maxTranscriptChars = 2000
)

// Fixed messages surfaced in place of a summary when generation fails.
const (
	fallbackNotFound   = "Summary failed: Ollama endpoint not found. Ensure Ollama is running with the correct configuration."
	fallbackConnection = "Summary failed: Cannot connect to Ollama. Ensure Ollama server is running (ollama serve)."
	fallbackTimeout    = "Summary failed: Request timeout. The model may be busy. Please try again."
)

type fault int

const (
	faultNotFound fault = iota
	faultConnection
	faultTimeout
	faultOther
)

type service struct {
	gen           Generator
	model         string
	categoryModel string
	prompts       config.PromptsConfig
	log           *logrus.Logger
}

func NewService(gen Generator, cfg config.OllamaConfig, prompts config.PromptsConfig, log *logrus.Logger) Service {
	return &service{
		gen:           gen,
		model:         cfg.Model,
		categoryModel: cfg.CategoryModel,
		prompts:       prompts,
		log:           log,
	}
}

func (s *service) Summarize(ctx context.Context, title, transcript string) string {
	logger := s.log.WithField("title", title)

	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		logger.Warn("empty transcript provided for summarization")
		return "Summary generation failed: Empty transcript provided"
	}
	if len(transcript) > maxTranscriptChars {
		transcript = transcript[:maxTranscriptChars] + "..."
	}

	systemPrompt := s.prompts.SummarySystem
	if systemPrompt == "" {
		systemPrompt = defaultSummarySystem
	}
	userPrompt := fmt.Sprintf("Title: %s\n\nTranscript:\n%s\n\nSummarize the transcript above in plain text.", title, transcript)

	raw, err := s.gen.Complete(ctx, s.model, systemPrompt, userPrompt)
	if err != nil {
		logger.WithError(err).Error("summarization failed")
		return summaryFallback(err)
	}

	cleaned := cleanSummary(raw)
	if isRefusal(cleaned) {
		logger.Warn("model refused to summarize the transcript")
		return "Summary generation failed: Model refused to summarize the transcript"
	}

	logger.WithField("chars", len(cleaned)).Info("summary generated")
	return cleaned
}

func (s *service) Categorize(ctx context.Context, title, summary string) string {
	title = strings.TrimSpace(title)
	summary = strings.TrimSpace(summary)
	if title == "" && summary == "" {
		return FallbackCategory
	}

	systemPrompt := s.prompts.CategorySystem
	if systemPrompt == "" {
		systemPrompt = categorySystemPrompt(s.prompts.Categories)
	}
	if summary == "" {
		summary = "No summary provided"
	}
	userPrompt := fmt.Sprintf("Title: %s\n\nSummary:\n%s\n\nBased on the title and summary above, what is the most appropriate category? Respond with only the category name.", title, summary)

	raw, err := s.gen.Complete(ctx, s.categoryModel, systemPrompt, userPrompt)
	if err != nil {
		s.log.WithError(err).WithField("title", title).Warn("categorization failed, using fallback")
		return FallbackCategory
	}

	category := cleanCategory(raw)
	if category == "" {
		return FallbackCategory
	}
	s.log.WithFields(logrus.Fields{
		"title":    title,
		"category": category,
	}).Info("category determined")
	return category
}

func summaryFallback(err error) string {
	switch classifyFault(err) {
	case faultNotFound:
		return fallbackNotFound
	case faultConnection:
		return fallbackConnection
	case faultTimeout:
		return fallbackTimeout
	default:
		msg := err.Error()
		if len(msg) > 100 {
			msg = msg[:100]
		}
		return "Summary generation failed: " + msg
	}
}

// classifyFault maps transport and API errors onto the coarse buckets
// that decide which fallback message the user sees.
func classifyFault(err error) fault {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 404:
			return faultNotFound
		case apiErr.HTTPStatusCode == 408 || apiErr.HTTPStatusCode == 504:
			return faultTimeout
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return faultTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return faultTimeout
		}
		return faultConnection
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return faultConnection
	}
	return faultOther
}

var (
	bulletRe  = regexp.MustCompile(`(?m)^\s*[-•]\s*`)
	newlineRe = regexp.MustCompile(`\n+`)
)

var summaryPreambles = []string{
	"Here's a concise summary of the transcript:",
	"Here is a concise summary of the transcript:",
	"Summary:",
	"Here's the summary:",
}

// cleanSummary normalizes model output into plain prose: preambles and
// markdown emphasis go away, bullets become sentences, runs of blank
// lines collapse to paragraph breaks.
func cleanSummary(text string) string {
	s := strings.TrimSpace(text)
	for _, p := range summaryPreambles {
		s = strings.ReplaceAll(s, p, "")
	}
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "*", "")
	s = bulletRe.ReplaceAllString(s, "")
	s = newlineRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func isRefusal(summary string) bool {
	lower := strings.ToLower(summary)
	return strings.Contains(lower, "can't") && strings.Contains(lower, "doesn't exist")
}

// cleanCategory reduces model output to a single lowercase category
// name: first line only, list markers and trailing periods stripped.
func cleanCategory(text string) string {
	category := strings.ToLower(strings.TrimSpace(text))
	if i := strings.Index(category, "\n"); i >= 0 {
		category = category[:i]
	}
	category = strings.TrimSpace(category)
	category = strings.TrimPrefix(category, "-")
	category = strings.TrimSpace(category)
	category = strings.TrimPrefix(category, "*")
	category = strings.TrimSpace(category)
	category = strings.TrimSuffix(category, ".")
	return strings.TrimSpace(category)
}
