package validation

import (
	"net/url"
	"strings"

	"tubescribe/errors"
)

type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// ValidateURL performs URL validation
func (v *Validator) ValidateURL(urlStr string) error {
	const op = "Validator.ValidateURL"

	if urlStr == "" {
		return errors.InvalidInput(op, nil, "URL is required")
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return errors.InvalidInput(op, err, "Invalid URL format")
	}

	// Protocol validation
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return errors.InvalidInput(op, nil, "URL must use HTTP or HTTPS")
	}

	// Domain validation
	host := parsedURL.Hostname()
	if !strings.Contains(host, "youtube.com") && !strings.Contains(host, "youtu.be") {
		return errors.InvalidInput(op, nil, "Only YouTube URLs are supported")
	}

	if ExtractVideoID(urlStr) == "" {
		return errors.InvalidInput(op, nil, "Could not determine video ID from URL")
	}

	return nil
}

// ExtractVideoID pulls the canonical video identifier from a YouTube URL.
// Cached artifacts (audio, metadata, transcripts) are keyed by this value.
// Returns "" when no identifier can be found.
func ExtractVideoID(urlStr string) string {
	if !strings.Contains(urlStr, "youtube.com") && !strings.Contains(urlStr, "youtu.be") {
		return ""
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}

	if strings.Contains(parsedURL.Hostname(), "youtu.be") {
		return strings.Trim(parsedURL.Path, "/")
	}

	if id := parsedURL.Query().Get("v"); id != "" {
		return id
	}

	// Shorts and embed URLs carry the ID as the last path segment.
	if strings.HasPrefix(parsedURL.Path, "/shorts/") || strings.HasPrefix(parsedURL.Path, "/embed/") {
		parts := strings.Split(strings.Trim(parsedURL.Path, "/"), "/")
		if len(parts) == 2 {
			return parts[1]
		}
	}

	return ""
}
