package summary

import "context"

// Generator is a chat completion backend. The production implementation
// talks to Ollama through its OpenAI-compatible API.
type Generator interface {
	Complete(ctx context.Context, model, systemPrompt, userPrompt string) (string, error)
}

// Service produces summaries and categories for transcribed videos.
// Neither method returns an error: generation faults degrade to fixed
// fallback text so the pipeline always completes.
type Service interface {
	Summarize(ctx context.Context, title, transcript string) string
	Categorize(ctx context.Context, title, summary string) string
}
