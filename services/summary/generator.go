package summary

import (
	"context"
	"errors"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"tubescribe/config"
)

var errEmptyResponse = errors.New("model returned empty response")

// OpenAIGenerator completes prompts against any OpenAI-compatible
// endpoint, which is how Ollama is reached.
type OpenAIGenerator struct {
	client      *openai.Client
	temperature float32
	timeout     time.Duration
}

func NewOpenAIGenerator(cfg config.OllamaConfig) *OpenAIGenerator {
	clientCfg := openai.DefaultConfig("ollama")
	clientCfg.BaseURL = cfg.BaseURL
	return &OpenAIGenerator{
		client:      openai.NewClientWithConfig(clientCfg),
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}
}

func (g *OpenAIGenerator) Complete(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Temperature: g.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errEmptyResponse
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errEmptyResponse
	}
	return content, nil
}
