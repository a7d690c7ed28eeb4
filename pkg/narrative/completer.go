package narrative

import (
	"context"
	"errors"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Completer sends one system+user prompt pair to a language model.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

var ErrEmptyCompletion = errors.New("model returned no completion")

// OpenAICompleter talks to any OpenAI-compatible chat completions API
type OpenAICompleter struct {
	client      openai.Client
	model       string
	temperature float64
}

// NewOpenAICompleter returns nil when no API key is configured; callers
// then fall back to the rule-based narrative.
func NewOpenAICompleter(baseURL, apiKey, model string) *OpenAICompleter {
	if apiKey == "" {
		return nil
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAICompleter{
		client:      openai.NewClient(opts...),
		model:       model,
		temperature: 0.3,
	}
}

func (c *OpenAICompleter) Model() string { return c.model }

func (c *OpenAICompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}
