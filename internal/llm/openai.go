package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAICompleter talks to the OpenAI chat completions API, or any compatible endpoint.
type OpenAICompleter struct {
	client       *openai.Client
	defaultModel string
}

// NewOpenAICompleter creates a completer. An empty baseURL uses the public OpenAI endpoint.
func NewOpenAICompleter(apiKey, baseURL, defaultModel string) (*OpenAICompleter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("APIKey is required")
	}
	if defaultModel == "" {
		defaultModel = openai.GPT4oMini
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAICompleter{
		client:       openai.NewClientWithConfig(cfg),
		defaultModel: defaultModel,
	}, nil
}

// Complete sends prompt as a single user message and returns the first choice.
func (c *OpenAICompleter) Complete(ctx context.Context, model, prompt string) (string, error) {
	if model == "" {
		model = c.defaultModel
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", NewAPIError(apiErr.HTTPStatusCode, apiErr.Message)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return "", NewTimeoutError(err)
		}
		return "", NewNetworkError(err)
	}

	if len(resp.Choices) == 0 {
		return "", NewAPIError(0, "no choices in response")
	}

	return resp.Choices[0].Message.Content, nil
}
