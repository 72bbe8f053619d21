package feedback

import (
	"context"
	"fmt"
	"strings"

	"intervoice/internal/core"
	"intervoice/internal/llm"
)

// DefaultMaxRetries is the structured generation budget for one assessment.
const DefaultMaxRetries = 3

const defaultOpenAIModel = "gpt-4o-mini"

// NewCompleter builds the configured LLM backend and registers its model with Genkit.
// It returns the completer and the model name assessments should use.
func NewCompleter(ctx context.Context, cfg *core.Config) (llm.Completer, string, error) {
	model := cfg.DefaultModel

	var backend llm.Completer
	switch cfg.LLMBackend {
	case "openai":
		// OpenRouter names look like vendor/model and mean nothing to OpenAI
		if model == "" || strings.Contains(model, "/") {
			model = defaultOpenAIModel
		}
		c, err := llm.NewOpenAICompleter(cfg.OpenAIAPIKey, "", model)
		if err != nil {
			return nil, "", fmt.Errorf("openai backend: %w", err)
		}
		backend = c
	case "openrouter", "":
		c, err := llm.NewClient(&llm.Config{
			APIKey:       cfg.OpenRouterAPIKey,
			BaseURL:      llm.DefaultBaseURL,
			DefaultModel: model,
			MaxRetries:   DefaultMaxRetries,
		})
		if err != nil {
			return nil, "", fmt.Errorf("openrouter backend: %w", err)
		}
		backend = c
	default:
		return nil, "", fmt.Errorf("unsupported LLM backend %q", cfg.LLMBackend)
	}

	return llm.NewGenkitCompleter(ctx, backend, model), model, nil
}
