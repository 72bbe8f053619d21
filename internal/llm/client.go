package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Completer sends a single prompt to a model and returns the raw text answer.
// An empty model selects the backend's default.
type Completer interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// Client is the LLM client for interacting with OpenRouter.
type Client struct {
	config *Config
	http   *http.Client
	models map[string]ModelConfig
}

// NewClient creates a new LLM client.
func NewClient(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	config.SetDefaults()

	return &Client{
		config: config,
		http: &http.Client{
			Timeout: config.Timeout,
		},
		models: DefaultModels(),
	}, nil
}

// MaxRetries returns the configured retry budget for structured generation.
func (c *Client) MaxRetries() int {
	return c.config.MaxRetries
}

// OpenRouterRequest represents a request to OpenRouter (OpenAI-compatible).
type OpenRouterRequest struct {
	Model    string          `json:"model"`
	Messages []OpenRouterMsg `json:"messages"`
}

// OpenRouterMsg represents a message in the conversation.
type OpenRouterMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenRouterResponse represents a response from OpenRouter.
type OpenRouterResponse struct {
	Choices []OpenRouterChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// OpenRouterChoice is one completion candidate.
type OpenRouterChoice struct {
	Message OpenRouterMsg `json:"message"`
}

// Complete makes a single HTTP call to the OpenRouter chat completions API.
func (c *Client) Complete(ctx context.Context, model, prompt string) (string, error) {
	if model == "" {
		model = c.config.DefaultModel
	}

	reqBody := OpenRouterRequest{
		Model: model,
		Messages: []OpenRouterMsg{
			{Role: "user", Content: prompt},
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := c.config.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)

	if err != nil {
		slog.Error("OpenRouter HTTP request failed",
			"error", err.Error(),
			"duration", duration,
		)
		if errors.Is(err, context.DeadlineExceeded) {
			return "", NewTimeoutError(err)
		}
		return "", NewNetworkError(err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("Failed to close response body", "error", err)
		}
	}()

	slog.Debug("OpenRouter HTTP request completed",
		"status_code", resp.StatusCode,
		"duration", duration,
	)

	if resp.StatusCode != http.StatusOK {
		var errBody bytes.Buffer
		if _, err := errBody.ReadFrom(resp.Body); err != nil {
			slog.Warn("Failed to read error response body", "error", err)
			return "", NewAPIError(resp.StatusCode, fmt.Sprintf("status %d (failed to read error body)", resp.StatusCode))
		}
		return "", NewAPIError(resp.StatusCode, errBody.String())
	}

	var openrouterResp OpenRouterResponse
	if err := json.NewDecoder(resp.Body).Decode(&openrouterResp); err != nil {
		return "", NewAPIError(resp.StatusCode, fmt.Sprintf("decode response: %v", err))
	}

	if openrouterResp.Error != nil {
		return "", NewAPIError(0, openrouterResp.Error.Message)
	}

	if len(openrouterResp.Choices) == 0 {
		return "", NewAPIError(0, "no choices in response")
	}

	return openrouterResp.Choices[0].Message.Content, nil
}

// GenerateStructured generates a structured output with validation and retry.
// T is the type of the structured output.
// validate is an optional validation function that returns an error if the output is invalid.
// Parse and validation failures are fed back into the next prompt; backend failures stop immediately.
func GenerateStructured[T any](
	ctx context.Context,
	c Completer,
	model string,
	prompt string,
	maxRetries int,
	validate func(*T) error,
) (*T, error) {
	if maxRetries <= 0 {
		maxRetries = 1
	}

	originalPrompt := prompt
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		slog.Info("LLM generation attempt",
			"attempt", attempt,
			"model", model,
			"prompt_length", len(prompt),
		)

		content, err := c.Complete(ctx, model, prompt)
		if err != nil {
			if isFatal(err) {
				return nil, err
			}
			lastErr = err
			continue
		}

		content = cleanMarkdownCodeBlocks(content)

		var result T
		if err := json.Unmarshal([]byte(content), &result); err != nil {
			lastErr = NewParseError(content, err)
			prompt = fmt.Sprintf("%s\n\nPREVIOUS ATTEMPT FAILED:\nError: %v\n\nPlease return valid JSON matching the exact structure requested.", originalPrompt, err)
			continue
		}

		if validate != nil {
			if err := validate(&result); err != nil {
				lastErr = NewValidationError(err.Error(), err)
				slog.Warn("LLM output validation failed",
					"attempt", attempt,
					"error", err.Error(),
				)
				prompt = fmt.Sprintf("%s\n\nPREVIOUS VALIDATION ERROR:\n%v\n\nPlease fix the output to pass validation.", originalPrompt, err)
				continue
			}
		}

		slog.Info("LLM generation succeeded",
			"attempt", attempt,
			"model", model,
		)
		return &result, nil
	}

	return nil, fmt.Errorf("validation failed after %d attempts: %w", maxRetries, lastErr)
}

// cleanMarkdownCodeBlocks removes markdown code block wrappers from JSON
// Some models (especially Gemini) wrap JSON in ```json...```.
func cleanMarkdownCodeBlocks(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSpace(content)
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSpace(content)
	}

	if strings.HasSuffix(content, "```") {
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}

	return content
}
