package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// genkitProvider prefixes every model registered by NewGenkitCompleter.
const genkitProvider = "intervoice"

// GenkitCompleter routes completions through a Genkit model registry.
// Each registered model is backed by the same Completer.
type GenkitCompleter struct {
	g            *genkit.Genkit
	defaultModel string
}

// NewGenkitCompleter registers models with Genkit, each delegating to backend.
func NewGenkitCompleter(ctx context.Context, backend Completer, defaultModel string, models ...string) *GenkitCompleter {
	g := genkit.Init(ctx)

	registered := make(map[string]bool)
	for _, name := range append([]string{defaultModel}, models...) {
		if name == "" || registered[name] {
			continue
		}
		registered[name] = true
		defineModel(g, backend, name)
	}

	return &GenkitCompleter{g: g, defaultModel: defaultModel}
}

func defineModel(g *genkit.Genkit, backend Completer, name string) {
	genkit.DefineModel(
		g,
		genkitProvider+"/"+name,
		&ai.ModelOptions{
			Label: name,
			Supports: &ai.ModelSupports{
				Multiturn:  true,
				SystemRole: true,
			},
		},
		func(ctx context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
			text, err := backend.Complete(ctx, name, requestText(req))
			if err != nil {
				return nil, err
			}
			return &ai.ModelResponse{
				Request: req,
				Message: &ai.Message{
					Role:    ai.RoleModel,
					Content: []*ai.Part{ai.NewTextPart(text)},
				},
			}, nil
		},
	)
}

// Complete looks up the model in the registry and generates a single response.
func (c *GenkitCompleter) Complete(ctx context.Context, model, prompt string) (string, error) {
	if model == "" {
		model = c.defaultModel
	}

	m := genkit.LookupModel(c.g, genkitProvider+"/"+model)
	if m == nil {
		return "", NewAPIError(0, fmt.Sprintf("model %q is not registered", model))
	}

	resp, err := m.Generate(ctx, &ai.ModelRequest{
		Messages: []*ai.Message{
			{
				Role:    ai.RoleUser,
				Content: []*ai.Part{ai.NewTextPart(prompt)},
			},
		},
	}, nil)
	if err != nil {
		return "", err
	}
	if resp == nil || resp.Message == nil {
		return "", NewAPIError(0, "empty model response")
	}

	return messageText(resp.Message), nil
}

func requestText(req *ai.ModelRequest) string {
	parts := make([]string, 0, len(req.Messages))
	for _, msg := range req.Messages {
		if text := messageText(msg); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}

func messageText(msg *ai.Message) string {
	var sb strings.Builder
	for _, part := range msg.Content {
		sb.WriteString(part.Text)
	}
	return sb.String()
}
