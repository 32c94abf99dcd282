// Package generation produces free-text completions
package generation

import (
	"context"
	"fmt"

	"github.com/dan-solli/llmflows/pkg/llm"
)

// TextGenerator turns a prompt into a single text response
type TextGenerator struct {
	Provider llm.Provider
	Model    string
}

// NewTextGenerator creates a new generator. An empty model uses the
// provider's default.
func NewTextGenerator(provider llm.Provider, model string) *TextGenerator {
	return &TextGenerator{
		Provider: provider,
		Model:    model,
	}
}

// Generate returns the content of the first choice. Only that choice is
// consumed; a response without choices is an *llm.EmptyResponseError.
func (g *TextGenerator) Generate(ctx context.Context, prompt llm.Prompt) (string, error) {
	completion, err := g.Provider.CreateCompletion(ctx, llm.CompletionRequest{
		Model:    g.Model,
		Messages: prompt,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", &llm.EmptyResponseError{Model: completion.Model}
	}

	return completion.Choices[0].Message.Content, nil
}
