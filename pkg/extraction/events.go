// Package extraction provides structured record extraction from model output
package extraction

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dan-solli/llmflows/pkg/llm"
	"github.com/dan-solli/llmflows/pkg/schema"
)

// CalendarEvent is a meeting or appointment extracted from a request
type CalendarEvent struct {
	Name         string   `json:"name"`
	Day          string   `json:"day"`
	Date         string   `json:"date"`
	Participants []string `json:"participants"`
}

// CalendarEventSchema is the wire schema for CalendarEvent. Field order is
// the display order.
var CalendarEventSchema = schema.MustNew("CalendarEvent", "",
	schema.Field{Name: "name", Type: schema.Text},
	schema.Field{Name: "day", Type: schema.Text},
	schema.Field{Name: "date", Type: schema.Text},
	schema.Field{Name: "participants", Type: schema.TextSequence},
)

// EventExtractor extracts calendar events using a completion provider
type EventExtractor struct {
	Provider llm.Provider
	Model    string
	Logger   zerolog.Logger
}

// NewEventExtractor creates a new event extractor. An empty model uses the
// provider's default.
func NewEventExtractor(provider llm.Provider, model string) *EventExtractor {
	return &EventExtractor{
		Provider: provider,
		Model:    model,
		Logger:   zerolog.Nop(),
	}
}

// Extract asks the provider for a CalendarEvent conforming to
// CalendarEventSchema. The provider does the parsing; Extract only reads the
// typed value back from the first choice.
func (e *EventExtractor) Extract(ctx context.Context, prompt llm.Prompt) (*CalendarEvent, error) {
	completion, err := e.Provider.CreateCompletion(ctx, llm.CompletionRequest{
		Model:          e.Model,
		Messages:       prompt,
		ResponseFormat: CalendarEventSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to extract calendar event: %w", err)
	}

	if len(completion.Choices) == 0 {
		return nil, &llm.EmptyResponseError{Model: completion.Model}
	}

	choice := completion.Choices[0]
	if choice.Message.Parsed == nil {
		e.Logger.Warn().
			Str("finish_reason", choice.FinishReason).
			Bool("refusal", choice.Message.Refusal != "").
			Msg("provider returned no structured value")
		return nil, &llm.ParseRefusalError{
			Refusal:      choice.Message.Refusal,
			FinishReason: choice.FinishReason,
		}
	}

	var event CalendarEvent
	if err := CalendarEventSchema.Decode(choice.Message.Parsed, &event); err != nil {
		return nil, fmt.Errorf("failed to decode calendar event: %w", err)
	}

	return &event, nil
}
