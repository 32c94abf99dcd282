package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dan-solli/llmflows/pkg/llm"
)

// fakeProvider is a test implementation of llm.Provider
type fakeProvider struct {
	completion *llm.Completion
	err        error
	lastReq    llm.CompletionRequest
	calls      int
}

func (f *fakeProvider) CreateCompletion(ctx context.Context, req llm.CompletionRequest) (*llm.Completion, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.completion, nil
}

func parsedCompletion(parsed string) *llm.Completion {
	return &llm.Completion{
		Choices: []llm.Choice{{
			Message:      llm.ResponseMessage{Role: llm.RoleAssistant, Content: parsed, Parsed: json.RawMessage(parsed)},
			FinishReason: "stop",
		}},
	}
}

var meetingPrompt = llm.NewPrompt("You are a helpful assistant.",
	"schedule a meeting with John and Jane on Monday which is on feb 12th 2025")

func TestEventExtractorExtract_Success(t *testing.T) {
	fake := &fakeProvider{completion: parsedCompletion(
		`{"name":"Meeting with John and Jane","day":"Monday","date":"2025-02-12","participants":["John","Jane"]}`)}
	extractor := NewEventExtractor(fake, "gpt-4o")

	event, err := extractor.Extract(context.Background(), meetingPrompt)
	require.NoError(t, err)

	assert.Equal(t, &CalendarEvent{
		Name:         "Meeting with John and Jane",
		Day:          "Monday",
		Date:         "2025-02-12",
		Participants: []string{"John", "Jane"},
	}, event)
}

func TestEventExtractorExtract_SendsSchema(t *testing.T) {
	fake := &fakeProvider{completion: parsedCompletion(
		`{"name":"n","day":"d","date":"x","participants":[]}`)}
	extractor := NewEventExtractor(fake, "gpt-4o")

	_, err := extractor.Extract(context.Background(), meetingPrompt)
	require.NoError(t, err)

	assert.Equal(t, 1, fake.calls)
	assert.Equal(t, "gpt-4o", fake.lastReq.Model)
	assert.Equal(t, meetingPrompt, fake.lastReq.Messages)
	require.NotNil(t, fake.lastReq.ResponseFormat)
	assert.Equal(t, "CalendarEvent", fake.lastReq.ResponseFormat.SchemaName())

	doc := fake.lastReq.ResponseFormat.JSONSchema()
	assert.Equal(t, []string{"name", "day", "date", "participants"}, doc["required"])
}

func TestEventExtractorExtract_EmptyParticipants(t *testing.T) {
	fake := &fakeProvider{completion: parsedCompletion(
		`{"name":"Focus time","day":"Friday","date":"2025-02-14","participants":[]}`)}
	extractor := NewEventExtractor(fake, "")

	event, err := extractor.Extract(context.Background(), meetingPrompt)
	require.NoError(t, err)

	assert.NotNil(t, event.Participants)
	assert.Empty(t, event.Participants)
}

func TestEventExtractorExtract_Refusal(t *testing.T) {
	fake := &fakeProvider{completion: &llm.Completion{
		Choices: []llm.Choice{{
			Message:      llm.ResponseMessage{Role: llm.RoleAssistant, Refusal: "I can't schedule that."},
			FinishReason: "stop",
		}},
	}}
	extractor := NewEventExtractor(fake, "")

	event, err := extractor.Extract(context.Background(), meetingPrompt)
	assert.Nil(t, event)

	var refusal *llm.ParseRefusalError
	require.True(t, errors.As(err, &refusal), "expected ParseRefusalError, got %v", err)
	assert.Equal(t, "I can't schedule that.", refusal.Refusal)
	assert.True(t, errors.Is(err, llm.ErrRefusal))
}

func TestEventExtractorExtract_NullParsedWithoutRefusalText(t *testing.T) {
	fake := &fakeProvider{completion: &llm.Completion{
		Choices: []llm.Choice{{FinishReason: "content_filter"}},
	}}
	extractor := NewEventExtractor(fake, "")

	_, err := extractor.Extract(context.Background(), meetingPrompt)

	var refusal *llm.ParseRefusalError
	require.True(t, errors.As(err, &refusal))
	assert.Equal(t, "content_filter", refusal.FinishReason)
}

func TestEventExtractorExtract_ZeroChoices(t *testing.T) {
	fake := &fakeProvider{completion: &llm.Completion{Model: "gpt-4o"}}
	extractor := NewEventExtractor(fake, "")

	_, err := extractor.Extract(context.Background(), meetingPrompt)

	var empty *llm.EmptyResponseError
	require.True(t, errors.As(err, &empty), "expected EmptyResponseError, got %v", err)
	assert.True(t, errors.Is(err, llm.ErrEmptyResponse))
}

func TestEventExtractorExtract_ShapeMismatch(t *testing.T) {
	tests := []struct {
		name   string
		parsed string
	}{
		{"extra field", `{"name":"n","day":"d","date":"x","participants":[],"location":"Room 1"}`},
		{"missing field", `{"name":"n","day":"d","participants":[]}`},
		{"wrong type", `{"name":"n","day":"d","date":"x","participants":"John, Jane"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeProvider{completion: parsedCompletion(tt.parsed)}
			extractor := NewEventExtractor(fake, "")

			event, err := extractor.Extract(context.Background(), meetingPrompt)
			assert.Nil(t, event)

			var schemaErr *llm.SchemaValidationError
			assert.True(t, errors.As(err, &schemaErr), "expected SchemaValidationError, got %v", err)
		})
	}
}

func TestEventExtractorExtract_ProviderError(t *testing.T) {
	provErr := &llm.ProviderError{StatusCode: 500, Message: "server error"}
	fake := &fakeProvider{err: fmt.Errorf("wrapped: %w", provErr)}
	extractor := NewEventExtractor(fake, "")

	_, err := extractor.Extract(context.Background(), meetingPrompt)

	var got *llm.ProviderError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, 500, got.StatusCode)
	assert.Contains(t, err.Error(), "failed to extract calendar event")
}

func TestEventExtractorExtract_SchemaErrorFromProvider(t *testing.T) {
	fake := &fakeProvider{err: &llm.SchemaValidationError{Schema: "CalendarEvent"}}
	extractor := NewEventExtractor(fake, "")

	_, err := extractor.Extract(context.Background(), meetingPrompt)

	var schemaErr *llm.SchemaValidationError
	assert.True(t, errors.As(err, &schemaErr))
}
