// Package llm provides the request/response contract for chat completion
// providers and an OpenAI-compatible implementation
package llm

import (
	"context"
	"encoding/json"
	"errors"
)

// Message roles understood by chat completion providers
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single role-tagged prompt message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Prompt is an ordered sequence of messages. Roles are passed through to the
// provider as hints and are not enforced here.
type Prompt []Message

// NewPrompt builds the common system + user prompt
func NewPrompt(system, user string) Prompt {
	return Prompt{
		{Role: RoleSystem, Content: system},
		{Role: RoleUser, Content: user},
	}
}

// Validate reports whether the prompt can be sent.
func (p Prompt) Validate() error {
	if len(p) == 0 {
		return errors.New("prompt must contain at least one message")
	}
	return nil
}

// ResponseSchema constrains a completion to structured output. The provider
// uses it both to request schema-conforming output and to validate it.
type ResponseSchema interface {
	SchemaName() string
	SchemaDescription() string
	JSONSchema() map[string]any
	Validate(data []byte) error
}

// CompletionRequest is one chat completion call
type CompletionRequest struct {
	Model    string
	Messages Prompt

	// ResponseFormat requests structured output when non-nil
	ResponseFormat ResponseSchema
}

// Completion is the provider's answer
type Completion struct {
	Model   string
	Choices []Choice
}

// Choice is one candidate answer
type Choice struct {
	Message      ResponseMessage
	FinishReason string
}

// ResponseMessage holds the generated content. Parsed is only set on the
// first choice of a structured request, and only when Content conformed to
// the requested schema; a nil Parsed there means the provider declined.
type ResponseMessage struct {
	Role    string
	Content string
	Parsed  json.RawMessage
	Refusal string
}

// Provider defines the interface for a chat completion service
type Provider interface {
	// CreateCompletion sends the request and returns the provider's choices.
	// Structured requests return *SchemaValidationError when the output could
	// not be matched to the schema.
	CreateCompletion(ctx context.Context, req CompletionRequest) (*Completion, error)
}
