package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
)

const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultModel         = "gpt-4o"
)

// OpenAIProvider implements Provider for OpenAI's Chat Completions API.
// Requests are sent once; failures are returned as-is without retry.
type OpenAIProvider struct {
	APIKey  string
	Model   string
	BaseURL string
	Logger  zerolog.Logger
	client  *http.Client
}

// NewOpenAIProvider creates a new OpenAI provider. A nil httpClient uses a
// client with no timeout of its own.
func NewOpenAIProvider(apiKey string, httpClient *http.Client) *OpenAIProvider {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &OpenAIProvider{
		APIKey:  apiKey,
		Model:   DefaultModel,
		BaseURL: DefaultOpenAIBaseURL,
		Logger:  zerolog.Nop(),
		client:  httpClient,
	}
}

type openAIRequest struct {
	Model          string                `json:"model"`
	Messages       []Message             `json:"messages"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIResponseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *openAIJSONSchema `json:"json_schema,omitempty"`
}

type openAIJSONSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Schema      map[string]any `json:"schema"`
	Strict      bool           `json:"strict"`
}

type openAIMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
	Refusal *string `json:"refusal,omitempty"`
}

type openAIChoice struct {
	Message      openAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type openAIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type openAIResponse struct {
	Model   string         `json:"model"`
	Choices []openAIChoice `json:"choices"`
	Error   *openAIError   `json:"error,omitempty"`
}

// CreateCompletion sends a chat completion request to the OpenAI API
func (o *OpenAIProvider) CreateCompletion(ctx context.Context, req CompletionRequest) (*Completion, error) {
	if o.APIKey == "" {
		return nil, &ConfigurationError{Message: "OPENAI_API_KEY is not set", Err: ErrMissingCredential}
	}
	if err := req.Messages.Validate(); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = o.Model
	}

	reqBody := openAIRequest{
		Model:    model,
		Messages: req.Messages,
	}
	if req.ResponseFormat != nil {
		reqBody.ResponseFormat = &openAIResponseFormat{
			Type: "json_schema",
			JSONSchema: &openAIJSONSchema{
				Name:        req.ResponseFormat.SchemaName(),
				Description: req.ResponseFormat.SchemaDescription(),
				Schema:      req.ResponseFormat.JSONSchema(),
				Strict:      true,
			},
		}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.APIKey)

	o.Logger.Debug().
		Str("model", model).
		Int("messages", len(req.Messages)).
		Bool("structured", req.ResponseFormat != nil).
		Msg("sending chat completion request")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, body)
	}

	var apiResp openAIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to unmarshal response: %w", err)}
	}

	if apiResp.Error != nil {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Type: apiResp.Error.Type, Message: apiResp.Error.Message}
	}

	completion := &Completion{
		Model:   apiResp.Model,
		Choices: make([]Choice, 0, len(apiResp.Choices)),
	}
	for i, c := range apiResp.Choices {
		choice := Choice{
			Message: ResponseMessage{
				Role:    c.Message.Role,
				Content: deref(c.Message.Content),
				Refusal: deref(c.Message.Refusal),
			},
			FinishReason: c.FinishReason,
		}
		// Only the first choice is consumed; later ones keep their raw content
		if req.ResponseFormat != nil && i == 0 {
			if err := parseStructured(&choice, req.ResponseFormat); err != nil {
				return nil, err
			}
		}
		completion.Choices = append(completion.Choices, choice)
	}

	o.Logger.Debug().
		Str("model", completion.Model).
		Int("choices", len(completion.Choices)).
		Msg("chat completion received")

	return completion, nil
}

// parseStructured fills choice.Message.Parsed when the content conforms to
// the schema. Refusals and filtered output leave Parsed nil.
func parseStructured(choice *Choice, format ResponseSchema) error {
	msg := &choice.Message
	switch {
	case msg.Refusal != "":
		return nil
	case choice.FinishReason == "content_filter":
		return nil
	case choice.FinishReason == "length":
		return &SchemaValidationError{
			Schema:     format.SchemaName(),
			Violations: []string{"output truncated before the structured value was complete"},
		}
	case msg.Content == "":
		return nil
	}

	if err := format.Validate([]byte(msg.Content)); err != nil {
		return err
	}
	msg.Parsed = json.RawMessage(msg.Content)
	return nil
}

// statusError maps a non-200 response to the error taxonomy. A rejected
// credential is a configuration problem; everything else is the provider's.
func statusError(status int, body []byte) error {
	providerErr := &ProviderError{StatusCode: status}

	var apiResp openAIResponse
	if err := json.Unmarshal(body, &apiResp); err == nil && apiResp.Error != nil {
		providerErr.Type = apiResp.Error.Type
		providerErr.Message = apiResp.Error.Message
	} else {
		providerErr.Message = string(bytes.TrimSpace(body))
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return &ConfigurationError{Message: "credential rejected by provider", Err: providerErr}
	}
	return providerErr
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
