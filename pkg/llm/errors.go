package llm

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors, matchable with errors.Is through the typed errors below.
var (
	ErrMissingCredential = errors.New("missing API credential")
	ErrEmptyResponse     = errors.New("no completion choices returned")
	ErrRefusal           = errors.New("provider refused to produce a structured value")
)

// ConfigurationError reports a missing or rejected credential or an otherwise
// unusable client configuration.
type ConfigurationError struct {
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Message, e.Err)
	}
	return "configuration error: " + e.Message
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// ProviderError is a failure reported by the completion provider or its
// transport. The provider's message is kept verbatim.
type ProviderError struct {
	// StatusCode is the HTTP status, or 0 when the request never got a response
	StatusCode int
	Type       string
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString("provider error")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	if e.Type != "" {
		fmt.Fprintf(&b, " [%s]", e.Type)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// SchemaValidationError means the structured output could not be matched to
// the requested schema.
type SchemaValidationError struct {
	Schema     string
	Violations []string
	Err        error
}

func (e *SchemaValidationError) Error() string {
	msg := fmt.Sprintf("schema validation failed for %q", e.Schema)
	if len(e.Violations) > 0 {
		msg += ": " + strings.Join(e.Violations, "; ")
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SchemaValidationError) Unwrap() error {
	return e.Err
}

// EmptyResponseError is returned when the provider answered with zero choices.
type EmptyResponseError struct {
	Model string
}

func (e *EmptyResponseError) Error() string {
	if e.Model == "" {
		return ErrEmptyResponse.Error()
	}
	return fmt.Sprintf("%s (model %s)", ErrEmptyResponse, e.Model)
}

func (e *EmptyResponseError) Unwrap() error {
	return ErrEmptyResponse
}

// ParseRefusalError is returned when the provider declined to produce a
// structured value instead of returning one.
type ParseRefusalError struct {
	Refusal      string
	FinishReason string
}

func (e *ParseRefusalError) Error() string {
	switch {
	case e.Refusal != "":
		return fmt.Sprintf("%s: %s", ErrRefusal, e.Refusal)
	case e.FinishReason != "":
		return fmt.Sprintf("%s (finish reason %s)", ErrRefusal, e.FinishReason)
	}
	return ErrRefusal.Error()
}

func (e *ParseRefusalError) Unwrap() error {
	return ErrRefusal
}
