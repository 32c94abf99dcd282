package workflow

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/dan-solli/llmflows/pkg/llm"
)

// Error type constants for classification
const (
	ErrTypeConfiguration = "configuration"
	ErrTypeProvider      = "provider"
	ErrTypeSchema        = "schema"
	ErrTypeEmptyResponse = "empty_response"
	ErrTypeRefusal       = "refusal"
	ErrTypeNetwork       = "network"
	ErrTypeTimeout       = "timeout"
	ErrTypeValidation    = "validation"
	ErrTypeUnknown       = "unknown"
)

// ClassifyError inspects an error and returns its type classification.
// This enables grouping errors by category in metrics and traces.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}

	// Transport causes are more specific than the ProviderError wrapping them
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTypeTimeout
	}
	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return ErrTypeNetwork
	}

	var (
		cfgErr     *llm.ConfigurationError
		schemaErr  *llm.SchemaValidationError
		emptyErr   *llm.EmptyResponseError
		refusalErr *llm.ParseRefusalError
		provErr    *llm.ProviderError
	)
	switch {
	case errors.As(err, &cfgErr):
		return ErrTypeConfiguration
	case errors.As(err, &schemaErr):
		return ErrTypeSchema
	case errors.As(err, &emptyErr):
		return ErrTypeEmptyResponse
	case errors.As(err, &refusalErr):
		return ErrTypeRefusal
	case errors.As(err, &provErr):
		return ErrTypeProvider
	}

	errStrLower := strings.ToLower(err.Error())

	if strings.Contains(errStrLower, "timeout") || strings.Contains(errStrLower, "deadline exceeded") {
		return ErrTypeTimeout
	}

	if strings.Contains(errStrLower, "connection refused") ||
		strings.Contains(errStrLower, "connection reset") ||
		strings.Contains(errStrLower, "no such host") ||
		strings.Contains(errStrLower, "network is unreachable") ||
		strings.Contains(errStrLower, "dial tcp") ||
		strings.Contains(errStrLower, "eof") {
		return ErrTypeNetwork
	}

	if strings.Contains(errStrLower, "validation") ||
		strings.Contains(errStrLower, "invalid") ||
		strings.Contains(errStrLower, "required") ||
		strings.Contains(errStrLower, "at least one") ||
		strings.Contains(errStrLower, "must be") {
		return ErrTypeValidation
	}

	return ErrTypeUnknown
}
