// Package trace exports sanitized per-run operation traces
package trace

import (
	"context"
	"time"
)

// Exporter defines the interface for exporting operation traces.
// Implementations must be safe for concurrent use.
type Exporter interface {
	// Export writes a trace record to the configured destination.
	Export(ctx context.Context, record *TraceRecord) error

	// Close flushes any buffered records and releases resources.
	Close() error
}

// TraceRecord represents a sanitized operation trace ready for export.
// It never carries prompts, completions, extracted fields or credentials.
type TraceRecord struct {
	// Timestamp is the operation start time
	Timestamp time.Time `json:"timestamp"`

	// OperationID uniquely identifies this run (for correlation)
	OperationID string `json:"operationId"`

	// Operation is the operation type: "generate_text" or "extract_event"
	Operation string `json:"operation"`

	// Model is the requested model name
	Model string `json:"model,omitempty"`

	DurationMs int64 `json:"durationMs"`

	// Status is "success" or "error"
	Status string `json:"status"`

	// ErrorType classifies the error (if Status == "error")
	ErrorType string `json:"errorType,omitempty"`

	Spans []SpanRecord `json:"spans"`
}

// SpanRecord represents a single stage within an operation.
type SpanRecord struct {
	// Name is the stage name (request, decode, print)
	Name string `json:"name"`

	DurationMs int64 `json:"durationMs"`

	OK bool `json:"ok"`

	// ErrorType classifies the error (if OK == false)
	ErrorType string `json:"errorType,omitempty"`

	// Counters provides stage-specific counts (e.g. choices, participants)
	Counters map[string]int64 `json:"counters,omitempty"`
}
