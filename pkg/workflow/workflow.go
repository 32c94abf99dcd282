// Package workflow runs the text generation and event extraction flows and
// prints their results
package workflow

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/dan-solli/llmflows/pkg/config"
	"github.com/dan-solli/llmflows/pkg/extraction"
	"github.com/dan-solli/llmflows/pkg/generation"
	"github.com/dan-solli/llmflows/pkg/llm"
	"github.com/dan-solli/llmflows/pkg/metrics"
	"github.com/dan-solli/llmflows/pkg/trace"
)

// Default prompts for the two flows
const (
	DefaultSystemPrompt = "You are a helpful assistant."
	DefaultTextPrompt   = "generate a title for a hero section of a travel business"
	DefaultEventPrompt  = "schedule a meeting with John and Jane on Monday which is on feb 12th 2025"
)

// Workflow is the main entry point for running the flows. It owns one
// provider handle; nothing needs releasing except the trace exporter.
type Workflow struct {
	model     string
	generator *generation.TextGenerator
	extractor *extraction.EventExtractor
	out       io.Writer
	logger    zerolog.Logger
	metrics   metrics.Collector
	tracer    trace.Exporter
	now       func() time.Time
}

// Option configures a Workflow
type Option func(*Workflow)

// WithOutput sets where results are printed (default: os.Stdout)
func WithOutput(w io.Writer) Option {
	return func(wf *Workflow) {
		wf.out = w
	}
}

// WithLogger sets the diagnostic logger (default: disabled)
func WithLogger(logger zerolog.Logger) Option {
	return func(wf *Workflow) {
		wf.logger = logger
	}
}

// WithMetrics sets the metrics collector (default: no-op)
func WithMetrics(c metrics.Collector) Option {
	return func(wf *Workflow) {
		wf.metrics = c
	}
}

// WithTraceExporter sets the trace exporter (default: no-op)
func WithTraceExporter(e trace.Exporter) Option {
	return func(wf *Workflow) {
		wf.tracer = e
	}
}

// New creates a Workflow talking to the OpenAI-compatible API described by
// cfg. An invalid cfg fails here, before any request is made.
func New(cfg config.Config, opts ...Option) (*Workflow, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	provider := llm.NewOpenAIProvider(cfg.OpenAIKey, &http.Client{Timeout: cfg.Timeout})
	provider.Model = cfg.Model
	provider.BaseURL = cfg.BaseURL

	wf := NewWithProvider(provider, cfg.Model, opts...)
	provider.Logger = wf.logger
	return wf, nil
}

// NewWithProvider creates a Workflow over an existing provider
func NewWithProvider(provider llm.Provider, model string, opts ...Option) *Workflow {
	wf := &Workflow{
		model:   model,
		out:     os.Stdout,
		logger:  zerolog.Nop(),
		metrics: metrics.NewNoopCollector(),
		tracer:  &trace.NoopExporter{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(wf)
	}

	wf.generator = generation.NewTextGenerator(provider, model)
	wf.extractor = extraction.NewEventExtractor(provider, model)
	wf.extractor.Logger = wf.logger
	return wf
}

// RunText generates a completion for prompt and prints it on its own line.
func (w *Workflow) RunText(ctx context.Context, prompt llm.Prompt) (err error) {
	r := w.startRun(OperationGenerateText)
	defer func() { r.finish(ctx, err) }()

	span := r.span(StageRequest)
	text, err := w.generator.Generate(ctx, prompt)
	span.finish(ctx, err, nil)
	if err != nil {
		return err
	}

	span = r.span(StagePrint)
	_, err = fmt.Fprintln(w.out, text)
	span.finish(ctx, err, nil)
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// RunExtraction extracts a calendar event from prompt and prints its name,
// day, date and participants on separate lines.
func (w *Workflow) RunExtraction(ctx context.Context, prompt llm.Prompt) (err error) {
	r := w.startRun(OperationExtractEvent)
	defer func() { r.finish(ctx, err) }()

	span := r.span(StageRequest)
	event, err := w.extractor.Extract(ctx, prompt)
	var counters map[string]int64
	if event != nil {
		counters = map[string]int64{"participants": int64(len(event.Participants))}
	}
	span.finish(ctx, err, counters)
	if err != nil {
		return err
	}

	span = r.span(StagePrint)
	err = PrintEvent(w.out, event)
	span.finish(ctx, err, nil)
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// PrintEvent writes the event fields one per line. Participants use Go's
// slice formatting, e.g. [John Jane].
func PrintEvent(out io.Writer, event *extraction.CalendarEvent) error {
	for _, v := range []any{event.Name, event.Day, event.Date, event.Participants} {
		if _, err := fmt.Fprintln(out, v); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the trace exporter
func (w *Workflow) Close() error {
	return w.tracer.Close()
}
