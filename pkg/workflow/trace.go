package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dan-solli/llmflows/pkg/trace"
)

// Operation names used in metrics and traces
const (
	OperationGenerateText = "generate_text"
	OperationExtractEvent = "extract_event"
)

// Stage names used in metrics and trace spans
const (
	StageRequest = "request"
	StagePrint   = "print"
)

// run captures timing for one operation from start to finish
type run struct {
	wf        *Workflow
	operation string
	record    *trace.TraceRecord
	start     time.Time
}

func (w *Workflow) startRun(operation string) *run {
	start := w.now()
	return &run{
		wf:        w,
		operation: operation,
		start:     start,
		record: &trace.TraceRecord{
			Timestamp:   start,
			OperationID: uuid.New().String(),
			Operation:   operation,
			Model:       w.model,
			Spans:       make([]trace.SpanRecord, 0, 2),
		},
	}
}

// spanTimer is a helper for measuring span duration
type spanTimer struct {
	name  string
	start time.Time
	run   *run
}

func (r *run) span(name string) *spanTimer {
	return &spanTimer{name: name, start: r.wf.now(), run: r}
}

// finish completes the span and records it to the run's trace and metrics
func (st *spanTimer) finish(ctx context.Context, err error, counters map[string]int64) {
	duration := st.run.wf.now().Sub(st.start).Milliseconds()

	span := trace.SpanRecord{
		Name:       st.name,
		DurationMs: duration,
		OK:         err == nil,
		Counters:   counters,
	}
	if err != nil {
		span.ErrorType = ClassifyError(err)
	}

	st.run.record.Spans = append(st.run.record.Spans, span)
	st.run.wf.metrics.RecordStage(ctx, st.run.operation, st.name, duration)
}

// finish records the outcome of the run. Export failures are logged and
// never replace the run's own error.
func (r *run) finish(ctx context.Context, err error) {
	r.record.DurationMs = r.wf.now().Sub(r.start).Milliseconds()
	r.record.Status = "success"

	// The error itself is reported once, at the process boundary
	event := r.wf.logger.Debug()
	if err != nil {
		r.record.Status = "error"
		r.record.ErrorType = ClassifyError(err)
		r.wf.metrics.RecordError(ctx, r.operation, r.record.ErrorType)
		event = event.Str("error_type", r.record.ErrorType)
	}
	r.wf.metrics.RecordOperation(ctx, r.operation, r.record.Status, r.record.DurationMs)

	event.
		Str("operation", r.operation).
		Str("status", r.record.Status).
		Str("operation_id", r.record.OperationID).
		Int64("duration_ms", r.record.DurationMs).
		Msg("operation finished")

	// The export must outlive a cancelled run context
	if exportErr := r.wf.tracer.Export(context.WithoutCancel(ctx), r.record); exportErr != nil {
		r.wf.logger.Warn().Err(exportErr).Str("operation_id", r.record.OperationID).Msg("trace export failed")
	}
}
