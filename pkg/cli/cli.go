// Package cli implements the basic and structured commands.
package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dan-solli/llmflows/pkg/config"
	"github.com/dan-solli/llmflows/pkg/llm"
	"github.com/dan-solli/llmflows/pkg/logging"
	"github.com/dan-solli/llmflows/pkg/metrics"
	"github.com/dan-solli/llmflows/pkg/trace"
	"github.com/dan-solli/llmflows/pkg/workflow"
)

// pushTimeout bounds the metrics push after a run
const pushTimeout = 5 * time.Second

// Env is the process environment a command runs against
type Env struct {
	Lookup func(string) (string, bool)
	Stdout io.Writer
	Stderr io.Writer
}

// OSEnv returns the real process environment
func OSEnv() Env {
	return Env{Lookup: os.LookupEnv, Stdout: os.Stdout, Stderr: os.Stderr}
}

type flowFunc func(wf *workflow.Workflow, ctx context.Context, prompt llm.Prompt) error

// NewBasicCommand returns the command that prints a free-text completion.
func NewBasicCommand(env Env) *cobra.Command {
	return newFlowCommand(env, "basic",
		"Generate free text from a fixed prompt",
		workflow.DefaultTextPrompt,
		(*workflow.Workflow).RunText)
}

// NewStructuredCommand returns the command that extracts and prints a
// calendar event.
func NewStructuredCommand(env Env) *cobra.Command {
	return newFlowCommand(env, "structured",
		"Extract a calendar event from a fixed prompt",
		workflow.DefaultEventPrompt,
		(*workflow.Workflow).RunExtraction)
}

func newFlowCommand(env Env, use, short, userPrompt string, flow flowFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:          use,
		Short:        short,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), env, llm.NewPrompt(workflow.DefaultSystemPrompt, userPrompt), flow)
		},
	}
	cmd.SetOut(env.Stdout)
	cmd.SetErr(env.Stderr)
	return cmd
}

func run(ctx context.Context, env Env, prompt llm.Prompt, flow flowFunc) error {
	cfg, err := config.LoadFrom(env.Lookup)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.LogLevel, env.Stderr)

	tracer, err := trace.Open(cfg.TracePath)
	if err != nil {
		return err
	}

	opts := []workflow.Option{
		workflow.WithOutput(env.Stdout),
		workflow.WithLogger(logger),
		workflow.WithTraceExporter(tracer),
	}
	var collector *metrics.MetricsCollector
	if cfg.PushgatewayURL != "" {
		collector = metrics.NewCollector()
		opts = append(opts, workflow.WithMetrics(collector))
	}

	wf, err := workflow.New(cfg, opts...)
	if err != nil {
		tracer.Close()
		return err
	}
	defer func() {
		if err := wf.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing trace exporter")
		}
	}()

	runErr := flow(wf, ctx, prompt)

	if collector != nil {
		pushMetrics(ctx, collector, cfg.PushgatewayURL, logger)
	}
	return runErr
}

// pushMetrics failures never change the exit status
func pushMetrics(ctx context.Context, collector *metrics.MetricsCollector, url string, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
	defer cancel()

	if err := collector.Push(ctx, url); err != nil {
		logger.Warn().Err(err).Msg("metrics push failed")
		return
	}
	logger.Debug().Str("url", url).Msg("metrics pushed")
}
