package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/dan-solli/llmflows/pkg/cli"
)

func main() {
	// A missing .env is normal; the environment may already be set
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger := zerolog.New(os.Stderr)
		logger.Warn().Err(err).Msg("reading .env failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cli.OSEnv(), os.Args[1:])
	stop()
	os.Exit(code)
}

// run executes the command and returns the process exit code
func run(ctx context.Context, env cli.Env, args []string) int {
	cmd := cli.NewBasicCommand(env)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}
