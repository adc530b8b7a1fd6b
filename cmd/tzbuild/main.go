package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tzbuild/internal/batch"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps an error to the process exit code: environment problems
// (installer unavailable, lock busy, nothing to process) exit 2, everything
// else 1.
func exitCodeFor(err error) int {
	if errors.Is(err, batch.ErrEnvironment) || errors.Is(err, batch.ErrNoAssets) {
		return 2
	}
	return 1
}
