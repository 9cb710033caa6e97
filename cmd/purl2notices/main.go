// Package main is the entry point for purl2notices.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/grindlemire/graft"
	"go.trai.ch/purl2notices/cmd/purl2notices/commands"
	"go.trai.ch/purl2notices/internal/app"
	"go.trai.ch/purl2notices/internal/core/domain"
	_ "go.trai.ch/purl2notices/internal/wiring"
)

// Exit codes.
const (
	exitOK           = 0
	exitFailure      = 1
	exitInput        = 2
	exitCacheCorrupt = 3
	exitBatchFailure = 4
	exitPersist      = 5
	exitCancelled    = 130
)

// ComponentProvider is a function that returns the application components.
type ComponentProvider func(context.Context) (*app.Components, func(), error)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr,
		func(ctx context.Context) (*app.Components, func(), error) {
			c, _, err := graft.ExecuteFor[*app.Components](ctx)
			return c, func() {}, err
		}))
}

func run(
	ctx context.Context,
	args []string,
	stdout, stderr io.Writer,
	provider ComponentProvider,
	opts ...func(*app.App),
) int {
	// 0. Context with signal handling
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 1. Initialize application components
	components, cleanup, err := provider(ctx)
	if err != nil {
		// Logger is not available yet if initialization failed
		_, _ = fmt.Fprintln(stderr, "Error: "+err.Error())
		return exitFailure
	}
	defer cleanup()

	components.App.WithOutput(stdout, stderr)
	for _, opt := range opts {
		opt(components.App)
	}

	// 2. Interface - CLI
	var cliOpts []commands.Option
	if settings, ok := components.Logger.(commands.LogSettings); ok {
		cliOpts = append(cliOpts, commands.WithLogSettings(settings))
	}
	if closer, ok := components.Logger.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}
	cli := commands.New(components.App, cliOpts...)
	cli.SetArgs(args)
	cli.SetOutput(stdout, stderr)

	// 3. Execution
	if err := cli.Execute(ctx); err != nil {
		components.Logger.Error(err)
		return exitCode(err)
	}
	return exitOK
}

// exitCode maps an error kind to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled), errors.Is(err, domain.ErrCancelled):
		return exitCancelled
	case errors.Is(err, domain.ErrInput):
		return exitInput
	case errors.Is(err, domain.ErrCacheCorrupt):
		return exitCacheCorrupt
	case errors.Is(err, domain.ErrBatchFailure):
		return exitBatchFailure
	case errors.Is(err, domain.ErrPersist):
		return exitPersist
	default:
		return exitFailure
	}
}
