package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/cli"
	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/dependencies"
	"github.com/keboola/keboola-coordination/internal/pkg/utils/errors"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, errors.PrefixError(err, "fatal error").Error()) // nolint:forbidigo
		os.Exit(1)
	}
}

func run() error {
	// Stop waiting operations on Ctrl+C
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root, err := cli.NewRootCommand(os.Stdout, os.Stderr, os.LookupEnv, dependencies.NewServiceScope) // nolint:forbidigo
	if err != nil {
		return err
	}

	return root.Execute(ctx, os.Args[1:])
}
