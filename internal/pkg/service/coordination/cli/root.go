// Package cli implements the coordination command line interface.
//
// Each sub-command opens a data structure by name and performs one operation on it.
// With the etcd store, multiple CLI processes share the data structures.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/keboola/keboola-coordination/internal/pkg/log"
	"github.com/keboola/keboola-coordination/internal/pkg/service/common/cliconfig"
	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/config"
	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/dependencies"
	"github.com/keboola/keboola-coordination/internal/pkg/telemetry"
	"github.com/keboola/keboola-coordination/internal/pkg/utils/errors"
)

// ScopeFactory creates the dependencies scope from the loaded configuration.
type ScopeFactory func(ctx context.Context, cfg config.Config, logger log.Logger, tel telemetry.Telemetry) (dependencies.ServiceScope, error)

type RootCommand struct {
	*cobra.Command
	lookupEnv cliconfig.LookupEnvFn
	newScope  ScopeFactory
	logger    log.Logger
	scope     dependencies.ServiceScope
}

func NewRootCommand(stdout, stderr io.Writer, lookupEnv cliconfig.LookupEnvFn, newScope ScopeFactory) (*RootCommand, error) {
	root := &RootCommand{lookupEnv: lookupEnv, newScope: newScope}
	root.Command = &cobra.Command{
		Use:           "coordination-cli",
		Short:         "Distributed data structures on top of a key-value store.",
		SilenceUsage:  true,
		SilenceErrors: true, // errors are printed by the main function
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return root.init(cmd)
		},
	}

	root.SetOut(stdout)
	root.SetErr(stderr)

	// Configuration flags are shared by all sub-commands
	if err := config.Flags(root.PersistentFlags()); err != nil {
		return nil, err
	}

	root.AddCommand(
		sequenceCommand(root),
		longCommand(root),
		latchCommand(root),
		queueCommand(root),
		removeCommand(root),
	)

	return root, nil
}

// Execute runs the command and closes dependencies.
func (r *RootCommand) Execute(ctx context.Context, args []string) (err error) {
	r.SetArgs(args)
	defer func() {
		if r.scope != nil {
			if closeErr := r.scope.Close(context.WithoutCancel(ctx)); closeErr != nil {
				errs := errors.NewMultiError()
				errs.Append(err, closeErr)
				err = errs.ErrorOrNil()
			}
			r.scope = nil
		}
	}()
	return r.ExecuteContext(ctx)
}

func (r *RootCommand) init(cmd *cobra.Command) error {
	// Root command only prints help
	if cmd == r.Command {
		return nil
	}

	ctx := cmd.Context()

	cfg, err := config.LoadFrom(ctx, cmd.Flags(), r.lookupEnv)
	if err != nil {
		return err
	}

	r.logger = log.NewServiceLogger(r.ErrOrStderr(), cfg.Debug).WithComponent("cli")
	r.logger.Debugf(ctx, "configuration:\n%s", cliconfig.Dump(cfg).String())

	// The CLI has no exporter, spans and metrics are dropped
	r.scope, err = r.newScope(ctx, cfg, r.logger, telemetry.NewNop())
	return err
}

func (r *RootCommand) print(cmd *cobra.Command, v any) {
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), v)
}
