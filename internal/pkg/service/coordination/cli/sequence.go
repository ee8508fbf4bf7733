package cli

import (
	"github.com/spf13/cobra"

	"github.com/keboola/keboola-coordination/internal/pkg/utils/errors"
)

func sequenceCommand(root *RootCommand) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sequence",
		Short: "Cluster-wide unique increasing numbers.",
	}

	var initVal int64
	var count, batchSize int
	next := &cobra.Command{
		Use:   "next <name>",
		Short: "Print next values of the sequence, the sequence is created if it does not exist.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return errors.Errorf(`count must be greater than 0, found %d`, count)
			}

			ctx := cmd.Context()
			seq, err := root.scope.DataStructures().Sequence(ctx, args[0], initVal, true)
			if err != nil {
				return err
			}

			if batchSize > 0 {
				if err := seq.SetBatchSize(batchSize); err != nil {
					return err
				}
			}

			for range count {
				v, err := seq.IncrementAndGet(ctx)
				if err != nil {
					return err
				}
				root.print(cmd, v)
			}
			return nil
		},
	}
	next.Flags().Int64Var(&initVal, "init", 0, "Initial value, if the sequence is created.")
	next.Flags().IntVar(&count, "count", 1, "Number of values.")
	next.Flags().IntVar(&batchSize, "batch-size", 0, "Values reserved by one store write, 0 means the configured default.")

	cmd.AddCommand(next)
	return cmd
}
