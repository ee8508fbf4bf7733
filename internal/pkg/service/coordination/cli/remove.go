package cli

import (
	"github.com/spf13/cobra"

	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/datastructures"
	"github.com/keboola/keboola-coordination/internal/pkg/utils/errors"
)

func removeCommand(root *RootCommand) *cobra.Command {
	var batchSize int
	cmd := &cobra.Command{
		Use:       "remove <kind> <name>",
		Short:     "Remove the data structure, print false if it does not exist.",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"sequence", "long", "latch", "queue"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ds := root.scope.DataStructures()
			name := args[1]

			var removed bool
			var err error
			switch args[0] {
			case "sequence":
				removed, err = ds.RemoveSequence(ctx, name)
			case "long":
				removed, err = ds.RemoveAtomicLong(ctx, name)
			case "latch":
				removed, err = ds.RemoveCountDownLatch(ctx, name)
			case "queue":
				removed, err = ds.RemoveQueueBatched(ctx, name, batchSize)
			default:
				return errors.Errorf(`unexpected kind "%s", expected one of: sequence, long, latch, queue`, args[0])
			}
			if err != nil {
				return err
			}

			root.print(cmd, removed)
			return nil
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", datastructures.NewConfig().RemoveBatchSize, "Queue items deleted by one transaction.")
	return cmd
}
