package cli

import (
	"github.com/spf13/cobra"

	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/datastructures"
)

func queueCommand(root *RootCommand) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Cluster-wide FIFO queue of strings.",
	}

	open := func(cmd *cobra.Command, name string) (*datastructures.Queue[string], error) {
		q, err := datastructures.OpenQueue[string](cmd.Context(), root.scope.DataStructures(), name, 0, false, false)
		if err != nil {
			return nil, err
		}
		if q == nil {
			return nil, notFoundError(datastructures.KindQueue, name)
		}
		return q, nil
	}

	var capacity int
	var collocated bool
	offer := &cobra.Command{
		Use:   "offer <name> <item>...",
		Short: "Append items to the queue, the queue is created if it does not exist.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			q, err := datastructures.OpenQueue[string](ctx, root.scope.DataStructures(), args[0], capacity, collocated, true)
			if err != nil {
				return err
			}
			for _, item := range args[1:] {
				if err := q.Offer(ctx, item); err != nil {
					return err
				}
			}
			return nil
		},
	}
	offer.Flags().IntVar(&capacity, "capacity", 0, "Capacity of a new queue, 0 means unbounded.")
	offer.Flags().BoolVar(&collocated, "collocated", true, "Store all items of a new queue in one partition.")

	var wait bool
	poll := &cobra.Command{
		Use:   "poll <name>",
		Short: "Remove and print the head item.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			q, err := open(cmd, args[0])
			if err != nil {
				return err
			}
			if wait {
				item, err := q.Take(ctx)
				if err != nil {
					return err
				}
				root.print(cmd, item)
				return nil
			}
			item, ok, err := q.Poll(ctx)
			if err != nil {
				return err
			}
			if ok {
				root.print(cmd, item)
			}
			return nil
		},
	}
	poll.Flags().BoolVar(&wait, "wait", false, "Wait for an item, if the queue is empty.")

	peek := &cobra.Command{
		Use:   "peek <name>",
		Short: "Print the head item without removing it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := open(cmd, args[0])
			if err != nil {
				return err
			}
			item, ok, err := q.Peek(cmd.Context())
			if err != nil {
				return err
			}
			if ok {
				root.print(cmd, item)
			}
			return nil
		},
	}

	items := &cobra.Command{
		Use:   "items <name>",
		Short: "Print all items from the head to the tail.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := open(cmd, args[0])
			if err != nil {
				return err
			}
			all, err := q.Items(cmd.Context())
			if err != nil {
				return err
			}
			for _, item := range all {
				root.print(cmd, item)
			}
			return nil
		},
	}

	size := &cobra.Command{
		Use:   "size <name>",
		Short: "Print count of items.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := open(cmd, args[0])
			if err != nil {
				return err
			}
			n, err := q.Size(cmd.Context())
			if err != nil {
				return err
			}
			root.print(cmd, n)
			return nil
		},
	}

	var batchSize int
	clearCmd := &cobra.Command{
		Use:   "clear <name>",
		Short: "Remove all items, the queue is kept.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := open(cmd, args[0])
			if err != nil {
				return err
			}
			return q.Clear(cmd.Context(), batchSize)
		},
	}
	clearCmd.Flags().IntVar(&batchSize, "batch-size", 0, "Items deleted by one transaction, 0 means the configured default.")

	cmd.AddCommand(offer, poll, peek, items, size, clearCmd)
	return cmd
}
