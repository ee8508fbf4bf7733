package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/datastructures"
)

func latchCommand(root *RootCommand) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "latch",
		Short: "Cluster-wide count down latch.",
	}

	open := func(cmd *cobra.Command, name string) (*datastructures.CountDownLatch, error) {
		l, err := root.scope.DataStructures().CountDownLatch(cmd.Context(), name, 0, false, false)
		if err != nil {
			return nil, err
		}
		if l == nil {
			return nil, notFoundError(datastructures.KindCountDownLatch, name)
		}
		return l, nil
	}

	var autoDelete bool
	create := &cobra.Command{
		Use:   "create <name> <count>",
		Short: "Create the latch and print its count, the count of an existing latch is not modified.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := parseInt("count", args[1])
			if err != nil {
				return err
			}
			l, err := root.scope.DataStructures().CountDownLatch(cmd.Context(), args[0], count, autoDelete, true)
			if err != nil {
				return err
			}
			current, err := l.Count(cmd.Context())
			if err != nil {
				return err
			}
			root.print(cmd, current)
			return nil
		},
	}
	create.Flags().BoolVar(&autoDelete, "auto-delete", false, "Delete the latch when the count reaches zero.")

	count := &cobra.Command{
		Use:   "count <name>",
		Short: "Print the current count.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := open(cmd, args[0])
			if err != nil {
				return err
			}
			current, err := l.Count(cmd.Context())
			if err != nil {
				return err
			}
			root.print(cmd, current)
			return nil
		},
	}

	var n int
	countDown := &cobra.Command{
		Use:   "count-down <name>",
		Short: "Decrement the count and print the new count.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := open(cmd, args[0])
			if err != nil {
				return err
			}
			current, err := l.CountDownN(cmd.Context(), n)
			if err != nil {
				return err
			}
			root.print(cmd, current)
			return nil
		},
	}
	countDown.Flags().IntVarP(&n, "count", "n", 1, "Decrement the count by n.")

	var timeout time.Duration
	await := &cobra.Command{
		Use:   "await <name>",
		Short: "Wait until the count reaches zero, print false on timeout.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := open(cmd, args[0])
			if err != nil {
				return err
			}
			reached, err := l.Await(cmd.Context(), timeout)
			if err != nil {
				return err
			}
			root.print(cmd, reached)
			return nil
		},
	}
	await.Flags().DurationVar(&timeout, "timeout", time.Minute, "Maximum wait time, zero means a single check.")

	cmd.AddCommand(create, count, countDown, await)
	return cmd
}
