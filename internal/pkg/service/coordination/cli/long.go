package cli

import (
	"github.com/spf13/cobra"

	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/datastructures"
)

func longCommand(root *RootCommand) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "long",
		Short: "Cluster-wide atomic counter.",
	}

	// open returns existing atomic long, or creates a new one with zero value
	open := func(cmd *cobra.Command, name string, create bool) (*datastructures.AtomicLong, error) {
		v, err := root.scope.DataStructures().AtomicLong(cmd.Context(), name, 0, create)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, notFoundError(datastructures.KindAtomicLong, name)
		}
		return v, nil
	}

	get := &cobra.Command{
		Use:   "get <name>",
		Short: "Print the current value.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := open(cmd, args[0], false)
			if err != nil {
				return err
			}
			value, err := v.Get(cmd.Context())
			if err != nil {
				return err
			}
			root.print(cmd, value)
			return nil
		},
	}

	add := &cobra.Command{
		Use:   "add <name> <delta>",
		Short: "Add the delta and print the new value, the counter is created if it does not exist.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			delta, err := parseInt64("delta", args[1])
			if err != nil {
				return err
			}
			v, err := open(cmd, args[0], true)
			if err != nil {
				return err
			}
			value, err := v.AddAndGet(cmd.Context(), delta)
			if err != nil {
				return err
			}
			root.print(cmd, value)
			return nil
		},
	}

	cas := &cobra.Command{
		Use:   "cas <name> <expected> <value>",
		Short: "Set the value if the current value equals the expected value, print true on success.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			expected, err := parseInt64("expected", args[1])
			if err != nil {
				return err
			}
			value, err := parseInt64("value", args[2])
			if err != nil {
				return err
			}
			v, err := open(cmd, args[0], false)
			if err != nil {
				return err
			}
			ok, err := v.CompareAndSet(cmd.Context(), expected, value)
			if err != nil {
				return err
			}
			root.print(cmd, ok)
			return nil
		},
	}

	cmd.AddCommand(get, add, cas)
	return cmd
}
