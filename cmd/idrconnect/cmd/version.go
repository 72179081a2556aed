package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/idr-analysis/idrconnect/internal/protocol"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "idrconnect %s (%s)\n", protocol.Version, runtime.Version())
		},
	}
}
