package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/idr-analysis/idrconnect/internal/content"
	"github.com/idr-analysis/idrconnect/internal/interfaces"
)

func newServerCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Manage the servers checked by 'status'",
	}

	var profile string
	addCmd := &cobra.Command{
		Use:   "add NAME BASE_URL",
		Short: "Register a server by the base URL of its web client",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.app.Deps().Registry.Register(interfaces.RegisteredServer{
				Name:    args[0],
				BaseURL: args[1],
				Profile: profile,
			})
		},
	}
	addCmd.Flags().StringVar(&profile, "profile", "", "profile used for connection tests from the dashboard")

	cmd.AddCommand(
		addCmd,
		&cobra.Command{
			Use:   "remove NAME",
			Short: "Unregister a server",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return root.app.Deps().Registry.Unregister(args[0])
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List registered servers",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				servers, err := root.app.Deps().Registry.Servers()
				if err != nil {
					return err
				}
				table := content.Table{Headers: []string{"NAME", "BASE URL", "PROFILE"}}
				for _, s := range servers {
					table.Rows = append(table.Rows, []string{s.Name, s.BaseURL, s.Profile})
				}
				_, err = fmt.Fprintln(root.app.Stdout(), root.app.Deps().Renderer.Table(table))
				return err
			},
		},
	)
	return cmd
}
