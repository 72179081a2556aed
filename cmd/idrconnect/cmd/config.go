package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/idr-analysis/idrconnect/internal/protocol"
)

func newConfigCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect server connection documents",
	}

	var showHost bool
	fetchCmd := &cobra.Command{
		Use:   "fetch HOST|URL",
		Short: "Fetch and print a server's connection document",
		Long: `Fetch the connection document a server publishes. A bare host is read from
https://HOST/connection/omero-client.json; a URL is fetched as given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps := root.app.Deps()
			cfg, bareHost, err := protocol.NewFetcher(protocol.NewHTTPClient()).Fetch(cmd.Context(), args[0])
			deps.Metrics.RecordConfigFetch(err)
			if err != nil {
				return err
			}

			if showHost {
				fmt.Fprintf(root.app.Stdout(), "# host: %s\n", bareHost)
			}
			out, err := deps.Renderer.JSON(cfg)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(root.app.Stdout(), out)
			return err
		},
	}
	fetchCmd.Flags().BoolVar(&showHost, "show-host", false, "print the host the document was fetched for")

	cmd.AddCommand(fetchCmd)
	return cmd
}
