package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/idr-analysis/idrconnect/internal/protocol"
	"github.com/idr-analysis/idrconnect/internal/ui/components"
)

func newProbeCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "probe [BASE_URL]",
		Short: "Check that a server's web client answers",
		Long: fmt.Sprintf(`Open an HTTP session against the web client of BASE_URL
(default %s) and report whether it answered.`, protocol.DefaultBaseURL),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			baseURL := protocol.DefaultBaseURL
			if len(args) == 1 {
				baseURL = args[0]
			}

			start := time.Now()
			session, err := protocol.NewHTTPSession(cmd.Context(), baseURL)
			elapsed := time.Since(start)
			root.app.Deps().Metrics.RecordProbe(baseURL, err == nil, elapsed)
			if err != nil {
				return err
			}

			message := fmt.Sprintf("%s web client reachable (%s)", session.BaseURL, elapsed.Round(time.Millisecond))
			_, err = fmt.Fprintln(root.app.Stdout(), components.RenderStatus("ready", message))
			return err
		},
	}
}
