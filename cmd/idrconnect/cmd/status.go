package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/idr-analysis/idrconnect/internal/app"
	"github.com/idr-analysis/idrconnect/internal/connect"
	"github.com/idr-analysis/idrconnect/internal/content"
	"github.com/idr-analysis/idrconnect/internal/ui/components"
	"github.com/idr-analysis/idrconnect/internal/ui/dashboard"
)

func newStatusCommand(root *rootOptions) *cobra.Command {
	var watch, strict bool
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check the web clients of all registered servers",
		Long: `Probe the web client of every registered server and print the result.
With --strict the command fails when any server is not ready. With --watch the
servers are probed in the background and an interactive dashboard shows the
results, their recent history and uptime, and can test a connection to the
selected server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch {
				return runDashboard(cmd.Context(), root.app, interval)
			}
			return printStatus(cmd.Context(), root.app, strict)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "open the interactive dashboard")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit with an error when any server is not ready")
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "probe interval of the dashboard")
	return cmd
}

func printStatus(ctx context.Context, a *app.App, strict bool) error {
	reg := a.Deps().Registry
	results, err := reg.CheckAll(ctx)
	if err != nil {
		return err
	}

	servers, err := reg.Servers()
	if err != nil {
		return err
	}
	baseURLs := make(map[string]string, len(servers))
	for _, s := range servers {
		baseURLs[s.Name] = s.BaseURL
	}

	table := content.Table{Headers: []string{"NAME", "BASE URL", "STATUS", "RESPONSE", "ERROR"}}
	for _, h := range results {
		table.Rows = append(table.Rows, []string{
			h.Name,
			baseURLs[h.Name],
			components.RenderServerStatus(h.Status),
			h.ResponseTime.Round(time.Millisecond).String(),
			h.Error,
		})
	}

	stats := reg.GetStatistics()
	fmt.Fprintln(a.Stdout(), a.Deps().Renderer.Table(table))
	if _, err := fmt.Fprintf(a.Stdout(), "\n%d servers: %d ready, %d offline, %d error\n",
		stats.TotalServers, stats.ReadyServers, stats.OfflineServers, stats.ErrorServers); err != nil {
		return err
	}
	if strict {
		return reg.Failures(results)
	}
	return nil
}

// dashboardRefresh is how often the dashboard re-reads the monitored results.
const dashboardRefresh = time.Second

func runDashboard(ctx context.Context, a *app.App, interval time.Duration) error {
	reg := a.Deps().Registry
	if err := reg.StartMonitoring(ctx, interval); err != nil {
		return err
	}
	defer reg.StopMonitoring()

	model := dashboard.New(reg, connectionTester(a), dashboardRefresh)
	program := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithInput(a.Stdin()),
		tea.WithOutput(a.Stdout()),
	)
	_, err := program.Run()
	return err
}

// connectionTester opens a session for a dashboard target, closes it again and
// returns the confirmation line with the server address.
func connectionTester(a *app.App) dashboard.ConnectFunc {
	quiet := connect.ReporterFunc(func(*connect.Session, int) error { return nil })
	discard := connect.WithDiagnostics(io.Discard)

	return func(ctx context.Context, target dashboard.Target) (string, error) {
		args := app.ConnectArgs{Profile: target.Profile}
		if target.Host != "" {
			args.Host = &target.Host
		}

		session, err := a.Connect(ctx, args, connect.WithReporter(quiet), discard)
		if err != nil {
			return "", err
		}
		defer session.Close()

		message, _ := connect.Announcement(session, 2)
		if session.FellBack() {
			message += " (websockets)"
		}
		return message, nil
	}
}
