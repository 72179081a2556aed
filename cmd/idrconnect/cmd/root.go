// Package cmd implements the idrconnect command tree.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/idr-analysis/idrconnect/internal/app"
	"github.com/idr-analysis/idrconnect/internal/config"
	"github.com/idr-analysis/idrconnect/internal/logging"
)

// rootOptions are the global flags plus the application built from them.
type rootOptions struct {
	configPath  string
	logLevel    string
	logFormat   string
	logOutput   string
	theme       string
	noColor     bool
	metricsFile string

	lookup config.Lookup
	app    *app.App
}

// NewRootCommand builds the command tree. lookup replaces the process environment
// for IDR_* variables when non-nil.
func NewRootCommand(lookup config.Lookup) *cobra.Command {
	rootCmd, _ := newRootCommand(lookup)
	return rootCmd
}

func newRootCommand(lookup config.Lookup) (*cobra.Command, *rootOptions) {
	opts := &rootOptions{lookup: lookup}

	rootCmd := &cobra.Command{
		Use:   "idrconnect",
		Short: "Connect to the Image Data Resource and other OMERO servers",
		Long: `idrconnect resolves connection parameters for an OMERO server such as the
Image Data Resource (IDR) and opens a session, falling back to secure websockets
when the default transport is blocked.

Parameters not given on the command line or in a profile are read from
IDR_HOST, IDR_PORT, IDR_USER and IDR_PASSWORD.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.initialize(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.metricsFile == "" || opts.app == nil {
				return nil
			}
			return opts.app.WriteMetrics(opts.metricsFile)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "profile file (default: $XDG_CONFIG_HOME/idrconnect/profiles.yaml)")
	flags.StringVar(&opts.logLevel, "log-level", "error", "log level: debug, info, warn, error")
	flags.StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")
	flags.StringVar(&opts.logOutput, "log-output", "stderr", "log destination: stdout, stderr or a file path")
	flags.StringVar(&opts.theme, "theme", "", "syntax highlighting theme")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")

	rootCmd.AddCommand(
		newConnectCommand(opts),
		newConfigCommand(opts),
		newProbeCommand(opts),
		newProfileCommand(opts),
		newServerCommand(opts),
		newStatusCommand(opts),
		newVersionCommand(),
	)
	return rootCmd, opts
}

// Execute runs the command tree against the process environment and returns the
// exit code.
func Execute() int {
	rootCmd, opts := newRootCommand(nil)
	return run(rootCmd, opts, os.Args[1:])
}

func run(rootCmd *cobra.Command, opts *rootOptions, args []string) int {
	rootCmd.SetArgs(args)
	executed, err := rootCmd.ExecuteC()
	if err == nil {
		return 0
	}
	printError(executed.ErrOrStderr(), opts, err)
	return 1
}

func (o *rootOptions) initialize(cmd *cobra.Command) error {
	level, err := logging.ParseLevel(o.logLevel)
	if err != nil {
		return err
	}
	logConfig := logging.DefaultConfig()
	logConfig.Level = level
	logConfig.Format = o.logFormat
	logConfig.Output = o.logOutput
	if o.logOutput == "stderr" {
		logConfig.Writer = cmd.ErrOrStderr()
	}
	if err := logging.InitGlobalLogger(logConfig); err != nil {
		return err
	}

	a, err := app.New(app.Options{
		ConfigPath: o.configPath,
		Lookup:     o.lookup,
		Stdin:      cmd.InOrStdin(),
		Stdout:     cmd.OutOrStdout(),
		Stderr:     cmd.ErrOrStderr(),
		Color:      !o.noColor && isTerminal(cmd.OutOrStdout()),
		Theme:      o.theme,
		Logger:     logging.GetGlobalLogger(),
	})
	if err != nil {
		return err
	}
	o.app = a
	return nil
}

// printError writes err styled when the application is available.
func printError(w io.Writer, opts *rootOptions, err error) {
	if opts.app != nil {
		fmt.Fprintln(w, opts.app.RenderError(err))
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

// isTerminal reports whether w is a character device.
func isTerminal(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
