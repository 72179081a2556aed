// Package app wires the configuration store, registry, renderer, metrics and the
// connection core together for the command-line front-end.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/idr-analysis/idrconnect/internal/config"
	"github.com/idr-analysis/idrconnect/internal/connect"
	"github.com/idr-analysis/idrconnect/internal/content"
	apperrors "github.com/idr-analysis/idrconnect/internal/errors"
	"github.com/idr-analysis/idrconnect/internal/interfaces"
	"github.com/idr-analysis/idrconnect/internal/logging"
	"github.com/idr-analysis/idrconnect/internal/metrics"
	"github.com/idr-analysis/idrconnect/internal/registry"
	"github.com/idr-analysis/idrconnect/internal/ui/components"
)

// Options configure the application. Zero values select the process defaults.
type Options struct {
	ConfigPath string
	Lookup     config.Lookup
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer
	Color      bool
	Theme      string
	Logger     *logging.Logger
}

// Dependencies holds all injected application dependencies
type Dependencies struct {
	ConfigManager interfaces.ConfigManager
	Registry      *registry.Manager
	Renderer      *content.Renderer
	Metrics       *metrics.Recorder
	Gatherer      *prometheus.Registry
	Errors        *apperrors.Handler
	Logger        *logging.Logger
}

// App is the CLI application with all dependencies injected
type App struct {
	deps Dependencies
	opts Options
}

// ConnectArgs are the connection flags of the connect command. Nil means the flag was
// not given.
type ConnectArgs struct {
	Profile   string
	Host      *string
	Port      *int
	User      *string
	Password  *string
	Verbosity *int
}

// New initializes all application dependencies.
func New(opts Options) (*App, error) {
	if opts.Lookup == nil {
		opts.Lookup = config.EnvLookup()
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetGlobalLogger()
	}

	deps := Dependencies{
		Errors: apperrors.NewHandler(),
		Logger: opts.Logger,
	}

	configManager, err := newConfigManager(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize config manager: %w", err)
	}
	deps.ConfigManager = configManager

	deps.Gatherer = prometheus.NewRegistry()
	recorder, err := metrics.Register(deps.Gatherer)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	deps.Metrics = recorder

	prefs := content.DefaultPreferences()
	prefs.Color = opts.Color
	if opts.Theme != "" {
		prefs.Theme = opts.Theme
	}
	renderer, err := content.NewRenderer(prefs)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize content renderer: %w", err)
	}
	deps.Renderer = renderer

	registryManager, err := registry.NewManager(configManager, registry.WithMetrics(recorder))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize registry manager: %w", err)
	}
	deps.Registry = registryManager

	deps.Logger.Debug("Application components initialized", "config", configManager.GetConfigPath())
	return &App{deps: deps, opts: opts}, nil
}

// newConfigManager keeps the encryption salt next to an explicit configuration file.
func newConfigManager(path string) (*config.Manager, error) {
	if path == "" {
		return config.NewManager("")
	}
	security, err := config.NewSecurityManagerAt(filepath.Join(filepath.Dir(path), "master.key"))
	if err != nil {
		return nil, err
	}
	return config.NewManagerWithSecurity(path, security)
}

// Deps returns the injected dependencies.
func (a *App) Deps() Dependencies { return a.deps }

// Stdin returns the input stream used for prompts.
func (a *App) Stdin() io.Reader { return a.opts.Stdin }

// Stdout returns the stream command output is written to.
func (a *App) Stdout() io.Writer { return a.opts.Stdout }

// Stderr returns the diagnostics stream.
func (a *App) Stderr() io.Writer { return a.opts.Stderr }

// ConnectionRequest builds a request from flags and the named profile. Flags win over
// the profile; anything neither supplies is left for the IDR_* environment.
func (a *App) ConnectionRequest(args ConnectArgs) (interfaces.ConnectionRequest, error) {
	req := interfaces.ConnectionRequest{
		Host:      args.Host,
		Port:      args.Port,
		User:      args.User,
		Password:  args.Password,
		Verbosity: interfaces.DefaultVerbosity,
	}

	if args.Profile != "" {
		profile, err := a.deps.ConfigManager.LoadProfile(args.Profile)
		if err != nil {
			return req, fmt.Errorf("failed to load profile '%s': %w", args.Profile, err)
		}
		config.ApplyProfile(&req, profile)
		a.deps.Logger.LogConfigLoad(a.deps.ConfigManager.GetConfigPath(), profile.Name)
	}

	if args.Verbosity != nil {
		req.Verbosity = *args.Verbosity
	}
	return req, nil
}

// Connector returns a connector reporting to the application's streams.
func (a *App) Connector(extra ...connect.Option) *connect.Connector {
	var reporter connect.Reporter = connect.TextReporter{W: a.opts.Stdout}
	if a.opts.Color {
		reporter = components.Reporter{W: a.opts.Stdout}
	}

	opts := []connect.Option{
		connect.WithLookup(a.opts.Lookup),
		connect.WithReporter(reporter),
		connect.WithDiagnostics(a.opts.Stderr),
		connect.WithLogger(a.deps.Logger.WithComponent("connect")),
		connect.WithMetrics(a.deps.Metrics),
	}
	return connect.New(append(opts, extra...)...)
}

// Connect resolves args and opens a session.
func (a *App) Connect(ctx context.Context, args ConnectArgs, extra ...connect.Option) (*connect.Session, error) {
	req, err := a.ConnectionRequest(args)
	if err != nil {
		return nil, err
	}
	return a.Connector(extra...).Connect(ctx, req)
}

// RenderError formats err for the terminal: a styled pane in color mode, otherwise
// the message and hint as plain lines.
func (a *App) RenderError(err error) string {
	processed := a.deps.Errors.Process(err)
	if processed == nil {
		return ""
	}
	if a.opts.Color {
		return components.RenderErrorPane(processed, 0)
	}

	var b strings.Builder
	b.WriteString("Error: " + processed.Message)
	if processed.Hint != "" {
		b.WriteString("\nHint: " + processed.Hint)
	}
	return b.String()
}

// WriteMetrics writes every collected metric to path in the text exposition format.
func (a *App) WriteMetrics(path string) error {
	return a.deps.Logger.LogOperation("write_metrics", func() error {
		if err := prometheus.WriteToTextfile(path, a.deps.Gatherer); err != nil {
			return fmt.Errorf("failed to write metrics to %s: %w", path, err)
		}
		return nil
	})
}
