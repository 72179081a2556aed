// Command idrmock runs a local stand-in for an IDR server: it publishes a connection
// document, answers the web client probe and accepts logins over websockets and,
// optionally, a newline-delimited tcp socket.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/idr-analysis/idrconnect/internal/logging"
	"github.com/idr-analysis/idrconnect/internal/protocol"
	"github.com/idr-analysis/idrconnect/internal/transport/transporttest"
)

type options struct {
	addr         string
	streamAddr   string
	users        map[string]string
	configFile   string
	configStatus int
	logLevel     string
}

func main() {
	if err := newCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "idrmock",
		Short: "Run a local IDR stand-in for connection tests",
		Long: `idrmock serves:

  GET  /connection/omero-client.json  connection document
  GET  /webclient/                    web client probe
  GET  /omero-ws                      websocket login endpoint

Connect to it with:

  idrconnect connect --host ws://localhost:8080/omero-ws --user public
  idrconnect connect --host tcp://localhost:4063 --user public   (with --stream-addr :4063)`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return opts.run(ctx)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.addr, "addr", ":8080", "HTTP and websocket listen address")
	flags.StringVar(&opts.streamAddr, "stream-addr", "", "tcp listen address for newline-delimited logins (disabled when empty)")
	flags.StringToStringVar(&opts.users, "user", nil, "accepted user=password pairs (any user when none are given)")
	flags.StringVar(&opts.configFile, "config-file", "", "JSON file served as the connection document")
	flags.IntVar(&opts.configStatus, "config-status", http.StatusOK, "HTTP status of the connection document")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	return cmd
}

// backend builds the served state from the options.
func (o *options) backend() (*transporttest.Backend, error) {
	b := transporttest.NewBackend()
	for user, password := range o.users {
		b.AddUser(user, password)
	}
	b.SetConfigStatus(o.configStatus)

	if o.configFile != "" {
		data, err := os.ReadFile(o.configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		var cfg map[string]any
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config file %s is not a JSON object: %w", o.configFile, err)
		}
		b.SetConfig(cfg)
	}
	return b, nil
}

func (o *options) run(ctx context.Context) error {
	level, err := logging.ParseLevel(o.logLevel)
	if err != nil {
		return err
	}
	logConfig := logging.DefaultConfig()
	logConfig.Level = level
	if err := logging.InitGlobalLogger(logConfig); err != nil {
		return err
	}
	logger := logging.GetGlobalLogger().WithComponent("idrmock")

	b, err := o.backend()
	if err != nil {
		return err
	}

	if o.streamAddr != "" {
		l, err := net.Listen("tcp", o.streamAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", o.streamAddr, err)
		}
		defer l.Close()
		go func() {
			if err := b.ServeStream(l, protocol.TransportTCP); err != nil && !errors.Is(err, net.ErrClosed) {
				logger.Error("Stream listener stopped", "error", err.Error())
			}
		}()
		logger.Info("Stream listener started", "address", l.Addr().String())
	}

	server := &http.Server{
		Addr:              o.addr,
		Handler:           b.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("Mock server starting", "address", o.addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
