package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/idr-analysis/idrconnect/internal/app"
	"github.com/idr-analysis/idrconnect/internal/connect"
	"github.com/idr-analysis/idrconnect/internal/ui/prompt"
)

type connectOptions struct {
	*rootOptions

	profile        string
	host           string
	port           int
	user           string
	password       string
	promptPassword bool
	verbosity      int
	asJSON         bool
	hold           time.Duration
}

func newConnectCommand(root *rootOptions) *cobra.Command {
	opts := &connectOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Open a session and report where it connected",
		Long: `Open a session using flags, an optional profile and the IDR_* environment,
in that order of precedence.

A bare host name (or a URL of a configuration document) is looked up at
https://HOST/connection/omero-client.json first. If the default transport is
refused, the connection is retried once over wss://HOST/omero-ws.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.profile, "profile", "", "profile to read connection arguments from")
	flags.StringVar(&opts.host, "host", "", "host name, configuration URL or transport URL (tcp://, ssl://, ws://, wss://)")
	flags.IntVar(&opts.port, "port", 0, "server port")
	flags.StringVar(&opts.user, "user", "", "user name")
	flags.StringVar(&opts.password, "password", "", "password")
	flags.BoolVar(&opts.promptPassword, "prompt-password", false, "read the password from the terminal")
	flags.IntVarP(&opts.verbosity, "verbosity", "v", 1, "0: silent, 1: confirm, 2: confirm with server address")
	flags.BoolVar(&opts.asJSON, "json", false, "print the session as JSON")
	flags.DurationVar(&opts.hold, "hold", 0, "keep the session open for this long (until interrupted when negative)")
	cmd.MarkFlagsMutuallyExclusive("password", "prompt-password")

	return cmd
}

func (o *connectOptions) args(cmd *cobra.Command) app.ConnectArgs {
	args := app.ConnectArgs{Profile: o.profile}
	flags := cmd.Flags()
	if flags.Changed("host") {
		args.Host = &o.host
	}
	if flags.Changed("port") {
		args.Port = &o.port
	}
	if flags.Changed("user") {
		args.User = &o.user
	}
	if flags.Changed("password") {
		args.Password = &o.password
	}
	if flags.Changed("verbosity") {
		args.Verbosity = &o.verbosity
	}
	return args
}

func (o *connectOptions) run(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := o.args(cmd)
	if o.promptPassword {
		password, err := prompt.Password(ctx, o.app.Stdin(), o.app.Stderr(), "Password:")
		if err != nil {
			return err
		}
		args.Password = &password
	}

	session, err := o.app.Connect(ctx, args)
	if err != nil {
		return err
	}
	defer session.Close()

	if o.asJSON {
		if err := o.printSession(session); err != nil {
			return err
		}
	}

	return holdSession(ctx, o.hold)
}

// sessionDocument is the JSON form of a session.
type sessionDocument struct {
	SessionID string `json:"sessionId"`
	Host      string `json:"host"`
	Port      int    `json:"port,omitempty"`
	Transport string `json:"transport,omitempty"`
	Remote    string `json:"remote,omitempty"`
	Attempts  int    `json:"attempts"`
	FellBack  bool   `json:"fellBack"`
}

func (o *connectOptions) printSession(session *connect.Session) error {
	doc := sessionDocument{
		SessionID: session.ID(),
		Host:      session.Endpoint().Host,
		Port:      session.Endpoint().Port,
		Attempts:  session.Attempts(),
		FellBack:  session.FellBack(),
	}
	if info, err := session.Info(); err == nil {
		doc.Transport = info.Transport
		doc.Remote = fmt.Sprintf("%s:%d", info.RemoteAddress, info.RemotePort)
	}

	out, err := o.app.Deps().Renderer.JSON(doc)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(o.app.Stdout(), out)
	return err
}

// holdSession blocks for d, or until ctx ends when d is negative.
func holdSession(ctx context.Context, d time.Duration) error {
	if d == 0 {
		return nil
	}
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	<-ctx.Done()
	return nil
}
