// Package connect resolves connection parameters, optionally fetches a connection
// configuration document, creates an authenticated session and retries once over
// secure websockets when the primary transport is blocked.
package connect

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/idr-analysis/idrconnect/internal/auth"
	"github.com/idr-analysis/idrconnect/internal/config"
	apperrors "github.com/idr-analysis/idrconnect/internal/errors"
	"github.com/idr-analysis/idrconnect/internal/interfaces"
	"github.com/idr-analysis/idrconnect/internal/logging"
	"github.com/idr-analysis/idrconnect/internal/metrics"
	"github.com/idr-analysis/idrconnect/internal/protocol"
	"github.com/idr-analysis/idrconnect/internal/transport"
)

// Connector holds the collaborators of a connection attempt.
type Connector struct {
	resolver    *config.Resolver
	fetcher     interfaces.ConfigFetcher
	factory     interfaces.SessionFactory
	policy      FallbackPolicy
	reporter    Reporter
	diagnostics io.Writer
	logger      *logging.Logger
	metrics     *metrics.Recorder
}

// Option configures a Connector.
type Option func(*Connector)

// WithLookup replaces the environment as the source of missing arguments.
func WithLookup(lookup config.Lookup) Option {
	return func(c *Connector) { c.resolver = config.NewResolver(lookup) }
}

// WithFetcher replaces the HTTP configuration fetcher.
func WithFetcher(f interfaces.ConfigFetcher) Option {
	return func(c *Connector) { c.fetcher = f }
}

// WithSessionFactory replaces the bundled transport factory.
func WithSessionFactory(f interfaces.SessionFactory) Option {
	return func(c *Connector) { c.factory = f }
}

// WithFallbackPolicy replaces DefaultFallbackPolicy.
func WithFallbackPolicy(p FallbackPolicy) Option {
	return func(c *Connector) { c.policy = p }
}

// WithReporter replaces the plain stdout confirmation.
func WithReporter(r Reporter) Option {
	return func(c *Connector) { c.reporter = r }
}

// WithOutput sends the plain confirmation line to w.
func WithOutput(w io.Writer) Option {
	return func(c *Connector) { c.reporter = TextReporter{W: w} }
}

// WithDiagnostics sets where the fallback notice is written. Defaults to stderr.
func WithDiagnostics(w io.Writer) Option {
	return func(c *Connector) { c.diagnostics = w }
}

// WithLogger sets the structured logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Connector) { c.logger = l }
}

// WithMetrics records attempts, fetches and fallbacks on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(c *Connector) { c.metrics = r }
}

// New creates a connector reading IDR_* variables from the environment, fetching
// configuration over HTTPS and connecting with the bundled transport.
func New(opts ...Option) *Connector {
	c := &Connector{
		resolver:    config.NewResolver(config.EnvLookup()),
		policy:      DefaultFallbackPolicy(),
		reporter:    TextReporter{W: os.Stdout},
		diagnostics: os.Stderr,
		logger:      logging.GetConnectLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.fetcher == nil {
		c.fetcher = protocol.NewFetcher(protocol.NewHTTPClient())
	}
	if c.factory == nil {
		c.factory = transport.NewFactory()
	}
	return c
}

// Connect builds a default connector with opts and connects.
func Connect(ctx context.Context, req interfaces.ConnectionRequest, opts ...Option) (*Session, error) {
	return New(opts...).Connect(ctx, req)
}

// NewRequest returns a request with the default verbosity and nothing else set.
func NewRequest() interfaces.ConnectionRequest {
	return interfaces.ConnectionRequest{Verbosity: interfaces.DefaultVerbosity}
}

// attempt is the state of one pass through the pipeline.
type attempt struct {
	number   int
	original string
	endpoint interfaces.ResolvedEndpoint
	config   interfaces.RemoteConfig
}

// Connect runs the pipeline, retrying according to the fallback policy. Every
// returned error is a *errors.ConnectionError whose message is the cause's.
func (c *Connector) Connect(ctx context.Context, req interfaces.ConnectionRequest) (*Session, error) {
	start := time.Now()
	defer func() { c.metrics.ObserveConnect(time.Since(start)) }()

	current := req
	for retries := 0; ; retries++ {
		at := &attempt{number: retries + 1}
		session, err := c.attempt(ctx, current, at)
		if err == nil {
			c.logger.LogConnectionSuccess(at.endpoint.Host, session.ID(), time.Since(start))
			if rerr := c.reporter.Connected(session, current.Verbosity); rerr != nil {
				c.logger.Warn("Could not report connection", slog.String("error", rerr.Error()))
			}
			return session, nil
		}

		if ctx.Err() != nil || !c.policy.allows(retries, err, at.original) {
			c.logger.LogConnectionFailure(at.original, err, time.Since(start))
			return nil, &apperrors.ConnectionError{Op: "connect", Host: at.original, Err: err}
		}

		next := c.policy.Rewrite(current, at.endpoint)
		fmt.Fprintf(c.diagnostics, "Failed to connect: %v, retrying with websockets\n", err)
		c.logger.LogFallback(at.endpoint.Host, deref(next.Host), derefInt(next.Port), err)
		c.metrics.RecordFallback()
		current = next
	}
}

func (c *Connector) attempt(ctx context.Context, req interfaces.ConnectionRequest, at *attempt) (*Session, error) {
	host := c.resolver.Resolve(req.Host, "host", "")
	at.original = host
	port, err := c.resolver.ResolvePort(req.Port, "port", 0)
	if err != nil {
		return nil, err
	}
	creds := auth.Credentials{
		User:     c.resolver.Resolve(req.User, "user", ""),
		Password: c.resolver.Resolve(req.Password, "password", ""),
	}

	args := interfaces.RemoteConfig{}
	if protocol.NeedsConfigFetch(host, port) {
		cfg, bareHost, err := c.fetcher.Fetch(ctx, host)
		c.metrics.RecordConfigFetch(err)
		if err != nil {
			return nil, err
		}
		if cfg != nil {
			args = cfg
		}
		host = bareHost
	}
	at.config = args
	at.endpoint = interfaces.ResolvedEndpoint{
		Host:              host,
		Port:              port,
		TransportExplicit: protocol.NamesLowLevelTransport(host),
	}

	c.logger.LogConnectionAttempt(at.number, host, port, creds.User)
	client, err := c.factory.NewClient(interfaces.ClientOptions{Args: args, Host: host, Port: port})
	if err != nil {
		return nil, err
	}

	label := transportLabel(host)
	if err := client.CreateSession(ctx, creds.SessionArgs()...); err != nil {
		c.metrics.RecordAttempt(label, err)
		_ = client.Close()
		return nil, err
	}
	c.metrics.RecordAttempt(label, nil)
	client.EnableKeepAlive(interfaces.KeepAliveInterval)

	return &Session{client: client, endpoint: at.endpoint, config: args, attempts: at.number}, nil
}

func transportLabel(host string) string {
	if t := protocol.TransportOf(host); t != "" {
		return t
	}
	return "default"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}
