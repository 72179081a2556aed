package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/idr-analysis/idrconnect/internal/interfaces"
	"github.com/idr-analysis/idrconnect/internal/logging"
	"github.com/idr-analysis/idrconnect/internal/protocol"
)

// DefaultHandshakeTimeout bounds the websocket upgrade when the context has no deadline.
const DefaultHandshakeTimeout = 30 * time.Second

// Factory builds clients for tcp, ssl, ws and wss endpoints.
type Factory struct {
	wsDialer  *websocket.Dialer
	netDialer *net.Dialer
	tlsConfig *tls.Config
	logger    *logging.Logger
}

// Option configures a Factory.
type Option func(*Factory)

// WithTLSConfig sets the TLS configuration used for ssl and wss endpoints.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(f *Factory) { f.tlsConfig = cfg }
}

// WithHandshakeTimeout overrides DefaultHandshakeTimeout.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(f *Factory) { f.wsDialer.HandshakeTimeout = d }
}

// WithLogger sets the logger handed to every client.
func WithLogger(l *logging.Logger) Option {
	return func(f *Factory) { f.logger = l }
}

// NewFactory creates a factory with proxy-aware websocket dialing.
func NewFactory(opts ...Option) *Factory {
	f := &Factory{
		wsDialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: DefaultHandshakeTimeout,
		},
		netDialer: &net.Dialer{KeepAlive: 30 * time.Second},
		logger:    logging.GetTransportLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewClient resolves the endpoint for opts. No connection is made until
// CreateSession; endpoint errors are configuration errors.
func (f *Factory) NewClient(opts interfaces.ClientOptions) (interfaces.Client, error) {
	ep, cfg, err := ResolveEndpoint(opts)
	if err != nil {
		return nil, err
	}
	f.logger.Debug("Client constructed", "endpoint", ep.String())
	return newClient(ep, cfg, f.dial, f.logger), nil
}

func (f *Factory) dial(ctx context.Context, ep Endpoint) (Conn, error) {
	switch ep.Scheme {
	case protocol.TransportWS, protocol.TransportWSS:
		dialer := *f.wsDialer
		if ep.Scheme == protocol.TransportWSS {
			dialer.TLSClientConfig = f.tlsFor(ep)
		}
		header := http.Header{}
		header.Set("User-Agent", "idrconnect/"+protocol.Version)
		conn, resp, err := dialer.DialContext(ctx, ep.URL(), header)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			if resp != nil {
				return nil, fmt.Errorf("websocket handshake: %s: %w", resp.Status, err)
			}
			return nil, err
		}
		return NewWebsocketConn(conn), nil

	case protocol.TransportTCP:
		conn, err := f.netDialer.DialContext(ctx, "tcp", ep.Address())
		if err != nil {
			return nil, err
		}
		return NewStreamConn(conn), nil

	case protocol.TransportSSL:
		d := &tls.Dialer{NetDialer: f.netDialer, Config: f.tlsFor(ep)}
		conn, err := d.DialContext(ctx, "tcp", ep.Address())
		if err != nil {
			return nil, err
		}
		return NewStreamConn(conn), nil

	default:
		return nil, fmt.Errorf("unsupported transport %q", ep.Scheme)
	}
}

func (f *Factory) tlsFor(ep Endpoint) *tls.Config {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if f.tlsConfig != nil {
		cfg = f.tlsConfig.Clone()
	}
	if cfg.ServerName == "" {
		cfg.ServerName = ep.Host
	}
	return cfg
}
