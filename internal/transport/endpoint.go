// Package transport is the bundled session factory. It resolves a concrete endpoint
// from the client options and speaks a small JSON login exchange over websockets or
// plain/TLS sockets.
package transport

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	apperrors "github.com/idr-analysis/idrconnect/internal/errors"
	"github.com/idr-analysis/idrconnect/internal/interfaces"
	"github.com/idr-analysis/idrconnect/internal/protocol"
)

// Configuration keys read from ClientOptions.Args.
const (
	KeyHost = "omero.host"
	KeyPort = "omero.port"

	placeholderHost = "@omero.host@"
	placeholderPort = "@omero.port@"
)

// DefaultScheme is used when the host names no transport.
const DefaultScheme = protocol.TransportSSL

var defaultPorts = map[string]int{
	protocol.TransportTCP: 4063,
	protocol.TransportSSL: 4064,
	protocol.TransportWS:  80,
	protocol.TransportWSS: 443,
}

// DefaultPort returns the well-known port of a transport scheme, or 0.
func DefaultPort(scheme string) int {
	return defaultPorts[scheme]
}

// Endpoint is a fully resolved connection target.
type Endpoint struct {
	Scheme string
	Host   string
	Port   int
	Path   string
}

// Address returns host:port.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// IsWebsocket reports whether the endpoint is reached through a websocket upgrade.
func (e Endpoint) IsWebsocket() bool {
	return e.Scheme == protocol.TransportWS || e.Scheme == protocol.TransportWSS
}

// URL is the dial target of a websocket endpoint.
func (e Endpoint) URL() string {
	u := url.URL{Scheme: e.Scheme, Host: e.Address(), Path: e.Path}
	return u.String()
}

func (e Endpoint) String() string {
	if e.IsWebsocket() {
		return e.URL()
	}
	return e.Scheme + "://" + e.Address()
}

// ResolveEndpoint derives the endpoint for opts. The explicit host and port win over
// omero.host and omero.port from the fetched configuration; a port embedded in the
// host string sits between the two. The returned configuration is a copy of opts.Args
// with host and port placeholders substituted.
func ResolveEndpoint(opts interfaces.ClientOptions) (Endpoint, interfaces.RemoteConfig, error) {
	hostValue := opts.Host
	if !opts.HasHost() {
		hostValue, _ = opts.Args[KeyHost].(string)
	}

	portValue := opts.Port
	if !opts.HasPort() {
		p, err := portFromConfig(opts.Args[KeyPort])
		if err != nil {
			return Endpoint{}, nil, endpointError(hostValue, err)
		}
		portValue = p
	}

	args := substitute(opts.Args, hostValue, portValue)

	if hostValue == "" {
		return Endpoint{}, args, endpointError("", fmt.Errorf("no host given and %s not configured", KeyHost))
	}

	ep, embeddedPort, err := parseHost(hostValue)
	if err != nil {
		return Endpoint{}, args, endpointError(hostValue, err)
	}

	switch {
	case opts.HasPort():
		ep.Port = opts.Port
	case embeddedPort != 0:
		ep.Port = embeddedPort
	case portValue != 0:
		ep.Port = portValue
	default:
		ep.Port = DefaultPort(ep.Scheme)
	}
	if ep.Port < 1 || ep.Port > 65535 {
		return Endpoint{}, args, endpointError(hostValue, fmt.Errorf("port %d out of range", ep.Port))
	}
	return ep, args, nil
}

func parseHost(host string) (Endpoint, int, error) {
	scheme := protocol.TransportOf(host)
	if scheme == "" {
		if protocol.HasScheme(host) {
			return Endpoint{}, 0, fmt.Errorf("unsupported transport in %q", host)
		}
		name, port := splitHostPort(host)
		return Endpoint{Scheme: DefaultScheme, Host: name}, port, nil
	}

	u, err := url.Parse(host)
	if err != nil {
		return Endpoint{}, 0, err
	}
	if u.Hostname() == "" {
		return Endpoint{}, 0, fmt.Errorf("missing host name in %q", host)
	}
	ep := Endpoint{Scheme: scheme, Host: u.Hostname(), Path: u.Path}
	if ep.IsWebsocket() && ep.Path == "" {
		ep.Path = protocol.FallbackPath
	}
	var port int
	if p := u.Port(); p != "" {
		if port, err = strconv.Atoi(p); err != nil {
			return Endpoint{}, 0, fmt.Errorf("invalid port in %q", host)
		}
	}
	return ep, port, nil
}

func splitHostPort(host string) (string, int) {
	name, p, err := net.SplitHostPort(host)
	if err != nil {
		return host, 0
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return host, 0
	}
	return name, port
}

// portFromConfig accepts the shapes a port takes after JSON, YAML or TOML decoding.
func portFromConfig(v any) (int, error) {
	switch p := v.(type) {
	case nil:
		return 0, nil
	case int:
		return p, nil
	case int64:
		return int(p), nil
	case float64:
		if p != float64(int(p)) {
			return 0, fmt.Errorf("%s %v is not an integer", KeyPort, p)
		}
		return int(p), nil
	case string:
		if p == "" || p == placeholderPort {
			return 0, nil
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("%s %q is not a number", KeyPort, p)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s has unsupported type %T", KeyPort, v)
	}
}

func substitute(args interfaces.RemoteConfig, host string, port int) interfaces.RemoteConfig {
	portText := ""
	if port != 0 {
		portText = strconv.Itoa(port)
	}
	replacer := strings.NewReplacer(placeholderHost, host, placeholderPort, portText)

	out := make(interfaces.RemoteConfig, len(args))
	for k, v := range args {
		if s, ok := v.(string); ok {
			out[k] = replacer.Replace(s)
			continue
		}
		out[k] = v
	}
	return out
}

func endpointError(host string, cause error) error {
	return apperrors.NewConfigurationError("transport").
		WithOperation("resolve_endpoint").
		WithMessage("cannot resolve endpoint").
		WithContext("host", host).
		WithCause(cause).
		Build()
}
