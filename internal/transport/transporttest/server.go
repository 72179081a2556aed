package transporttest

import (
	"crypto/tls"
	"errors"
	"net"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/idr-analysis/idrconnect/internal/protocol"
)

// Server runs a Backend behind an httptest server, plus an optional raw socket listener.
type Server struct {
	*Backend
	HTTP *httptest.Server

	stream net.Listener
}

// NewServer starts a plain HTTP server.
func NewServer() *Server {
	b := NewBackend()
	return &Server{Backend: b, HTTP: httptest.NewServer(b.Handler())}
}

// NewTLSServer starts an HTTPS server with a self-signed certificate; use
// HTTP.Client().Transport's TLS config to trust it.
func NewTLSServer() *Server {
	b := NewBackend()
	return &Server{Backend: b, HTTP: httptest.NewTLSServer(b.Handler())}
}

// URL is the base URL of the HTTP server.
func (s *Server) URL() string { return s.HTTP.URL }

// ConfigURL is the full URL of the configuration document.
func (s *Server) ConfigURL() string { return s.HTTP.URL + protocol.ConfigPath }

// WebsocketURL is the ws:// or wss:// endpoint of the login exchange.
func (s *Server) WebsocketURL() string {
	u, _ := url.Parse(s.HTTP.URL)
	scheme := protocol.TransportWS
	if strings.HasPrefix(s.HTTP.URL, "https") {
		scheme = protocol.TransportWSS
	}
	return scheme + "://" + u.Host + protocol.FallbackPath
}

// StartStream listens for newline-delimited tcp connections and returns "tcp://host:port".
func (s *Server) StartStream() (string, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	s.stream = l
	go func() { _ = s.Backend.ServeStream(l, protocol.TransportTCP) }()
	return protocol.TransportTCP + "://" + l.Addr().String(), nil
}

// StartSecureStream listens for TLS connections using the certificate of a server
// created by NewTLSServer and returns "ssl://host:port".
func (s *Server) StartSecureStream() (string, error) {
	if s.HTTP.TLS == nil {
		return "", errors.New("transporttest: StartSecureStream needs NewTLSServer")
	}
	cfg := s.HTTP.TLS.Clone()
	cfg.NextProtos = nil
	l, err := tls.Listen("tcp", "127.0.0.1:0", cfg)
	if err != nil {
		return "", err
	}
	s.stream = l
	go func() { _ = s.Backend.ServeStream(l, protocol.TransportSSL) }()
	return protocol.TransportSSL + "://" + l.Addr().String(), nil
}

// Close stops every listener.
func (s *Server) Close() {
	if s.stream != nil {
		_ = s.stream.Close()
	}
	s.HTTP.Close()
}
