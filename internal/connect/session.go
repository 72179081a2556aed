package connect

import (
	"github.com/idr-analysis/idrconnect/internal/interfaces"
)

// Session is an authenticated connection with keep-alive enabled.
type Session struct {
	client   interfaces.Client
	endpoint interfaces.ResolvedEndpoint
	config   interfaces.RemoteConfig
	attempts int
}

// Client returns the underlying RPC client.
func (s *Session) Client() interfaces.Client { return s.client }

// ID returns the server-issued session identifier.
func (s *Session) ID() string { return s.client.SessionID() }

// Endpoint returns the host and port the successful attempt used.
func (s *Session) Endpoint() interfaces.ResolvedEndpoint { return s.endpoint }

// Config returns the fetched configuration document, empty when none was fetched.
func (s *Session) Config() interfaces.RemoteConfig { return s.config }

// Attempts returns how many attempts were made, including the successful one.
func (s *Session) Attempts() int { return s.attempts }

// FellBack reports whether the session was established on a retry.
func (s *Session) FellBack() bool { return s.attempts > 1 }

// Info resolves the live remote peer.
func (s *Session) Info() (interfaces.ConnectionInfo, error) { return s.client.ConnectionInfo() }

// Close ends the session.
func (s *Session) Close() error { return s.client.Close() }
