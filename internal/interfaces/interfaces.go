// Package interfaces defines the shared data model and the capability interfaces that
// connect the resolution core to its collaborators (configuration fetch, session factory,
// profile storage). Keeping them here lets every package be tested against fakes.
package interfaces

import (
	"context"
	"time"
)

// DefaultVerbosity is the verbosity used when the caller does not choose one.
const DefaultVerbosity = 1

// KeepAliveInterval is the heartbeat interval enabled on every new session.
const KeepAliveInterval = 300 * time.Second

// ConnectionRequest carries the call-site arguments of a single connection attempt.
// A nil field means the argument was not supplied and may be defaulted from the environment.
type ConnectionRequest struct {
	Host      *string
	User      *string
	Password  *string
	Port      *int
	Verbosity int
}

// RemoteConfig is a fetched configuration document. It is passed through to the
// session factory untouched.
type RemoteConfig map[string]any

// ResolvedEndpoint is derived once per attempt after parameter resolution.
type ResolvedEndpoint struct {
	Host              string
	Port              int
	TransportExplicit bool
}

// ClientOptions are the constructor arguments handed to a SessionFactory.
// Host and Port are only meaningful when HasHost/HasPort report true.
type ClientOptions struct {
	Args RemoteConfig
	Host string
	Port int
}

// HasHost reports whether a host was supplied.
func (o ClientOptions) HasHost() bool { return o.Host != "" }

// HasPort reports whether a port was supplied.
func (o ClientOptions) HasPort() bool { return o.Port != 0 }

// ConnectionInfo describes the live socket behind a session.
type ConnectionInfo struct {
	Transport     string `json:"transport"`
	RemoteAddress string `json:"remoteAddress"`
	RemotePort    int    `json:"remotePort"`
}

// Client is a constructed but not yet authenticated RPC client.
type Client interface {
	// CreateSession authenticates. args is empty, [user] or [user, password].
	CreateSession(ctx context.Context, args ...string) error

	// EnableKeepAlive starts a heartbeat on the given interval.
	EnableKeepAlive(interval time.Duration)

	// SessionID returns the identifier issued by the server, if any.
	SessionID() string

	// ConnectionInfo resolves the remote peer of the live connection.
	ConnectionInfo() (ConnectionInfo, error)

	// Close releases the connection and stops the heartbeat.
	Close() error
}

// SessionFactory constructs RPC clients. Errors returned by the factory or by the
// client should carry an error kind (see internal/errors) so that callers can tell
// session-level failures apart from everything else.
type SessionFactory interface {
	NewClient(opts ClientOptions) (Client, error)
}

// ConfigFetcher retrieves a remote configuration document and the bare host it names.
type ConfigFetcher interface {
	Fetch(ctx context.Context, hostOrURL string) (RemoteConfig, string, error)
}

// Profile is a named set of connection arguments stored in the configuration file.
type Profile struct {
	Name      string            `yaml:"name" toml:"name"`
	Host      string            `yaml:"host,omitempty" toml:"host,omitempty"`
	Port      int               `yaml:"port,omitempty" toml:"port,omitempty"`
	User      string            `yaml:"user,omitempty" toml:"user,omitempty"`
	Password  string            `yaml:"password,omitempty" toml:"password,omitempty"`
	Verbosity *int              `yaml:"verbosity,omitempty" toml:"verbosity,omitempty"`
	Metadata  map[string]string `yaml:"metadata,omitempty" toml:"metadata,omitempty"`
}

// RegisteredServer is a server whose web front-end is probed by the registry.
type RegisteredServer struct {
	Name    string `yaml:"name" toml:"name"`
	BaseURL string `yaml:"baseUrl" toml:"baseUrl"`
	Profile string `yaml:"profile,omitempty" toml:"profile,omitempty"`
}

// ConfigManager handles profile and server registration storage.
type ConfigManager interface {
	// LoadProfile retrieves a profile by name from the configuration file
	LoadProfile(name string) (*Profile, error)

	// SaveProfile persists a profile to the configuration file
	SaveProfile(profile *Profile) error

	// DeleteProfile removes a profile from the configuration file
	DeleteProfile(name string) error

	// ListProfiles returns all available profile names
	ListProfiles() ([]string, error)

	// GetRegisteredServers returns all registered servers
	GetRegisteredServers() ([]RegisteredServer, error)

	// RegisterServer adds or replaces a registered server
	RegisterServer(server RegisteredServer) error

	// UnregisterServer removes a registered server
	UnregisterServer(name string) error

	// ResetCredentials removes all stored passwords and replaces the encryption key
	ResetCredentials() ([]string, error)

	// ValidateProfile ensures profile has all required fields
	ValidateProfile(profile *Profile) error

	// GetConfigPath returns the path to the configuration file
	GetConfigPath() string
}

// ServerHealth is the result of probing a registered server.
type ServerHealth struct {
	Name         string        `json:"name"`
	Status       string        `json:"status"` // "ready", "offline", "error", "checking"
	LastChecked  time.Time     `json:"lastChecked"`
	ResponseTime time.Duration `json:"responseTime,omitempty"`
	Error        string        `json:"error,omitempty"`
}
