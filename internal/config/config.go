// Package config implements parameter resolution and the profile file for idrconnect.
// Profiles are stored as YAML or TOML (chosen by file extension) with passwords encrypted
// at rest by the SecurityManager.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/idr-analysis/idrconnect/internal/interfaces"
	"github.com/idr-analysis/idrconnect/internal/logging"
	"github.com/idr-analysis/idrconnect/internal/protocol"
)

// DefaultServerURL is the server registered in a fresh configuration file.
const DefaultServerURL = protocol.DefaultBaseURL

// Config represents the complete configuration file structure
type Config struct {
	Profiles map[string]interfaces.Profile `yaml:"profiles" toml:"profiles"`
	Servers  []interfaces.RegisteredServer `yaml:"servers" toml:"servers"`
}

// Manager implements the ConfigManager interface
type Manager struct {
	configPath   string
	securityMgr  SecurityManager
	cachedConfig *Config
	logger       *logging.Logger
}

// NewManager creates a configuration manager for path. An empty path selects the
// OS-appropriate default location.
func NewManager(path string) (*Manager, error) {
	securityMgr, err := NewSecurityManager()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize security manager: %w", err)
	}
	return NewManagerWithSecurity(path, securityMgr)
}

// NewManagerWithSecurity creates a configuration manager with an explicit SecurityManager.
func NewManagerWithSecurity(path string, securityMgr SecurityManager) (*Manager, error) {
	if securityMgr == nil {
		return nil, fmt.Errorf("securityMgr cannot be nil")
	}

	if path == "" {
		defaultPath, err := getConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to determine configuration path: %w", err)
		}
		path = defaultPath
	}

	manager := &Manager{
		configPath:  path,
		securityMgr: securityMgr,
		logger:      logging.GetConfigLogger(),
	}

	if err := manager.ensureConfigDirectory(); err != nil {
		return nil, fmt.Errorf("failed to create configuration directory: %w", err)
	}

	return manager, nil
}

func getConfigPath() (string, error) {
	var configDir string
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		configDir = filepath.Join(xdgConfigHome, "idrconnect")
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to determine home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "idrconnect")
	}

	return filepath.Join(configDir, "profiles.yaml"), nil
}

func (m *Manager) ensureConfigDirectory() error {
	configDir := filepath.Dir(m.configPath)

	// Profiles hold credentials: owner-only.
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", configDir, err)
	}

	return nil
}

func (m *Manager) isTOML() bool {
	return strings.EqualFold(filepath.Ext(m.configPath), ".toml")
}

func (m *Manager) loadConfig() (*Config, error) {
	if m.cachedConfig != nil {
		return m.cachedConfig, nil
	}

	m.logger.LogConfigLoad(m.configPath, "")

	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		config := m.createDefaultConfig()
		if err := m.saveConfig(config); err != nil {
			return nil, fmt.Errorf("failed to create default configuration: %w", err)
		}
		m.cachedConfig = config
		return config, nil
	}

	config, err := m.readConfig()
	if err != nil {
		return nil, err
	}

	for name, profile := range config.Profiles {
		if profile.Password != "" {
			plain, err := m.securityMgr.DecryptCredential(profile.Password)
			if err != nil {
				return nil, fmt.Errorf("failed to decrypt password for profile %s: %w", name, err)
			}
			profile.Password = plain
		}
		profile.Name = name
		config.Profiles[name] = profile
	}

	m.cachedConfig = config
	return config, nil
}

// readConfig parses the configuration file; passwords stay encrypted.
func (m *Manager) readConfig() (*Config, error) {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	var config Config
	if m.isTOML() {
		err = toml.Unmarshal(data, &config)
	} else {
		err = yaml.Unmarshal(data, &config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file: %w", err)
	}

	if config.Profiles == nil {
		config.Profiles = make(map[string]interfaces.Profile)
	}
	return &config, nil
}

// ResetCredentials removes every stored password and replaces the encryption key. It
// works even when the stored passwords can no longer be decrypted, for example after
// the host name changed. It returns the profiles that lost a password, sorted.
func (m *Manager) ResetCredentials() ([]string, error) {
	config := m.createDefaultConfig()
	if _, err := os.Stat(m.configPath); err == nil {
		if config, err = m.readConfig(); err != nil {
			return nil, err
		}
	}

	var cleared []string
	for name, profile := range config.Profiles {
		if profile.Password != "" {
			profile.Password = ""
			cleared = append(cleared, name)
		}
		profile.Name = name
		config.Profiles[name] = profile
	}
	sort.Strings(cleared)

	if err := m.securityMgr.ClearSecurityData(); err != nil {
		return nil, err
	}
	if err := m.securityMgr.GenerateSecureKey(); err != nil {
		return nil, err
	}
	if err := m.saveConfig(config); err != nil {
		return nil, fmt.Errorf("failed to save configuration: %w", err)
	}

	m.cachedConfig = config
	m.logger.Info("Stored credentials reset", "profiles", len(cleared))
	return cleared, nil
}

func (m *Manager) saveConfig(config *Config) error {
	// Encrypt into a copy so the cached profiles stay usable.
	configCopy := *config
	configCopy.Profiles = make(map[string]interfaces.Profile, len(config.Profiles))

	for name, profile := range config.Profiles {
		profileCopy := profile
		if profile.Password != "" {
			encrypted, err := m.securityMgr.EncryptCredential(profile.Password)
			if err != nil {
				return fmt.Errorf("failed to encrypt password for profile %s: %w", name, err)
			}
			profileCopy.Password = encrypted
		}
		configCopy.Profiles[name] = profileCopy
	}

	var data []byte
	if m.isTOML() {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(&configCopy); err != nil {
			return fmt.Errorf("failed to marshal configuration: %w", err)
		}
		data = buf.Bytes()
	} else {
		var err error
		data, err = yaml.Marshal(&configCopy)
		if err != nil {
			return fmt.Errorf("failed to marshal configuration: %w", err)
		}
	}

	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	return nil
}

func (m *Manager) createDefaultConfig() *Config {
	return &Config{
		Profiles: map[string]interfaces.Profile{},
		Servers: []interfaces.RegisteredServer{
			{Name: "idr", BaseURL: DefaultServerURL},
		},
	}
}

// LoadProfile retrieves a profile by name from the configuration file
func (m *Manager) LoadProfile(name string) (*interfaces.Profile, error) {
	config, err := m.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	profile, exists := config.Profiles[name]
	if !exists {
		return nil, fmt.Errorf("profile '%s' not found", name)
	}
	profile.Name = name

	if err := m.ValidateProfile(&profile); err != nil {
		return nil, fmt.Errorf("profile '%s' is invalid: %w", name, err)
	}

	return &profile, nil
}

// SaveProfile persists a profile to the configuration file
func (m *Manager) SaveProfile(profile *interfaces.Profile) error {
	if err := m.ValidateProfile(profile); err != nil {
		return fmt.Errorf("cannot save invalid profile: %w", err)
	}

	config, err := m.loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	config.Profiles[profile.Name] = *profile

	if err := m.saveConfig(config); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	m.cachedConfig = config
	return nil
}

// DeleteProfile removes a profile from the configuration
func (m *Manager) DeleteProfile(name string) error {
	config, err := m.loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if _, exists := config.Profiles[name]; !exists {
		return fmt.Errorf("profile '%s' does not exist", name)
	}

	delete(config.Profiles, name)

	if err := m.saveConfig(config); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	m.cachedConfig = config
	return nil
}

// ListProfiles returns all profile names in sorted order
func (m *Manager) ListProfiles() ([]string, error) {
	config, err := m.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	names := make([]string, 0, len(config.Profiles))
	for name := range config.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	return names, nil
}

// GetRegisteredServers returns all registered servers
func (m *Manager) GetRegisteredServers() ([]interfaces.RegisteredServer, error) {
	config, err := m.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return config.Servers, nil
}

// RegisterServer adds a server, replacing one with the same name
func (m *Manager) RegisterServer(server interfaces.RegisteredServer) error {
	if strings.TrimSpace(server.Name) == "" {
		return fmt.Errorf("server name cannot be empty")
	}
	if strings.TrimSpace(server.BaseURL) == "" {
		return fmt.Errorf("server base URL cannot be empty")
	}

	config, err := m.loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	replaced := false
	for i, existing := range config.Servers {
		if existing.Name == server.Name {
			config.Servers[i] = server
			replaced = true
			break
		}
	}
	if !replaced {
		config.Servers = append(config.Servers, server)
	}

	if err := m.saveConfig(config); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	m.cachedConfig = config
	return nil
}

// UnregisterServer removes a server from the registry
func (m *Manager) UnregisterServer(name string) error {
	config, err := m.loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	for i, server := range config.Servers {
		if server.Name == name {
			config.Servers = append(config.Servers[:i], config.Servers[i+1:]...)
			if err := m.saveConfig(config); err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}
			m.cachedConfig = config
			return nil
		}
	}

	return fmt.Errorf("server '%s' not found in registry", name)
}

// ValidateProfile ensures profile has all required fields
func (m *Manager) ValidateProfile(profile *interfaces.Profile) error {
	if profile == nil {
		return fmt.Errorf("profile cannot be nil")
	}

	if strings.TrimSpace(profile.Name) == "" {
		return fmt.Errorf("profile name cannot be empty")
	}

	if profile.Port < 0 || profile.Port > 65535 {
		return fmt.Errorf("port %d out of range", profile.Port)
	}

	if profile.Password != "" && profile.User == "" {
		return fmt.Errorf("password is set but user is empty")
	}

	if profile.Verbosity != nil && *profile.Verbosity < 0 {
		return fmt.Errorf("verbosity cannot be negative")
	}

	return nil
}

// GetConfigPath returns the path to the configuration file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// InvalidateCache clears the cached configuration, forcing a reload on next access
func (m *Manager) InvalidateCache() {
	m.cachedConfig = nil
}

// ApplyProfile fills the unset fields of req from profile. Profile values count as
// explicit arguments, so they take precedence over IDR_* variables.
func ApplyProfile(req *interfaces.ConnectionRequest, profile *interfaces.Profile) {
	if req == nil || profile == nil {
		return
	}
	if req.Host == nil && profile.Host != "" {
		host := profile.Host
		req.Host = &host
	}
	if req.Port == nil && profile.Port != 0 {
		port := profile.Port
		req.Port = &port
	}
	if req.User == nil && profile.User != "" {
		user := profile.User
		req.User = &user
	}
	if req.Password == nil && profile.Password != "" {
		password := profile.Password
		req.Password = &password
	}
	if profile.Verbosity != nil {
		req.Verbosity = *profile.Verbosity
	}
}
