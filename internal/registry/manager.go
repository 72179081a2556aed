package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	apperrors "github.com/idr-analysis/idrconnect/internal/errors"
	"github.com/idr-analysis/idrconnect/internal/interfaces"
	"github.com/idr-analysis/idrconnect/internal/logging"
	"github.com/idr-analysis/idrconnect/internal/metrics"
)

// Manager keeps registered servers in the configuration file and tracks their health
type Manager struct {
	configManager    interfaces.ConfigManager
	healthMonitor    *HealthMonitor
	serverHealth     map[string]*interfaces.ServerHealth
	mutex            sync.RWMutex
	monitoringActive bool
	monitoringCancel context.CancelFunc
	monitoringRun    uint64
	preferences      Preferences
	statistics       Statistics
	metrics          *metrics.Recorder
	logger           *logging.Logger
}

// Preferences tune probing behavior
type Preferences struct {
	HealthCheckInterval time.Duration `json:"healthCheckInterval"`
	HealthCheckTimeout  time.Duration `json:"healthCheckTimeout"`
	ConcurrentChecks    int           `json:"concurrentChecks"`
}

// Statistics aggregates probe results across servers
type Statistics struct {
	TotalServers      int                      `json:"totalServers"`
	ReadyServers      int                      `json:"readyServers"`
	OfflineServers    int                      `json:"offlineServers"`
	ErrorServers      int                      `json:"errorServers"`
	TotalHealthChecks int64                    `json:"totalHealthChecks"`
	SuccessfulChecks  int64                    `json:"successfulChecks"`
	FailedChecks      int64                    `json:"failedChecks"`
	LastUpdateTime    time.Time                `json:"lastUpdateTime"`
	ServerMetrics     map[string]ServerMetrics `json:"serverMetrics"`
}

// ServerMetrics are the per-server counters
type ServerMetrics struct {
	TotalChecks         int64         `json:"totalChecks"`
	SuccessfulChecks    int64         `json:"successfulChecks"`
	FailedChecks        int64         `json:"failedChecks"`
	AverageResponseTime time.Duration `json:"averageResponseTime"`
	UptimePercentage    float64       `json:"uptimePercentage"`
	LastOnlineTime      time.Time     `json:"lastOnlineTime"`
	LastOfflineTime     time.Time     `json:"lastOfflineTime"`
	ConsecutiveFailures int           `json:"consecutiveFailures"`
}

// Option configures a Manager.
type Option func(*Manager)

// WithMetrics records every probe on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(m *Manager) { m.metrics = r }
}

// NewManager creates a registry backed by configManager
func NewManager(configManager interfaces.ConfigManager, opts ...Option) (*Manager, error) {
	if configManager == nil {
		return nil, fmt.Errorf("configManager cannot be nil")
	}

	m := &Manager{
		configManager: configManager,
		serverHealth:  make(map[string]*interfaces.ServerHealth),
		preferences: Preferences{
			HealthCheckInterval: 30 * time.Second,
			HealthCheckTimeout:  10 * time.Second,
			ConcurrentChecks:    4,
		},
		statistics: Statistics{
			ServerMetrics:  make(map[string]ServerMetrics),
			LastUpdateTime: time.Now(),
		},
		logger: logging.GetRegistryLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.healthMonitor = NewHealthMonitor(nil)
	return m, nil
}

// Servers returns the registered servers sorted by name
func (m *Manager) Servers() ([]interfaces.RegisteredServer, error) {
	servers, err := m.configManager.GetRegisteredServers()
	if err != nil {
		return nil, fmt.Errorf("failed to load registered servers: %w", err)
	}
	sorted := append([]interfaces.RegisteredServer(nil), servers...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return sorted, nil
}

// Register validates and stores a server
func (m *Manager) Register(server interfaces.RegisteredServer) error {
	if err := validateServer(server); err != nil {
		return err
	}
	if err := m.configManager.RegisterServer(server); err != nil {
		return err
	}
	m.logger.Info("Server registered", slog.String("server", server.Name), slog.String("base_url", server.BaseURL))
	return nil
}

// Unregister removes a server and forgets its health
func (m *Manager) Unregister(name string) error {
	if err := m.configManager.UnregisterServer(name); err != nil {
		return err
	}

	m.mutex.Lock()
	delete(m.serverHealth, name)
	delete(m.statistics.ServerMetrics, name)
	m.recalculateStatusCounts()
	m.mutex.Unlock()

	m.healthMonitor.ClearHealthHistory(name)
	return nil
}

// Lookup finds a registered server by name
func (m *Manager) Lookup(name string) (*interfaces.RegisteredServer, error) {
	servers, err := m.Servers()
	if err != nil {
		return nil, err
	}
	for i := range servers {
		if servers[i].Name == name {
			return &servers[i], nil
		}
	}
	return nil, fmt.Errorf("server '%s' not found in registry", name)
}

// CheckServer probes one registered server now
func (m *Manager) CheckServer(ctx context.Context, name string) (*interfaces.ServerHealth, error) {
	server, err := m.Lookup(name)
	if err != nil {
		return nil, err
	}
	health := m.check(ctx, *server)
	return &health, nil
}

// CheckAll probes every registered server, at most ConcurrentChecks at a time, and
// returns the results in name order
func (m *Manager) CheckAll(ctx context.Context) ([]interfaces.ServerHealth, error) {
	servers, err := m.Servers()
	if err != nil {
		return nil, err
	}

	results := make([]interfaces.ServerHealth, len(servers))
	semaphore := make(chan struct{}, m.preferences.ConcurrentChecks)
	var wg sync.WaitGroup
	for i, server := range servers {
		wg.Add(1)
		semaphore <- struct{}{}
		go func(i int, server interfaces.RegisteredServer) {
			defer wg.Done()
			defer func() { <-semaphore }()
			results[i] = m.check(ctx, server)
		}(i, server)
	}
	wg.Wait()
	return results, nil
}

// Failures joins one error per server in results that is not ready, or returns nil.
func (m *Manager) Failures(results []interfaces.ServerHealth) error {
	chain := apperrors.NewErrorChain(m.logger)
	for _, h := range results {
		if h.Status == StatusReady {
			continue
		}
		reason := h.Error
		if reason == "" {
			reason = h.Status
		}
		chain.Add(fmt.Errorf("%s: %s", h.Name, reason))
	}
	return chain.Err()
}

// GetServerHealth returns the last known health of a server
func (m *Manager) GetServerHealth(name string) (*interfaces.ServerHealth, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	health, ok := m.serverHealth[name]
	if !ok {
		return nil, fmt.Errorf("no health data for server '%s'", name)
	}
	copied := *health
	return &copied, nil
}

// History exposes the monitor's snapshots for a server
func (m *Manager) History(name string, limit int) []HealthSnapshot {
	return m.healthMonitor.GetHealthHistory(name, limit)
}

// Trends exposes the monitor's trend analysis for a server
func (m *Manager) Trends(name string, period time.Duration) (*HealthTrends, error) {
	return m.healthMonitor.GetHealthTrends(name, period)
}

// GetStatistics returns a copy of the aggregated statistics
func (m *Manager) GetStatistics() Statistics {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	stats := m.statistics
	stats.ServerMetrics = make(map[string]ServerMetrics, len(m.statistics.ServerMetrics))
	for k, v := range m.statistics.ServerMetrics {
		stats.ServerMetrics[k] = v
	}
	return stats
}

// StartMonitoring probes all servers now and then every interval until StopMonitoring
// is called or ctx ends. A zero interval uses the preference.
func (m *Manager) StartMonitoring(ctx context.Context, interval time.Duration) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.monitoringActive {
		return fmt.Errorf("health monitoring is already active")
	}
	if interval <= 0 {
		interval = m.preferences.HealthCheckInterval
	}

	monitoringCtx, cancel := context.WithCancel(ctx)
	m.monitoringCancel = cancel
	m.monitoringActive = true
	m.monitoringRun++
	m.logger.Info("Health monitoring started", slog.Duration("interval", interval))

	go m.runHealthMonitoring(monitoringCtx, interval, m.monitoringRun)
	return nil
}

// StopMonitoring stops the background probes
func (m *Manager) StopMonitoring() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !m.monitoringActive {
		return fmt.Errorf("health monitoring is not currently active")
	}
	m.stopMonitoringLocked()
	m.logger.Info("Health monitoring stopped")
	return nil
}

// IsMonitoring reports whether background probes are running
func (m *Manager) IsMonitoring() bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.monitoringActive
}

func (m *Manager) stopMonitoringLocked() {
	if m.monitoringCancel != nil {
		m.monitoringCancel()
		m.monitoringCancel = nil
	}
	m.monitoringActive = false
}

func (m *Manager) runHealthMonitoring(ctx context.Context, interval time.Duration, run uint64) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer func() {
		// A newer run may already own the state after StopMonitoring and StartMonitoring.
		m.mutex.Lock()
		defer m.mutex.Unlock()
		if m.monitoringRun == run && m.monitoringActive {
			m.stopMonitoringLocked()
			m.logger.Info("Health monitoring ended", slog.String("reason", context.Cause(ctx).Error()))
		}
	}()

	for ctx.Err() == nil {
		if _, err := m.CheckAll(ctx); err != nil {
			m.logger.Warn("Health check cycle failed", slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *Manager) check(ctx context.Context, server interfaces.RegisteredServer) interfaces.ServerHealth {
	checkCtx, cancel := context.WithTimeout(ctx, m.preferences.HealthCheckTimeout)
	defer cancel()

	m.setStatus(server.Name, StatusChecking)
	health := m.healthMonitor.CheckServer(checkCtx, server)

	var probeErr error
	if health.Error != "" {
		probeErr = errors.New(health.Error)
	}
	m.logger.LogHealthCheck(server.Name, health.Status, health.ResponseTime, probeErr)
	m.metrics.RecordProbe(server.Name, health.Status == StatusReady, health.ResponseTime)

	m.mutex.Lock()
	defer m.mutex.Unlock()
	stored := health
	m.serverHealth[server.Name] = &stored
	m.updateStatistics(server.Name, &stored)
	return health
}

func (m *Manager) setStatus(name, status string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if existing, ok := m.serverHealth[name]; ok {
		existing.Status = status
		return
	}
	m.serverHealth[name] = &interfaces.ServerHealth{Name: name, Status: status}
}

func (m *Manager) updateStatistics(name string, health *interfaces.ServerHealth) {
	m.statistics.TotalHealthChecks++
	m.statistics.LastUpdateTime = time.Now()

	sm := m.statistics.ServerMetrics[name]
	sm.TotalChecks++
	if health.Status == StatusReady {
		m.statistics.SuccessfulChecks++
		sm.SuccessfulChecks++
		sm.LastOnlineTime = health.LastChecked
		sm.ConsecutiveFailures = 0
	} else {
		m.statistics.FailedChecks++
		sm.FailedChecks++
		sm.LastOfflineTime = health.LastChecked
		sm.ConsecutiveFailures++
	}
	sm.UptimePercentage = float64(sm.SuccessfulChecks) / float64(sm.TotalChecks) * 100
	if sm.AverageResponseTime == 0 {
		sm.AverageResponseTime = health.ResponseTime
	} else {
		sm.AverageResponseTime = (sm.AverageResponseTime + health.ResponseTime) / 2
	}
	m.statistics.ServerMetrics[name] = sm

	m.recalculateStatusCounts()
}

func (m *Manager) recalculateStatusCounts() {
	m.statistics.TotalServers = len(m.serverHealth)
	m.statistics.ReadyServers = 0
	m.statistics.OfflineServers = 0
	m.statistics.ErrorServers = 0

	for _, health := range m.serverHealth {
		switch health.Status {
		case StatusReady:
			m.statistics.ReadyServers++
		case StatusOffline:
			m.statistics.OfflineServers++
		case StatusError:
			m.statistics.ErrorServers++
		}
	}
}

func validateServer(server interfaces.RegisteredServer) error {
	if strings.TrimSpace(server.Name) == "" {
		return fmt.Errorf("server name cannot be empty")
	}
	u, err := url.Parse(server.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server base URL must be an http or https URL, got %q", server.BaseURL)
	}
	return nil
}
