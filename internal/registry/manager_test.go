package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idr-analysis/idrconnect/internal/config"
	"github.com/idr-analysis/idrconnect/internal/interfaces"
	"github.com/idr-analysis/idrconnect/internal/metrics"
	"github.com/idr-analysis/idrconnect/internal/transport/transporttest"
)

func newTestRegistry(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	dir := t.TempDir()
	sec, err := config.NewSecurityManagerAt(filepath.Join(dir, "master.key"))
	require.NoError(t, err)
	cfg, err := config.NewManagerWithSecurity(filepath.Join(dir, "profiles.yaml"), sec)
	require.NoError(t, err)
	require.NoError(t, cfg.UnregisterServer("idr"))

	m, err := NewManager(cfg, opts...)
	require.NoError(t, err)
	return m
}

func TestNewManager_RequiresConfig(t *testing.T) {
	_, err := NewManager(nil)
	assert.Error(t, err)
}

func TestManager_RegisterValidates(t *testing.T) {
	m := newTestRegistry(t)

	assert.Error(t, m.Register(interfaces.RegisteredServer{Name: "", BaseURL: "https://example.org"}))
	assert.Error(t, m.Register(interfaces.RegisteredServer{Name: "x", BaseURL: "example.org"}))
	assert.Error(t, m.Register(interfaces.RegisteredServer{Name: "x", BaseURL: "wss://example.org"}))
	require.NoError(t, m.Register(interfaces.RegisteredServer{Name: "b", BaseURL: "https://b.example.org"}))
	require.NoError(t, m.Register(interfaces.RegisteredServer{Name: "a", BaseURL: "https://a.example.org"}))

	servers, err := m.Servers()
	require.NoError(t, err)
	require.Len(t, servers, 2)
	assert.Equal(t, "a", servers[0].Name)

	require.NoError(t, m.Unregister("a"))
	_, err = m.Lookup("a")
	assert.Error(t, err)
}

func TestManager_CheckAllReportsReadyOfflineAndError(t *testing.T) {
	good := transporttest.NewServer()
	defer good.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()

	gone := httptest.NewServer(http.NotFoundHandler())
	goneURL := gone.URL
	gone.Close()

	rec, err := metrics.Register(prometheus.NewRegistry())
	require.NoError(t, err)
	m := newTestRegistry(t, WithMetrics(rec))
	require.NoError(t, m.Register(interfaces.RegisteredServer{Name: "good", BaseURL: good.URL()}))
	require.NoError(t, m.Register(interfaces.RegisteredServer{Name: "broken", BaseURL: broken.URL}))
	require.NoError(t, m.Register(interfaces.RegisteredServer{Name: "gone", BaseURL: goneURL}))

	results, err := m.CheckAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)

	byName := map[string]interfaces.ServerHealth{}
	for _, r := range results {
		byName[r.Name] = r
	}
	assert.Equal(t, StatusReady, byName["good"].Status)
	assert.Empty(t, byName["good"].Error)
	assert.Equal(t, StatusError, byName["broken"].Status)
	assert.Contains(t, byName["broken"].Error, "502")
	assert.Equal(t, StatusOffline, byName["gone"].Status)

	stats := m.GetStatistics()
	assert.Equal(t, 3, stats.TotalServers)
	assert.Equal(t, 1, stats.ReadyServers)
	assert.Equal(t, 1, stats.ErrorServers)
	assert.Equal(t, 1, stats.OfflineServers)
	assert.Equal(t, int64(3), stats.TotalHealthChecks)

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.ServerUp.WithLabelValues("good")))
	assert.Equal(t, 0.0, testutil.ToFloat64(rec.ServerUp.WithLabelValues("broken")))

	history := m.History("broken", 0)
	require.Len(t, history, 1)
	assert.Equal(t, "http_502", history[0].ErrorType)
	assert.Equal(t, "connection_refused", m.History("gone", 0)[0].ErrorType)
}

func TestManager_CheckServer(t *testing.T) {
	srv := transporttest.NewServer()
	defer srv.Close()

	m := newTestRegistry(t)
	require.NoError(t, m.Register(interfaces.RegisteredServer{Name: "local", BaseURL: srv.URL()}))

	health, err := m.CheckServer(context.Background(), "local")
	require.NoError(t, err)
	assert.Equal(t, StatusReady, health.Status)

	stored, err := m.GetServerHealth("local")
	require.NoError(t, err)
	assert.Equal(t, health.Status, stored.Status)

	_, err = m.CheckServer(context.Background(), "missing")
	assert.Error(t, err)
	_, err = m.GetServerHealth("missing")
	assert.Error(t, err)
}

func TestManager_Monitoring(t *testing.T) {
	srv := transporttest.NewServer()
	defer srv.Close()

	m := newTestRegistry(t)
	require.NoError(t, m.Register(interfaces.RegisteredServer{Name: "local", BaseURL: srv.URL()}))

	require.NoError(t, m.StartMonitoring(context.Background(), 10*time.Millisecond))
	assert.True(t, m.IsMonitoring())
	assert.Error(t, m.StartMonitoring(context.Background(), time.Second))

	assert.Eventually(t, func() bool { return len(m.History("local", 0)) >= 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, m.StopMonitoring())
	assert.False(t, m.IsMonitoring())
	assert.Error(t, m.StopMonitoring())

	trends, err := m.Trends("local", time.Minute)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, trends.SampleCount, 2)
	assert.Equal(t, StatusReady, m.History("local", 0)[0].Status)
}

func TestManager_MonitoringRestartsAfterParentContextEnds(t *testing.T) {
	srv := transporttest.NewServer()
	defer srv.Close()

	m := newTestRegistry(t)
	require.NoError(t, m.Register(interfaces.RegisteredServer{Name: "local", BaseURL: srv.URL()}))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, m.StartMonitoring(ctx, time.Hour))
	assert.Eventually(t, func() bool { return len(m.History("local", 0)) == 1 }, 2*time.Second, 10*time.Millisecond,
		"first round runs immediately")

	cancel()
	assert.Eventually(t, func() bool { return !m.IsMonitoring() }, 2*time.Second, 10*time.Millisecond)
	assert.Error(t, m.StopMonitoring())

	require.NoError(t, m.StartMonitoring(context.Background(), 10*time.Millisecond))
	assert.Eventually(t, func() bool { return len(m.History("local", 0)) >= 3 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, m.StopMonitoring())
}

func TestManager_StopThenStartKeepsNewRunActive(t *testing.T) {
	m := newTestRegistry(t)

	require.NoError(t, m.StartMonitoring(context.Background(), time.Hour))
	require.NoError(t, m.StopMonitoring())
	require.NoError(t, m.StartMonitoring(context.Background(), time.Hour))

	// The first run's exit must not clear the state of the second.
	time.Sleep(50 * time.Millisecond)
	assert.True(t, m.IsMonitoring())
	require.NoError(t, m.StopMonitoring())
}

func TestManager_Failures(t *testing.T) {
	m := newTestRegistry(t)

	assert.NoError(t, m.Failures([]interfaces.ServerHealth{{Name: "idr", Status: StatusReady}}))

	err := m.Failures([]interfaces.ServerHealth{
		{Name: "idr", Status: StatusReady},
		{Name: "lab", Status: StatusOffline, Error: "connection refused"},
		{Name: "old", Status: StatusError},
	})
	require.Error(t, err)
	assert.Equal(t, "lab: connection refused\nold: error", err.Error())
}
