// Package registry probes the web front-ends of registered servers and keeps a
// bounded history of the results.
package registry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/idr-analysis/idrconnect/internal/errors"
	"github.com/idr-analysis/idrconnect/internal/interfaces"
	"github.com/idr-analysis/idrconnect/internal/protocol"
)

// Status values reported in interfaces.ServerHealth.
const (
	StatusReady    = "ready"
	StatusOffline  = "offline"
	StatusError    = "error"
	StatusChecking = "checking"
)

// HealthMonitor probes servers and records snapshots per server
type HealthMonitor struct {
	httpClient     *http.Client
	healthHistory  map[string][]HealthSnapshot
	mutex          sync.RWMutex
	maxHistorySize int
}

// HealthSnapshot captures a point-in-time probe result
type HealthSnapshot struct {
	Timestamp    time.Time     `json:"timestamp"`
	Status       string        `json:"status"`
	ResponseTime time.Duration `json:"responseTime"`
	ErrorType    string        `json:"errorType,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// HealthTrends summarizes the history of one server over a period
type HealthTrends struct {
	Server              string        `json:"server"`
	AnalysisPeriod      time.Duration `json:"analysisPeriod"`
	SampleCount         int           `json:"sampleCount"`
	UptimePercentage    float64       `json:"uptimePercentage"`
	AverageResponseTime time.Duration `json:"averageResponseTime"`
	AvailabilityTrend   string        `json:"availabilityTrend"` // "improving", "degrading", "stable"
}

// NewHealthMonitor creates a monitor using client for probes; nil selects a client
// with short dial and overall timeouts.
func NewHealthMonitor(client *http.Client) *HealthMonitor {
	if client == nil {
		client = &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: 2,
			},
		}
	}

	return &HealthMonitor{
		httpClient:     client,
		healthHistory:  make(map[string][]HealthSnapshot),
		maxHistorySize: 100,
	}
}

// CheckServer probes the web client of server and records the result. Probe
// failures are reported in the returned health, not as an error.
func (hm *HealthMonitor) CheckServer(ctx context.Context, server interfaces.RegisteredServer) interfaces.ServerHealth {
	baseURL := server.BaseURL
	if baseURL == "" {
		baseURL = protocol.DefaultBaseURL
	}

	start := time.Now()
	_, err := protocol.NewHTTPSessionWithClient(ctx, baseURL, hm.httpClient)
	elapsed := time.Since(start)

	health := interfaces.ServerHealth{
		Name:         server.Name,
		Status:       StatusReady,
		LastChecked:  time.Now(),
		ResponseTime: elapsed,
	}
	snapshot := HealthSnapshot{Timestamp: health.LastChecked, Status: StatusReady, ResponseTime: elapsed}

	if err != nil {
		health.Status = statusFor(err)
		health.Error = err.Error()
		snapshot.Status = health.Status
		snapshot.Error = health.Error
		snapshot.ErrorType = classifyProbeError(err)
	}

	hm.recordHealthSnapshot(server.Name, snapshot)
	return health
}

// GetHealthHistory returns up to limit most recent snapshots; limit <= 0 returns all
func (hm *HealthMonitor) GetHealthHistory(name string, limit int) []HealthSnapshot {
	hm.mutex.RLock()
	defer hm.mutex.RUnlock()

	history := hm.healthHistory[name]
	start := 0
	if limit > 0 && len(history) > limit {
		start = len(history) - limit
	}

	result := make([]HealthSnapshot, len(history[start:]))
	copy(result, history[start:])
	return result
}

// GetHealthTrends analyzes the snapshots of the last duration
func (hm *HealthMonitor) GetHealthTrends(name string, duration time.Duration) (*HealthTrends, error) {
	hm.mutex.RLock()
	defer hm.mutex.RUnlock()

	history, exists := hm.healthHistory[name]
	if !exists {
		return nil, fmt.Errorf("no health history available for server '%s'", name)
	}

	cutoffTime := time.Now().Add(-duration)
	var recent []HealthSnapshot
	for _, snapshot := range history {
		if snapshot.Timestamp.After(cutoffTime) {
			recent = append(recent, snapshot)
		}
	}

	trends := &HealthTrends{
		Server:            name,
		AnalysisPeriod:    duration,
		SampleCount:       len(recent),
		AvailabilityTrend: "stable",
	}
	if len(recent) == 0 {
		return trends, nil
	}

	var total time.Duration
	for _, snapshot := range recent {
		total += snapshot.ResponseTime
	}
	trends.UptimePercentage = uptime(recent)
	trends.AverageResponseTime = total / time.Duration(len(recent))

	if len(recent) >= 2 {
		first := uptime(recent[:len(recent)/2])
		second := uptime(recent[len(recent)/2:])
		switch {
		case second > first:
			trends.AvailabilityTrend = "improving"
		case second < first:
			trends.AvailabilityTrend = "degrading"
		}
	}

	return trends, nil
}

// ClearHealthHistory removes all history for a server
func (hm *HealthMonitor) ClearHealthHistory(name string) {
	hm.mutex.Lock()
	defer hm.mutex.Unlock()

	delete(hm.healthHistory, name)
}

func (hm *HealthMonitor) recordHealthSnapshot(name string, snapshot HealthSnapshot) {
	hm.mutex.Lock()
	defer hm.mutex.Unlock()

	hm.healthHistory[name] = append(hm.healthHistory[name], snapshot)
	if len(hm.healthHistory[name]) > hm.maxHistorySize {
		hm.healthHistory[name] = hm.healthHistory[name][1:]
	}
}

func uptime(snapshots []HealthSnapshot) float64 {
	healthy := 0
	for _, s := range snapshots {
		if s.Status == StatusReady {
			healthy++
		}
	}
	return float64(healthy) / float64(len(snapshots)) * 100
}

// statusFor maps a probe failure to offline (unreachable) or error (reachable but
// unhealthy).
func statusFor(err error) string {
	if apperrors.KindOf(err) == apperrors.KindHTTP {
		return StatusError
	}
	return StatusOffline
}

// classifyProbeError categorizes probe failures for diagnostics
func classifyProbeError(err error) string {
	var statusErr *apperrors.HTTPStatusError
	var dnsErr *net.DNSError
	var opErr *net.OpError

	switch {
	case errors.As(err, &statusErr):
		return fmt.Sprintf("http_%d", statusErr.StatusCode)
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &dnsErr):
		return "dns_failure"
	case errors.As(err, &opErr):
		if opErr.Timeout() {
			return "timeout"
		}
		if opErr.Op == "dial" {
			return "connection_refused"
		}
		return "network_error"
	default:
		return "unknown"
	}
}
