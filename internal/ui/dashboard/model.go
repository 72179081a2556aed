// Package dashboard implements the interactive status view: registered servers with
// their monitored probe results, recent history and uptime, connection tests and a
// quick-connect input.
package dashboard

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/idr-analysis/idrconnect/internal/interfaces"
	"github.com/idr-analysis/idrconnect/internal/registry"
)

const (
	historyLength = 10
	trendPeriod   = time.Hour
)

// FocusState selects which element receives key presses.
type FocusState int

const (
	FocusList FocusState = iota
	FocusInput
)

// Registry is the part of the server registry the dashboard reads. Probing in the
// background is the caller's job; the dashboard only probes on an explicit refresh.
type Registry interface {
	Servers() ([]interfaces.RegisteredServer, error)
	CheckAll(ctx context.Context) ([]interfaces.ServerHealth, error)
	GetServerHealth(name string) (*interfaces.ServerHealth, error)
	History(name string, limit int) []registry.HealthSnapshot
	Trends(name string, period time.Duration) (*registry.HealthTrends, error)
}

// serverDetail is what the detail pane shows for one server.
type serverDetail struct {
	history []registry.HealthSnapshot
	trends  *registry.HealthTrends
}

// Target names what a connection test connects to: a stored profile, or a host.
type Target struct {
	Name    string
	Profile string
	Host    string
}

// ConnectFunc opens and closes a session for target and returns the confirmation line.
type ConnectFunc func(ctx context.Context, target Target) (string, error)

// Model is the dashboard state.
type Model struct {
	registry Registry
	connect  ConnectFunc
	interval time.Duration

	servers           []interfaces.RegisteredServer
	health            map[string]interfaces.ServerHealth
	details           map[string]serverDetail
	selectedIndex     int
	quickConnectInput textinput.Model
	focusState        FocusState
	isConnecting      bool
	isChecking        bool
	statusMessage     string
	err               error

	width  int
	height int
}

// New creates the dashboard. The registry's last results are re-read every interval.
func New(registry Registry, connect ConnectFunc, interval time.Duration) *Model {
	ti := textinput.New()
	ti.Placeholder = "idr.openmicroscopy.org"
	ti.CharLimit = 255
	ti.Width = 50

	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &Model{
		registry:          registry,
		connect:           connect,
		interval:          interval,
		quickConnectInput: ti,
		focusState:        FocusList,
		health:            make(map[string]interfaces.ServerHealth),
		details:           make(map[string]serverDetail),
	}
}

// Init loads the server list and the results known so far.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.reloadServers(), m.readHealth(), m.tick())
}

// ConnectionResultMsg is sent after a connection test.
type ConnectionResultMsg struct {
	Target  Target
	Message string
	Err     error
}

type (
	serversReloadedMsg struct {
		servers []interfaces.RegisteredServer
		err     error
	}

	healthUpdatedMsg struct {
		results []interfaces.ServerHealth
		details map[string]serverDetail
		probed  bool
		err     error
	}

	tickMsg struct{}
)

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m *Model) reloadServers() tea.Cmd {
	return func() tea.Msg {
		servers, err := m.registry.Servers()
		return serversReloadedMsg{servers: servers, err: err}
	}
}

// readHealth collects the latest results without probing.
func (m *Model) readHealth() tea.Cmd {
	return func() tea.Msg {
		servers, err := m.registry.Servers()
		if err != nil {
			return healthUpdatedMsg{err: err}
		}
		var results []interfaces.ServerHealth
		for _, server := range servers {
			if health, err := m.registry.GetServerHealth(server.Name); err == nil {
				results = append(results, *health)
			}
		}
		return m.withDetails(results)
	}
}

// checkHealth probes every server now.
func (m *Model) checkHealth() tea.Cmd {
	return func() tea.Msg {
		results, err := m.registry.CheckAll(context.Background())
		if err != nil {
			return healthUpdatedMsg{probed: true, err: err}
		}
		msg := m.withDetails(results)
		msg.probed = true
		return msg
	}
}

func (m *Model) withDetails(results []interfaces.ServerHealth) healthUpdatedMsg {
	details := make(map[string]serverDetail, len(results))
	for _, h := range results {
		detail := serverDetail{history: m.registry.History(h.Name, historyLength)}
		if trends, err := m.registry.Trends(h.Name, trendPeriod); err == nil {
			detail.trends = trends
		}
		details[h.Name] = detail
	}
	return healthUpdatedMsg{results: results, details: details}
}

func (m *Model) attemptConnection(target Target) tea.Cmd {
	return func() tea.Msg {
		message, err := m.connect(context.Background(), target)
		return ConnectionResultMsg{Target: target, Message: message, Err: err}
	}
}

// targetFor connects through the server's profile when it has one, else through
// the host of its web client.
func targetFor(server interfaces.RegisteredServer) Target {
	if server.Profile != "" {
		return Target{Name: server.Name, Profile: server.Profile}
	}
	return Target{Name: server.Name, Host: hostOf(server.BaseURL)}
}

// Selected returns the highlighted server, if any.
func (m *Model) Selected() (interfaces.RegisteredServer, bool) {
	if m.selectedIndex < 0 || m.selectedIndex >= len(m.servers) {
		return interfaces.RegisteredServer{}, false
	}
	return m.servers[m.selectedIndex], true
}

// StatusMessage returns the result line of the last connection test.
func (m *Model) StatusMessage() string { return m.statusMessage }

// Err returns the error currently displayed.
func (m *Model) Err() error { return m.err }
