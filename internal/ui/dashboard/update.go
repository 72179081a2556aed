package dashboard

import (
	"net/url"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
)

// Update handles messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.isConnecting {
			if msg.Type == tea.KeyCtrlC {
				return m, tea.Quit
			}
			return m, nil
		}
		if m.err != nil {
			m.err = nil
		}

		switch m.focusState {
		case FocusList:
			cmd = m.handleListKeys(msg)
		case FocusInput:
			cmd = m.handleInputKeys(msg)
		}
		cmds = append(cmds, cmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case serversReloadedMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.servers = msg.servers
			if m.selectedIndex >= len(m.servers) {
				m.selectedIndex = max(len(m.servers)-1, 0)
			}
		}

	case healthUpdatedMsg:
		if msg.probed {
			m.isChecking = false
		}
		if msg.err != nil {
			m.err = msg.err
		}
		for _, h := range msg.results {
			m.health[h.Name] = h
		}
		for name, detail := range msg.details {
			m.details[name] = detail
		}

	case tickMsg:
		cmds = append(cmds, m.readHealth(), m.tick())

	case ConnectionResultMsg:
		m.isConnecting = false
		if msg.Err != nil {
			m.err = msg.Err
			m.statusMessage = ""
			return m, nil
		}
		m.statusMessage = msg.Message
	}

	if m.focusState == FocusInput {
		m.quickConnectInput, cmd = m.quickConnectInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// handleListKeys processes key presses when the server list is focused.
func (m *Model) handleListKeys(msg tea.KeyMsg) tea.Cmd {
	switch key := msg.String(); key {
	case "ctrl+c", "q":
		return tea.Quit

	case "up", "k":
		if m.selectedIndex > 0 {
			m.selectedIndex--
		}

	case "down", "j":
		if m.selectedIndex < len(m.servers)-1 {
			m.selectedIndex++
		}

	case "r":
		if !m.isChecking {
			m.isChecking = true
			return tea.Batch(m.reloadServers(), m.checkHealth())
		}

	case "enter":
		if server, ok := m.Selected(); ok {
			return m.startConnection(targetFor(server))
		}

	case "tab":
		m.focusState = FocusInput
		return m.quickConnectInput.Focus()

	default:
		if i, err := strconv.Atoi(key); err == nil && i >= 1 && i <= len(m.servers) {
			m.selectedIndex = i - 1
			return m.startConnection(targetFor(m.servers[i-1]))
		}
	}
	return nil
}

// handleInputKeys processes key presses when the quick connect input is focused.
func (m *Model) handleInputKeys(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c":
		return tea.Quit

	case "enter":
		if host := m.quickConnectInput.Value(); host != "" {
			return m.startConnection(Target{Name: host, Host: host})
		}

	case "tab", "shift+tab", "esc":
		m.focusState = FocusList
		m.quickConnectInput.Blur()
	}
	return nil
}

func (m *Model) startConnection(target Target) tea.Cmd {
	m.isConnecting = true
	m.statusMessage = "Connecting to " + target.Name + "..."
	m.err = nil
	return m.attemptConnection(target)
}

// hostOf returns the host name of a web client URL, or the input if it has none.
func hostOf(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Hostname() == "" {
		return baseURL
	}
	return u.Hostname()
}
