package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/idr-analysis/idrconnect/internal/ui/components"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#CBA6F7")).
			Padding(1, 2)

	focusedBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(lipgloss.Color("#89B4FA")).
			Padding(1, 2)

	listItemStyle    = lipgloss.NewStyle().PaddingLeft(1)
	focusedItemStyle = lipgloss.NewStyle().
				PaddingLeft(1).
				Foreground(lipgloss.Color("#1e1e2e")).
				Background(lipgloss.Color("#FAB387"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")).Padding(1, 0)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F38BA8")).
			Bold(true)
)

// View renders the dashboard.
func (m *Model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Width(m.width).Render("IDR connection status"))
	s.WriteString("\n\n")

	s.WriteString(m.viewServerList())
	s.WriteString("\n\n")

	if detail := m.viewDetail(); detail != "" {
		s.WriteString(detail)
		s.WriteString("\n\n")
	}

	s.WriteString(m.viewQuickConnect())
	s.WriteString("\n")

	if m.statusMessage != "" {
		s.WriteString("\n")
		status := "success"
		if m.isConnecting {
			status = "checking"
		}
		s.WriteString(components.RenderStatus(status, m.statusMessage))
		s.WriteString("\n")
	}

	s.WriteString(helpStyle.Render("Commands: [Enter] Test connection | [R]efresh | [Tab] Navigate | [Q]uit"))

	if m.err != nil {
		s.WriteString("\n")
		s.WriteString(errorStyle.Render("Error: " + m.err.Error()))
	}

	return s.String()
}

// viewServerList renders the registered servers with their last probe result.
func (m *Model) viewServerList() string {
	var items []string

	if len(m.servers) == 0 {
		items = append(items, helpStyle.Render("No servers registered. Use 'idrconnect server add' to register one."))
	}
	for i, server := range m.servers {
		status := "checking"
		detail := ""
		if health, ok := m.health[server.Name]; ok {
			status = health.Status
			if health.ResponseTime > 0 {
				detail = fmt.Sprintf(" %s", health.ResponseTime.Round(time.Millisecond))
			}
		}

		item := fmt.Sprintf("[%d] %s (%s) - %s%s", i+1, server.Name, server.BaseURL, components.RenderServerStatus(status), detail)
		if m.focusState == FocusList && i == m.selectedIndex {
			items = append(items, focusedItemStyle.Render(item))
		} else {
			items = append(items, listItemStyle.Render(item))
		}
	}

	style := boxStyle
	if m.focusState == FocusList {
		style = focusedBoxStyle
	}

	title := "Registered Servers"
	if m.isChecking {
		title += " (checking...)"
	}
	return style.Render(lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).Render(title),
		lipgloss.JoinVertical(lipgloss.Left, items...),
	))
}

// viewDetail renders the recent history and uptime of the selected server.
func (m *Model) viewDetail() string {
	server, ok := m.Selected()
	if !ok {
		return ""
	}
	detail, ok := m.details[server.Name]
	if !ok || len(detail.history) == 0 {
		return boxStyle.Render(helpStyle.Render("No probe history for " + server.Name + " yet."))
	}

	icons := make([]string, len(detail.history))
	for i, snapshot := range detail.history {
		icons[i] = components.StatusIcon(snapshot.Status)
	}
	lines := []string{
		lipgloss.NewStyle().Bold(true).Render(server.Name),
		"Recent: " + strings.Join(icons, " "),
	}

	if t := detail.trends; t != nil && t.SampleCount > 0 {
		lines = append(lines, fmt.Sprintf("Uptime (%s): %s %.0f%%  avg %s  %s",
			formatPeriod(t.AnalysisPeriod),
			components.RenderProgressBar(int(t.UptimePercentage), 20, "█", "░"),
			t.UptimePercentage,
			t.AverageResponseTime.Round(time.Millisecond),
			t.AvailabilityTrend))
	}
	if last := detail.history[len(detail.history)-1]; last.Error != "" {
		lines = append(lines, errorStyle.Render("Last error: "+last.Error))
	}

	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func formatPeriod(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("%dh", int(d/time.Hour))
	}
	return d.String()
}

// viewQuickConnect renders the quick connect input box.
func (m *Model) viewQuickConnect() string {
	style := boxStyle
	if m.focusState == FocusInput {
		style = focusedBoxStyle
	}

	return style.Render(lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).Render("Quick Connect"),
		"Host: "+m.quickConnectInput.View(),
	))
}
