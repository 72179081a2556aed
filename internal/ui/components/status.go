// Package components provides the shared terminal elements: status indicators,
// error panes and the styled connection reporter.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// statusStyles maps status strings to their corresponding visual style.
var statusStyles = map[string]lipgloss.Style{
	"ready":    lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1")),
	"success":  lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1")),
	"offline":  lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8")),
	"error":    lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8")),
	"warning":  lipgloss.NewStyle().Foreground(lipgloss.Color("#FAB387")),
	"info":     lipgloss.NewStyle().Foreground(lipgloss.Color("#89B4FA")),
	"checking": lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF")),
	"pending":  lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF")),
}

// statusIcons maps status strings to their corresponding icon.
var statusIcons = map[string]string{
	"ready":    "✅",
	"success":  "✅",
	"offline":  "⛔",
	"error":    "❌",
	"warning":  "⚠️",
	"info":     "ℹ️",
	"checking": "⏳",
	"pending":  "⏳",
}

// serverLabels are the display names of registry health states.
var serverLabels = map[string]string{
	"ready":    "Ready",
	"offline":  "Offline",
	"error":    "Error",
	"checking": "Checking...",
}

// StatusIcon returns the icon of a status.
func StatusIcon(status string) string {
	if icon, ok := statusIcons[status]; ok {
		return icon
	}
	return "🔹"
}

// RenderStatus formats a status message with an appropriate icon and color.
func RenderStatus(status, message string) string {
	style, exists := statusStyles[status]
	if !exists {
		style = lipgloss.NewStyle()
	}
	return style.Render(fmt.Sprintf("%s %s", StatusIcon(status), message))
}

// RenderServerStatus renders a registry health state. Unknown states render as checking.
func RenderServerStatus(status string) string {
	label, ok := serverLabels[status]
	if !ok {
		status, label = "checking", serverLabels["checking"]
	}
	return RenderStatus(status, label)
}

// RenderProgressBar creates a textual bar for a percentage in [0, 100].
func RenderProgressBar(progress int, width int, fillChar, emptyChar string) string {
	if width <= 0 {
		return ""
	}
	progress = min(max(progress, 0), 100)

	filledWidth := (progress * width) / 100
	filled := strings.Repeat(fillChar, filledWidth)
	empty := strings.Repeat(emptyChar, width-filledWidth)

	return fmt.Sprintf("[%s%s]", filled, empty)
}
