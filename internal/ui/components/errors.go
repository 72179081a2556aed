package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	apperrors "github.com/idr-analysis/idrconnect/internal/errors"
)

var (
	errorPaneStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder(), false, true, true, true).
			BorderForeground(lipgloss.Color("#F38BA8")).
			Padding(0, 1)

	errorHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#F38BA8"))

	errorCodeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAB387")).
			Italic(true)

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A6E3A1"))
)

// RenderErrorPane renders a processed error with its kind and hint inside a bordered
// pane of the given total width. A non-positive width leaves the pane unsized.
func RenderErrorPane(processed *apperrors.ProcessedError, width int) string {
	if processed == nil {
		return ""
	}

	var builder strings.Builder
	builder.WriteString(errorHeaderStyle.Render("❌ Error: " + processed.Message))

	if processed.Kind != apperrors.KindUnknown {
		builder.WriteRune('\n')
		builder.WriteString(errorCodeStyle.Render(fmt.Sprintf("   Kind: %s", processed.Kind)))
	}

	if processed.Hint != "" {
		builder.WriteRune('\n')
		builder.WriteString(hintStyle.Render("Hint: " + processed.Hint))
	}

	style := errorPaneStyle
	if width > 4 {
		style = style.Width(width - 4)
	}
	return style.Render(builder.String())
}
