// Package content renders command output for the terminal: highlighted JSON documents,
// aligned tables and key/value listings.
package content

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alecthomas/chroma"
	"github.com/alecthomas/chroma/formatters"
	"github.com/alecthomas/chroma/lexers"
	"github.com/alecthomas/chroma/styles"
	"github.com/charmbracelet/lipgloss"
)

// Preferences control how output is rendered.
type Preferences struct {
	Theme          string
	Formatter      string
	Color          bool
	MaxTableRows   int
	MinColumnWidth int
	MaxColumnWidth int
}

// DefaultPreferences returns colored output with the github theme.
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:          "github",
		Formatter:      "terminal256",
		Color:          true,
		MaxTableRows:   100,
		MinColumnWidth: 4,
		MaxColumnWidth: 60,
	}
}

// Table is a header row plus data rows.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Field is one line of a key/value listing.
type Field struct {
	Key   string
	Value string
}

// Renderer formats documents for display
type Renderer struct {
	highlighter *SyntaxHighlighter
	preferences Preferences
	headerStyle lipgloss.Style
	keyStyle    lipgloss.Style
}

// SyntaxHighlighter provides code syntax highlighting capabilities using Chroma
type SyntaxHighlighter struct {
	formatter chroma.Formatter
	style     *chroma.Style
	theme     string
}

// NewRenderer creates a renderer; zero numeric preferences take their defaults.
func NewRenderer(prefs Preferences) (*Renderer, error) {
	defaults := DefaultPreferences()
	if prefs.Theme == "" {
		prefs.Theme = defaults.Theme
	}
	if prefs.Formatter == "" {
		prefs.Formatter = defaults.Formatter
	}
	if prefs.MaxTableRows <= 0 {
		prefs.MaxTableRows = defaults.MaxTableRows
	}
	if prefs.MinColumnWidth <= 0 {
		prefs.MinColumnWidth = defaults.MinColumnWidth
	}
	if prefs.MaxColumnWidth < prefs.MinColumnWidth {
		prefs.MaxColumnWidth = max(defaults.MaxColumnWidth, prefs.MinColumnWidth)
	}

	highlighter, err := NewSyntaxHighlighter(prefs.Theme, prefs.Formatter)
	if err != nil {
		return nil, err
	}

	r := &Renderer{
		highlighter: highlighter,
		preferences: prefs,
		headerStyle: lipgloss.NewStyle(),
		keyStyle:    lipgloss.NewStyle(),
	}
	if prefs.Color {
		r.headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#89B4FA"))
		r.keyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
	}
	return r, nil
}

// Preferences returns the effective preferences.
func (r *Renderer) Preferences() Preferences {
	return r.preferences
}

// JSON renders v as indented JSON, highlighted when color is enabled.
func (r *Renderer) JSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}
	if !r.preferences.Color {
		return string(data), nil
	}
	highlighted, err := r.highlighter.Highlight(string(data), "json")
	if err != nil {
		return string(data), nil
	}
	return strings.TrimRight(highlighted, "\n"), nil
}

// Table renders t with aligned columns. Rows beyond MaxTableRows are summarized.
func (r *Renderer) Table(t Table) string {
	if len(t.Headers) == 0 {
		return ""
	}

	widths := r.calculateColumnWidths(t)
	lines := []string{
		r.formatTableRow(t.Headers, widths, true),
		createTableSeparator(widths),
	}

	maxRows := r.preferences.MaxTableRows
	for i, row := range t.Rows {
		if i >= maxRows {
			lines = append(lines, fmt.Sprintf("... and %d more rows", len(t.Rows)-maxRows))
			break
		}
		lines = append(lines, r.formatTableRow(row, widths, false))
	}

	return strings.Join(lines, "\n")
}

// Fields renders a key/value listing with keys padded to a common width.
func (r *Renderer) Fields(fields []Field) string {
	width := 0
	for _, f := range fields {
		width = max(width, lipgloss.Width(f.Key))
	}

	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		key := r.keyStyle.Render(pad(f.Key+":", width+1))
		lines = append(lines, key+" "+f.Value)
	}
	return strings.Join(lines, "\n")
}

// calculateColumnWidths sizes columns to their widest cell within the configured bounds
func (r *Renderer) calculateColumnWidths(t Table) []int {
	widths := make([]int, len(t.Headers))
	for i, header := range t.Headers {
		widths[i] = lipgloss.Width(header)
	}

	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	for i := range widths {
		widths[i] = min(max(widths[i], r.preferences.MinColumnWidth), r.preferences.MaxColumnWidth)
	}
	return widths
}

func (r *Renderer) formatTableRow(cells []string, widths []int, isHeader bool) string {
	formatted := make([]string, len(widths))
	for i, width := range widths {
		cell := ""
		if i < len(cells) {
			cell = truncate(cells[i], width)
		}
		cell = pad(cell, width)
		if isHeader {
			cell = r.headerStyle.Render(cell)
		}
		formatted[i] = cell
	}
	return "│ " + strings.Join(formatted, " │ ") + " │"
}

func createTableSeparator(widths []int) string {
	parts := make([]string, len(widths))
	for i, width := range widths {
		parts[i] = strings.Repeat("─", width)
	}
	return "├─" + strings.Join(parts, "─┼─") + "─┤"
}

// truncate shortens plain cells to width; styled cells are left alone.
func truncate(cell string, width int) string {
	if lipgloss.Width(cell) <= width || strings.Contains(cell, "\x1b") {
		return cell
	}
	runes := []rune(cell)
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}

func pad(cell string, width int) string {
	if gap := width - lipgloss.Width(cell); gap > 0 {
		return cell + strings.Repeat(" ", gap)
	}
	return cell
}

// NewSyntaxHighlighter creates a new syntax highlighter with specified theme and format
func NewSyntaxHighlighter(themeName, formatterName string) (*SyntaxHighlighter, error) {
	formatter, ok := formatters.Registry[formatterName]
	if !ok {
		return nil, fmt.Errorf("formatter '%s' not found", formatterName)
	}

	style, ok := styles.Registry[themeName]
	if !ok {
		style = styles.GitHub
	}

	return &SyntaxHighlighter{
		formatter: formatter,
		style:     style,
		theme:     style.Name,
	}, nil
}

// Highlight applies syntax highlighting to code
func (sh *SyntaxHighlighter) Highlight(code, language string) (string, error) {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code, err
	}

	var highlighted strings.Builder
	if err := sh.formatter.Format(&highlighted, sh.style, iterator); err != nil {
		return code, err
	}
	return highlighted.String(), nil
}

// Theme returns the name of the active style.
func (sh *SyntaxHighlighter) Theme() string {
	return sh.theme
}

// SetTheme updates the syntax highlighting theme
func (sh *SyntaxHighlighter) SetTheme(themeName string) error {
	style, ok := styles.Registry[themeName]
	if !ok {
		return fmt.Errorf("theme '%s' not found", themeName)
	}

	sh.style = style
	sh.theme = themeName
	return nil
}
