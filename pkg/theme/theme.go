// Package theme provides CLI color styling for change-kind output,
// grounded on original_source/koji_habitude/cli/theme.py's style-table
// approach but expressed with github.com/charmbracelet/lipgloss
// instead of click's ANSI helpers.
package theme

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/obriencj/koji-habitude-go/pkg/change"
)

// Theme renders labeled text, degrading to plain text when colorless
// output is required.
type Theme interface {
	Style(text string, kind change.Kind) string
	Heading(text string) string
	Unchanged(text string) string
}

type colorTheme struct {
	kindStyles map[change.Kind]lipgloss.Style
	heading    lipgloss.Style
	unchanged  lipgloss.Style
}

func (t colorTheme) Style(text string, kind change.Kind) string {
	if s, ok := t.kindStyles[kind]; ok {
		return s.Render(text)
	}
	return text
}

func (t colorTheme) Heading(text string) string    { return t.heading.Render(text) }
func (t colorTheme) Unchanged(text string) string { return t.unchanged.Render(text) }

type plainTheme struct{}

func (plainTheme) Style(text string, _ change.Kind) string { return text }
func (plainTheme) Heading(text string) string               { return text }
func (plainTheme) Unchanged(text string) string              { return text }

// Default is the colored theme, matching the field names of the
// original's DEFAULT_THEME table (create=green, update=cyan,
// add=blue, remove=red, modify=magenta).
var Default Theme = colorTheme{
	kindStyles: map[change.Kind]lipgloss.Style{
		change.KindCreate: lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		change.KindUpdate: lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		change.KindAdd:    lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		change.KindRemove: lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		change.KindModify: lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
	},
	heading:   lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	unchanged: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
}

// NoColor is the degraded theme used when NO_COLOR is set or stdout
// isn't a terminal.
var NoColor Theme = plainTheme{}

// Select picks Default or NoColor per NO_COLOR and tty status (spec.md
// section 6 Environment; original's select_theme()).
func Select() Theme {
	if os.Getenv("NO_COLOR") != "" {
		return NoColor
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return NoColor
	}
	return Default
}
