// Package tui renders the session for a terminal: a static record view, a
// live bubbletea watch model and huh credential prompts.
package tui

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	accent = lipgloss.AdaptiveColor{Light: "57", Dark: "63"}
	muted  = lipgloss.AdaptiveColor{Light: "245", Dark: "241"}
	danger = lipgloss.AdaptiveColor{Light: "160", Dark: "196"}
	ok     = lipgloss.AdaptiveColor{Light: "28", Dark: "46"}
	notice = lipgloss.AdaptiveColor{Light: "136", Dark: "226"}
)

// Styles used by the record view and the watch model.
type Styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Error   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Muted   lipgloss.Style
	Border  lipgloss.Style
	Help    lipgloss.Style
	Key     lipgloss.Style
	Spinner lipgloss.Style
}

// DefaultStyles adapts to light and dark terminal backgrounds.
func DefaultStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(accent).MarginBottom(1),
		Label:   lipgloss.NewStyle().Foreground(muted).Width(9),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(danger),
		Success: lipgloss.NewStyle().Bold(true).Foreground(ok),
		Warning: lipgloss.NewStyle().Bold(true).Foreground(notice),
		Muted:   lipgloss.NewStyle().Foreground(muted),
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 2),
		Help:    lipgloss.NewStyle().Foreground(muted).MarginTop(1),
		Key:     lipgloss.NewStyle().Bold(true).Foreground(accent),
		Spinner: lipgloss.NewStyle().Foreground(accent),
	}
}

// PlainStyles keeps the layout but drops colors and borders, for piped
// output and NO_COLOR.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Title:   plain,
		Label:   plain.Width(9),
		Error:   plain,
		Success: plain,
		Warning: plain,
		Muted:   plain,
		Border:  plain,
		Help:    plain.MarginTop(1),
		Key:     plain,
		Spinner: plain,
	}
}

// StylesFor picks DefaultStyles when out is a terminal and PlainStyles
// otherwise.
func StylesFor(out io.Writer) Styles {
	if os.Getenv("NO_COLOR") != "" || !isTerminal(out) {
		return PlainStyles()
	}
	return DefaultStyles()
}
