// Package ui holds the terminal styles shared by the interactive shell and the
// evaluation report, with a plain fallback for pipes and NO_COLOR.
package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

const (
	ColorAccent   = "154"
	ColorWhite    = "255"
	ColorGray     = "245"
	ColorDarkGray = "238"
	ColorRed      = "196"
	ColorYellow   = "220"
)

type Styles struct {
	Header lipgloss.Style
	Rank   lipgloss.Style
	DocID  lipgloss.Style
	Score  lipgloss.Style
	Label  lipgloss.Style
	Value  lipgloss.Style
	Dim    lipgloss.Style
	Warn   lipgloss.Style
	Error  lipgloss.Style
	Panel  lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccent)),
		Rank:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		DocID:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorWhite)),
		Score:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent)),
		Label:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Value:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorWhite)),
		Dim:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Warn:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Error:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorDarkGray)).
			Padding(0, 1),
	}
}

// NoColorStyles renders text unchanged.
func NoColorStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle(),
		Rank:   lipgloss.NewStyle(),
		DocID:  lipgloss.NewStyle(),
		Score:  lipgloss.NewStyle(),
		Label:  lipgloss.NewStyle(),
		Value:  lipgloss.NewStyle(),
		Dim:    lipgloss.NewStyle(),
		Warn:   lipgloss.NewStyle(),
		Error:  lipgloss.NewStyle(),
		Panel:  lipgloss.NewStyle(),
	}
}

// StylesFor picks colored styles only when w is a terminal and NO_COLOR is
// unset.
func StylesFor(w io.Writer) Styles {
	if IsTTY(w) && !DetectNoColor() {
		return DefaultStyles()
	}
	return NoColorStyles()
}

func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}
