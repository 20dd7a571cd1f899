package tui

import "github.com/charmbracelet/lipgloss"

var (
	cyan   = lipgloss.Color("#00E5FF")
	green  = lipgloss.Color("#2AFFAA")
	red    = lipgloss.Color("#FF5555")
	yellow = lipgloss.Color("#FFB500")
	muted  = lipgloss.Color("#6C7280")
	text   = lipgloss.Color("#ECEFF4")
)

type styles struct {
	Header   lipgloss.Style
	Title    lipgloss.Style
	Label    lipgloss.Style
	Value    lipgloss.Style
	Muted    lipgloss.Style
	Positive lipgloss.Style
	Negative lipgloss.Style
	Neutral  lipgloss.Style
	Buy      lipgloss.Style
	Sell     lipgloss.Style
	Toast    lipgloss.Style
	Pane     lipgloss.Style
	Error    lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		Header: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(cyan).
			Padding(0, 2),
		Title:    lipgloss.NewStyle().Foreground(cyan).Bold(true),
		Label:    lipgloss.NewStyle().Foreground(muted),
		Value:    lipgloss.NewStyle().Foreground(text).Bold(true),
		Muted:    lipgloss.NewStyle().Foreground(muted),
		Positive: lipgloss.NewStyle().Foreground(green).Bold(true),
		Negative: lipgloss.NewStyle().Foreground(red).Bold(true),
		Neutral:  lipgloss.NewStyle().Foreground(muted),
		Buy:      lipgloss.NewStyle().Foreground(green).Bold(true),
		Sell:     lipgloss.NewStyle().Foreground(red).Bold(true),
		Toast: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(yellow).
			Padding(0, 1),
		Pane: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(muted).
			Padding(0, 1),
		Error: lipgloss.NewStyle().Foreground(red).Bold(true),
	}
}
