// Package themes holds the console color schemes.
package themes

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/schoolctl/internal/collection"
)

// Theme defines the visual style of the console.
type Theme struct {
	Title         lipgloss.Style
	Subtitle      lipgloss.Style
	Normal        lipgloss.Style
	Bold          lipgloss.Style
	Selected      lipgloss.Style
	RoundedBox    lipgloss.Style
	TabActive     lipgloss.Style
	TabInactive   lipgloss.Style
	StatusSuccess lipgloss.Style
	StatusWarning lipgloss.Style
	StatusError   lipgloss.Style
	StatusInfo    lipgloss.Style
	Primary       lipgloss.Color
	Muted         lipgloss.Color
}

// palette is the handful of colors a theme is derived from.
type palette struct {
	primary lipgloss.Color
	onPrim  lipgloss.Color // text drawn on top of primary
	text    lipgloss.Color
	subtext lipgloss.Color
	border  lipgloss.Color
	muted   lipgloss.Color
	success lipgloss.Color
	warning lipgloss.Color
	danger  lipgloss.Color
	info    lipgloss.Color
}

func build(p palette) Theme {
	status := func(c lipgloss.Color) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(c).Bold(true)
	}
	return Theme{
		Primary:     p.primary,
		Muted:       p.muted,
		Title:       lipgloss.NewStyle().Bold(true).Foreground(p.text).MarginBottom(1),
		Subtitle:    lipgloss.NewStyle().Foreground(p.subtext).MarginBottom(1),
		Normal:      lipgloss.NewStyle().Foreground(p.text),
		Bold:        lipgloss.NewStyle().Bold(true).Foreground(p.text),
		Selected:    lipgloss.NewStyle().Background(p.primary).Foreground(p.onPrim).Bold(true),
		RoundedBox:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(p.border).Padding(1, 2),
		TabActive:   lipgloss.NewStyle().Bold(true).Foreground(p.onPrim).Background(p.primary).Padding(0, 1),
		TabInactive: lipgloss.NewStyle().Foreground(p.subtext).Padding(0, 1),

		StatusSuccess: status(p.success),
		StatusWarning: status(p.warning),
		StatusError:   status(p.danger),
		StatusInfo:    status(p.info),
	}
}

// Default is the default theme.
var Default = build(palette{
	primary: "#7c3aed",
	onPrim:  "#fafafa",
	text:    "#fafafa",
	subtext: "#a3a3a3",
	border:  "#404040",
	muted:   "#737373",
	success: "#10b981",
	warning: "#f59e0b",
	danger:  "#ef4444",
	info:    "#3b82f6",
})

// CatppuccinMocha is the Catppuccin Mocha theme.
var CatppuccinMocha = build(palette{
	primary: "#cba6f7",
	onPrim:  "#1e1e2e",
	text:    "#cdd6f4",
	subtext: "#a6adc8",
	border:  "#45475a",
	muted:   "#6c7086",
	success: "#a6e3a1",
	warning: "#f9e2af",
	danger:  "#f38ba8",
	info:    "#89dceb",
})

// Names lists the selectable themes.
var Names = []string{"default", "catppuccin-mocha"}

// GetTheme returns a theme by name, falling back to Default.
func GetTheme(name string) Theme {
	if name == "catppuccin-mocha" {
		return CatppuccinMocha
	}
	return Default
}

// Notice returns the style for a notification severity.
func (t Theme) Notice(severity collection.Severity) lipgloss.Style {
	switch severity {
	case collection.SeveritySuccess:
		return t.StatusSuccess
	case collection.SeverityError:
		return t.StatusError
	case collection.SeverityWarning:
		return t.StatusWarning
	default:
		return t.StatusInfo
	}
}

// Status returns the style for a record status cell.
func (t Theme) Status(status string) lipgloss.Style {
	switch status {
	case "Approved", "Completed", "Active", "Present":
		return t.StatusSuccess
	case "Rejected", "Absent", "Inactive", "Ended":
		return t.StatusError
	case "Pending", "Late":
		return t.StatusWarning
	default:
		return t.Normal
	}
}
