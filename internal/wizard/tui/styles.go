package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/zoothing/internal/version"
)

// AppName is shown in the wizard header
const AppName = "ZOOTHING SETUP WIZARD"

// Layout constants for responsive terminal width
const (
	MinTerminalWidth = 60
	MaxContentWidth  = 100
)

// Color palette
var (
	PrimaryColor   = lipgloss.Color("#7D56F4") // Purple
	SecondaryColor = lipgloss.Color("#43BF6D") // Green
	WarningColor   = lipgloss.Color("#FFA500") // Orange
	ErrorColor     = lipgloss.Color("#FF0000") // Red
	TextColor      = lipgloss.Color("#FFFFFF") // White
	SubtleColor    = lipgloss.Color("#626262") // Gray
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true).
			MarginBottom(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Italic(true)

	SelectedItemStyle = lipgloss.NewStyle().
				Foreground(SecondaryColor).
				Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Width(14).
			Foreground(TextColor)

	FocusedLabelStyle = LabelStyle.
				Foreground(PrimaryColor).
				Bold(true)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ErrorColor)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(SecondaryColor)

	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(PrimaryColor).
			Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			PaddingTop(1)
)

// RenderError renders an error message
func RenderError(text string) string {
	return ErrorStyle.Render("✗ " + text)
}

// RenderSuccess renders a success message
func RenderSuccess(text string) string {
	return SuccessStyle.Render("✓ " + text)
}

// RenderApplicationContainer wraps a screen in the common frame: header,
// content and the key help line.
func RenderApplicationContainer(content, help string, width int) string {
	w := width - 4
	if w < MinTerminalWidth {
		w = MinTerminalWidth
	}
	if w > MaxContentWidth {
		w = MaxContentWidth
	}

	header := headerStyle.Render(AppName + " " + version.Version)
	body := lipgloss.JoinVertical(lipgloss.Left, header, "", content, helpStyle.Render(help))
	return containerStyle.Width(w).Render(body)
}
