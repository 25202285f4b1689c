package tui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Color palette for the watch screen
var (
	PrimaryColor = lipgloss.Color("#7D56F4") // Purple - headers, borders
	SuccessColor = lipgloss.Color("#43BF6D") // Green - fresh announcements
	WarningColor = lipgloss.Color("#FFA500") // Orange - stale devices
	MutedColor   = lipgloss.Color("#626262") // Gray - secondary info
	TextColor    = lipgloss.Color("#FFFFFF") // White - main content
)

// Layout constants
const (
	MinTerminalWidth = 60  // Minimum supported terminal width
	MaxContentWidth  = 100 // Maximum content width before capping
)

var (
	// TitleStyle is for the screen header
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true).
			PaddingLeft(2)

	// SubtitleStyle is for status lines under the header
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			PaddingLeft(2)

	// SpinnerStyle colors the listening spinner
	SpinnerStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)

	// CardStyle frames one device
	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(MutedColor).
			Padding(0, 2).
			MarginLeft(2)

	// FreshCardStyle highlights a device heard within the last interval
	FreshCardStyle = CardStyle.
			BorderForeground(SuccessColor)

	// LabelStyle is for field labels inside a card
	LabelStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	// ValueStyle is for field values inside a card
	ValueStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	// HelpStyle wraps the help line at the bottom
	HelpStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			PaddingTop(1)
)

// contentWidth returns the usable content width, clamped to the
// supported range. Falls back to the terminal size when the program has
// not yet received a WindowSizeMsg.
func contentWidth(width int) int {
	if width == 0 {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
			width = w
		} else {
			width = MinTerminalWidth
		}
	}
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}
	if width > MaxContentWidth {
		width = MaxContentWidth
	}
	return width
}
