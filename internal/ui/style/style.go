// Package style provides shared colors, icons and text styles for terminal output.
package style

import "github.com/charmbracelet/lipgloss"

// Brand Colors.
var (
	Iris   = lipgloss.Color("#8B5CF6")
	Slate  = lipgloss.Color("#667085")
	Green  = lipgloss.Color("#22A06B")
	Red    = lipgloss.Color("#D93025")
	Yellow = lipgloss.Color("#F59E0B")
)

// Icons.
const (
	Check   = "✓"
	Cross   = "✗"
	Warning = "!"
	Dot     = "●"
	Circle  = "○"
)

// StatusColor returns the color used for a package status in progress and summary output.
func StatusColor(status string) lipgloss.Color {
	switch status {
	case "resolved":
		return Green
	case "failed":
		return Red
	case "skipped":
		return Yellow
	default:
		return Slate
	}
}

// StatusIcon returns the icon used for a package status.
func StatusIcon(status string) string {
	switch status {
	case "resolved":
		return Check
	case "failed":
		return Cross
	case "skipped":
		return Circle
	default:
		return Dot
	}
}
