package common

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failureStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	focusingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4"))
	restingStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
	idleStyle     = lipgloss.NewStyle().Faint(true)
	labelStyle    = lipgloss.NewStyle().Width(16)
)

func Title(s string) string   { return titleStyle.Render(s) }
func Success(s string) string { return successStyle.Render(s) }
func Failure(s string) string { return failureStyle.Render(s) }

// Status renders a session status in its colour.
func Status(status string) string {
	switch status {
	case "Focusing":
		return focusingStyle.Render(status)
	case "Resting":
		return restingStyle.Render(status)
	default:
		return idleStyle.Render(status)
	}
}

// Field renders an aligned "label value" line.
func Field(label string, value any) string {
	return labelStyle.Render(label+":") + fmt.Sprint(value)
}

// FormatRemaining renders the time left until a fire time in Unix
// milliseconds, or "-" when none is set.
func FormatRemaining(ms int64, now time.Time) string {
	if ms == 0 {
		return "-"
	}
	d := time.UnixMilli(ms).Sub(now)
	if d < 0 {
		return "due"
	}
	return d.Truncate(time.Second).String()
}
