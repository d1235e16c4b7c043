package status

import (
	"charm.land/lipgloss/v2"

	"github.com/garrettladley/minimon/internal/tui/theme"
)

const statusDot = "●"

// Indicator shows whether the dashboard is reachable and the sensor in range.
type Indicator struct {
	Checked   bool
	Reachable bool
	Sensor    bool
}

func (i Indicator) Render() string {
	if !i.Checked {
		return lipgloss.NewStyle().
			Foreground(theme.ColorBgLight).
			Render(statusDot + " connecting...")
	}

	if !i.Reachable {
		return lipgloss.NewStyle().
			Foreground(theme.ColorLow).
			Render(statusDot + " dashboard unreachable")
	}

	if i.Sensor {
		return lipgloss.NewStyle().
			Foreground(theme.ColorInRange).
			Render(statusDot + " sensor connected")
	}

	return lipgloss.NewStyle().
		Foreground(theme.ColorHigh).
		Render(statusDot + " no sensor signal")
}
