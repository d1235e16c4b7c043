package theme

import (
	"image/color"

	"charm.land/lipgloss/v2"
)

type Theme struct {
	background color.Color
	foreground color.Color
	base       lipgloss.Style
}

func New() Theme {
	var t Theme

	t.background = ColorBgDark
	t.foreground = ColorWhite
	t.base = lipgloss.NewStyle().Foreground(t.foreground)

	return t
}

func (t Theme) Base() lipgloss.Style {
	return t.base
}

func (t Theme) Dim() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorDim)
}

func (t Theme) Background() color.Color {
	return t.background
}

func (t Theme) Foreground() color.Color {
	return t.foreground
}

// Glucose colors a reading by the target range. Non-positive values mean no
// reading.
func Glucose(sg float64) color.Color {
	switch {
	case sg <= 0:
		return ColorNeutral
	case sg < RangeLow:
		return ColorLow
	case sg > RangeHigh:
		return ColorHigh
	default:
		return ColorInRange
	}
}
