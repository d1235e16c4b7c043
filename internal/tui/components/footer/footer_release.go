//go:build release

package footer

import (
	"charm.land/lipgloss/v2"

	"github.com/garrettladley/minimon/internal/tui/theme"
)

var releaseStyle = lipgloss.NewStyle().Foreground(theme.ColorDim)

func (f Footer) leftContent() string {
	return releaseStyle.Render("minimon")
}
